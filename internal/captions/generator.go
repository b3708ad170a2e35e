package captions

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Status of a caption pass over one project.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// RunState reports progress of the latest caption pass for a project.
type RunState struct {
	Status    Status `json:"status"`
	Captioned int    `json:"captioned"`
	Total     int    `json:"total"`
	LastError string `json:"last_error,omitempty"`
}

// ImageRef is one uncaptioned image to process.
type ImageRef struct {
	MediaID     string
	Path        string
	ContentType string
}

// SaveFunc persists one generated caption.
type SaveFunc func(mediaID, caption string) error

var ErrRunning = errors.New("caption generation already running for this project")

// Generator runs caption passes, one at a time per project. A failed
// pass surfaces an error status but keeps every caption already
// written; the next pass picks up where it left off.
type Generator struct {
	client  *Client
	timeout time.Duration
	logger  zerolog.Logger

	mu   sync.Mutex
	runs map[string]*RunState
}

func NewGenerator(client *Client, timeout time.Duration, logger zerolog.Logger) *Generator {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &Generator{
		client:  client,
		timeout: timeout,
		logger:  logger,
		runs:    make(map[string]*RunState),
	}
}

// Status returns the state of the latest pass for the project.
func (g *Generator) Status(projectID string) RunState {
	g.mu.Lock()
	defer g.mu.Unlock()
	if st, ok := g.runs[projectID]; ok {
		return *st
	}
	return RunState{Status: StatusIdle}
}

// Start begins a background caption pass over the given images.
func (g *Generator) Start(projectID string, images []ImageRef, save SaveFunc) error {
	g.mu.Lock()
	if st, ok := g.runs[projectID]; ok && st.Status == StatusRunning {
		g.mu.Unlock()
		return ErrRunning
	}
	st := &RunState{Status: StatusRunning, Total: len(images)}
	g.runs[projectID] = st
	g.mu.Unlock()

	go g.run(projectID, st, images, save)
	return nil
}

func (g *Generator) run(projectID string, st *RunState, images []ImageRef, save SaveFunc) {
	for _, img := range images {
		caption, err := g.captionOne(img)
		if err == nil {
			err = save(img.MediaID, caption)
		}
		if err != nil {
			g.logger.Warn().Err(err).
				Str("project", projectID).
				Str("media", img.MediaID).
				Msg("caption pass stopped")
			g.mu.Lock()
			st.Status = StatusError
			st.LastError = err.Error()
			g.mu.Unlock()
			return
		}
		g.mu.Lock()
		st.Captioned++
		g.mu.Unlock()
	}

	g.mu.Lock()
	st.Status = StatusDone
	g.mu.Unlock()
	g.logger.Info().Str("project", projectID).Int("captioned", len(images)).Msg("caption pass finished")
}

func (g *Generator) captionOne(img ImageRef) (string, error) {
	data, err := os.ReadFile(img.Path)
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()
	return g.client.Caption(ctx, data, img.ContentType)
}
