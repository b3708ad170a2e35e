package playback

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"slidecast/internal/project"
)

// Manager tracks live sessions so the API can address them by ID and
// the server can tear them all down on shutdown.
type Manager struct {
	fadeTick time.Duration
	logger   zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(fadeTick time.Duration, logger zerolog.Logger) *Manager {
	return &Manager{
		fadeTick: fadeTick,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Start snapshots the project and begins playback at slide 0.
func (m *Manager) Start(p *project.Project) (*Session, error) {
	id := uuid.NewString()
	s, err := newSession(id, p, m.fadeTick, m.remove, m.logger)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	m.logger.Info().
		Str("session", id).
		Str("project", p.ID).
		Int("media", len(p.Media)).
		Bool("audio", p.Audio != nil).
		Msg("playback session started")
	return s, nil
}

// Get returns the session or nil.
func (m *Manager) Get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}

func (m *Manager) remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// CloseAll closes every live session. Used on server shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	open := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		open = append(open, s)
	}
	m.mu.Unlock()

	for _, s := range open {
		s.Close()
	}
}
