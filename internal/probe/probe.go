// Package probe resolves the playable duration of a media blob from
// its metadata, without decoding the content.
package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/rs/zerolog"
)

// Prober resolves a media file's duration in seconds. The prober
// itself imposes no timeout; callers bound the wait through ctx.
type Prober interface {
	Duration(ctx context.Context, path string) (float64, error)
}

var ErrNoDuration = errors.New("media reports no duration")

// FFProbe shells out to ffprobe for metadata. Only format-level
// duration is requested; streams are never decoded.
type FFProbe struct {
	ffprobePath string
	logger      zerolog.Logger
}

func NewFFProbe(ffprobePath string, logger zerolog.Logger) *FFProbe {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	if path, err := exec.LookPath(ffprobePath); err == nil {
		ffprobePath = path
	}
	return &FFProbe{
		ffprobePath: ffprobePath,
		logger:      logger,
	}
}

func (p *FFProbe) IsAvailable() bool {
	_, err := exec.LookPath(p.ffprobePath)
	return err == nil
}

func (p *FFProbe) Duration(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		path,
	}

	cmd := exec.CommandContext(ctx, p.ffprobePath, args...)
	output, err := cmd.Output()
	if err != nil {
		p.logger.Debug().Err(err).Str("file", path).Msg("ffprobe failed")
		return 0, fmt.Errorf("probe %s: %w", path, err)
	}

	return parseDuration(output)
}

type ffprobeOutput struct {
	Format ffprobeFormat `json:"format"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
}

func parseDuration(output []byte) (float64, error) {
	var out ffprobeOutput
	if err := json.Unmarshal(output, &out); err != nil {
		return 0, err
	}
	if out.Format.Duration == "" {
		return 0, ErrNoDuration
	}
	dur, err := strconv.ParseFloat(out.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", out.Format.Duration, err)
	}
	if dur <= 0 {
		return 0, ErrNoDuration
	}
	return dur, nil
}
