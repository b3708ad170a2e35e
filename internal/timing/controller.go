package timing

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"slidecast/internal/probe"
)

// Snapshot captures the controller inputs at trigger time: the image
// count, the on-disk paths of every video and of the audio track, and
// the interval currently in effect.
type Snapshot struct {
	Images     int
	VideoPaths []string
	AudioPath  string // empty when the project has no audio track
	Interval   int
}

// ApplyFunc writes a corrected interval back to the project. The
// write path must not call Trigger for that write: the controller
// already knows about it, and only external changes re-enter the
// controller.
type ApplyFunc func(interval int)

// Controller reactively re-runs the duration aggregation whenever the
// media list, audio track, or externally chosen interval changes, and
// applies the result exactly once per genuine change. Its own interval
// writes never re-trigger a recomputation, and a computation started
// for older inputs never overwrites state derived from newer ones.
type Controller struct {
	prober  probe.Prober
	timeout time.Duration
	apply   ApplyFunc
	logger  zerolog.Logger

	mu     sync.Mutex
	gen    uint64
	notice string
}

func NewController(prober probe.Prober, timeout time.Duration, apply ApplyFunc, logger zerolog.Logger) *Controller {
	return &Controller{
		prober:  prober,
		timeout: timeout,
		apply:   apply,
		logger:  logger,
	}
}

// Notice returns the current adjustment notice, empty when cleared.
func (c *Controller) Notice() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notice
}

// Trigger reports an external change to the controller inputs: media
// membership, audio track, or a user-chosen interval. The controller's
// own interval writes go through ApplyFunc and never come back here.
// Probing runs in the background; Trigger itself never blocks on
// ffprobe.
func (c *Controller) Trigger(snap Snapshot) {
	c.mu.Lock()
	c.gen++
	gen := c.gen

	if snap.AudioPath == "" || snap.Images == 0 {
		c.notice = ""
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	go c.recompute(gen, snap)
}

func (c *Controller) recompute(gen uint64, snap Snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	audio, err := c.prober.Duration(ctx, snap.AudioPath)
	if err != nil {
		c.logger.Warn().Err(err).Str("audio", snap.AudioPath).Msg("audio probe failed, skipping adjustment")
		return
	}

	videos := make([]float64, 0, len(snap.VideoPaths))
	for _, path := range snap.VideoPaths {
		d, err := c.prober.Duration(ctx, path)
		if err != nil {
			c.logger.Warn().Err(err).Str("video", path).Msg("video probe failed, skipping adjustment")
			return
		}
		videos = append(videos, d)
	}

	adj := ComputeAdjustment(snap.Images, videos, audio, snap.Interval)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		// Inputs changed while we were probing; a newer computation
		// owns the outcome.
		return
	}
	c.notice = adj.Notice
	if adj.Changed {
		c.logger.Info().
			Int("from", snap.Interval).
			Int("to", adj.Interval).
			Float64("audio_seconds", audio).
			Msg("slide interval auto-adjusted")
		// Applied under the same lock as the staleness check, so a
		// computation for older inputs can never write after a newer
		// trigger has been accepted.
		c.apply(adj.Interval)
	}
}
