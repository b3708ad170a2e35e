// Package timing computes and auto-applies the per-image display
// interval so a slideshow's visual timeline never overruns its audio
// track.
package timing

import (
	"fmt"
	"math"
)

// MinInterval is the floor for the per-image interval, in seconds.
const MinInterval = 1

// Adjustment is the outcome of one aggregation pass. Interval always
// carries a valid value; Changed reports whether it differs from the
// input. Notice is empty when there is nothing to tell the user.
type Adjustment struct {
	Interval int
	Changed  bool
	Notice   string
}

// ComputeAdjustment decides whether the current per-image interval
// makes the visual timeline longer than the audio track and, if so,
// returns the corrected interval. Rounding is floor, biased toward a
// slightly faster slideshow rather than overrunning the audio.
//
// With no images there is nothing to adjust and the call is a no-op
// that clears any notice; likewise when the audio already covers the
// planned visuals.
func ComputeAdjustment(images int, videoDurations []float64, audioDuration float64, currentInterval int) Adjustment {
	unchanged := Adjustment{Interval: currentInterval}

	if images <= 0 || audioDuration <= 0 {
		return unchanged
	}

	totalVideo := 0.0
	for _, d := range videoDurations {
		totalVideo += d
	}

	visual := float64(images*currentInterval) + totalVideo
	if audioDuration >= visual {
		return unchanged
	}

	availableForImages := audioDuration - totalVideo
	if availableForImages > 0 {
		interval := int(math.Floor(availableForImages / float64(images)))
		if interval < MinInterval {
			interval = MinInterval
		}
		if interval == currentInterval {
			return unchanged
		}
		return Adjustment{
			Interval: interval,
			Changed:  true,
			Notice:   fmt.Sprintf("Slide speed automatically adjusted to %ds to match song length.", interval),
		}
	}

	// The audio is shorter than the video content alone. Clamp to the
	// floor; the notice is only worth emitting when something moved.
	if currentInterval == MinInterval {
		return unchanged
	}
	return Adjustment{
		Interval: MinInterval,
		Changed:  true,
		Notice:   fmt.Sprintf("Song is shorter than video content. Slide speed set to minimum (%ds).", MinInterval),
	}
}
