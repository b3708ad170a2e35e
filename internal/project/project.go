// Package project holds the slideshow project model: the ordered media
// list, the optional audio track, and the playback settings.
package project

import (
	"errors"
	"fmt"
	"time"
)

// MediaKind discriminates how a slide advances: images run on the
// configured interval, videos run to their own end.
type MediaKind string

const (
	KindImage MediaKind = "image"
	KindVideo MediaKind = "video"
)

func (k MediaKind) Valid() bool {
	return k == KindImage || k == KindVideo
}

// TransitionStyle selects the visual transition between slides.
type TransitionStyle string

const (
	TransitionFade        TransitionStyle = "fade"
	TransitionKenBurns    TransitionStyle = "kenBurns"
	TransitionSlideRight  TransitionStyle = "slideRight"
	TransitionSlideBottom TransitionStyle = "slideBottom"
	TransitionZoomIn      TransitionStyle = "zoomIn"
)

func (t TransitionStyle) Valid() bool {
	switch t {
	case TransitionFade, TransitionKenBurns, TransitionSlideRight, TransitionSlideBottom, TransitionZoomIn:
		return true
	}
	return false
}

// MediaItem is one entry in the playback order. ID is stable across
// reordering. DurationSeconds is the probed duration and is only
// meaningful for videos; Caption only applies to images.
type MediaItem struct {
	ID              string    `json:"id"`
	Kind            MediaKind `json:"kind"`
	DisplayName     string    `json:"display_name"`
	ContentRef      string    `json:"content_ref"`
	DurationSeconds float64   `json:"duration_seconds,omitempty"`
	Caption         string    `json:"caption,omitempty"`
}

// AudioTrack is the single optional soundtrack of a project.
type AudioTrack struct {
	DisplayName string `json:"display_name"`
	ContentRef  string `json:"content_ref"`
}

// Settings are the user-facing playback knobs. IntervalSeconds is
// written both by the user and by the auto-adjustment controller.
type Settings struct {
	IntervalSeconds int             `json:"interval_seconds"`
	Transition      TransitionStyle `json:"transition"`
	ShowClock       bool            `json:"show_clock"`
	CaptionsEnabled bool            `json:"captions_enabled"`
}

// DefaultSettings returns the settings a fresh project starts with.
func DefaultSettings() Settings {
	return Settings{
		IntervalSeconds: 5,
		Transition:      TransitionFade,
	}
}

func (s Settings) Validate() error {
	if s.IntervalSeconds < 1 {
		return ErrIntervalTooSmall
	}
	if !s.Transition.Valid() {
		return fmt.Errorf("%w: %q", ErrBadTransition, s.Transition)
	}
	return nil
}

// Limits bound what a project may contain. Enforced at the boundary:
// an offending item is rejected with a user-visible error and is never
// silently truncated.
type Limits struct {
	MaxImages       int
	MaxVideos       int
	MaxVideoSeconds float64
}

var (
	ErrNotFound         = errors.New("media item not found")
	ErrTooManyImages    = errors.New("image limit reached")
	ErrTooManyVideos    = errors.New("only one video is allowed per slideshow")
	ErrVideoTooLong     = errors.New("video exceeds the maximum allowed duration")
	ErrBadKind          = errors.New("unsupported media kind")
	ErrBadTransition    = errors.New("unknown transition style")
	ErrIntervalTooSmall = errors.New("interval must be at least 1 second")
	ErrBadIndex         = errors.New("reorder index out of range")
)

// Project is an in-memory slideshow document. The persisted copy lives
// in storage; SavedAt orders concurrent saves (last writer wins).
type Project struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Media    []MediaItem `json:"media"`
	Audio    *AudioTrack `json:"audio,omitempty"`
	Settings Settings    `json:"settings"`
	SavedAt  time.Time   `json:"saved_at"`
}

// CountImages returns the number of image items.
func (p *Project) CountImages() int {
	n := 0
	for _, m := range p.Media {
		if m.Kind == KindImage {
			n++
		}
	}
	return n
}

// CountVideos returns the number of video items.
func (p *Project) CountVideos() int {
	n := 0
	for _, m := range p.Media {
		if m.Kind == KindVideo {
			n++
		}
	}
	return n
}

// VideoDurations returns the probed durations of all video items, in
// playback order.
func (p *Project) VideoDurations() []float64 {
	var out []float64
	for _, m := range p.Media {
		if m.Kind == KindVideo {
			out = append(out, m.DurationSeconds)
		}
	}
	return out
}

// AddMedia appends an item after checking it against the limits. Items
// already in the project are unaffected when the new one is rejected.
func (p *Project) AddMedia(item MediaItem, limits Limits) error {
	switch item.Kind {
	case KindImage:
		if p.CountImages() >= limits.MaxImages {
			return fmt.Errorf("%w (max %d)", ErrTooManyImages, limits.MaxImages)
		}
	case KindVideo:
		if p.CountVideos() >= limits.MaxVideos {
			return ErrTooManyVideos
		}
		if item.DurationSeconds > limits.MaxVideoSeconds {
			return fmt.Errorf("%w (%.1fs > %.0fs)", ErrVideoTooLong, item.DurationSeconds, limits.MaxVideoSeconds)
		}
	default:
		return fmt.Errorf("%w: %q", ErrBadKind, item.Kind)
	}
	p.Media = append(p.Media, item)
	return nil
}

// RemoveMedia deletes the item with the given ID, preserving order of
// the rest.
func (p *Project) RemoveMedia(id string) error {
	for i, m := range p.Media {
		if m.ID == id {
			p.Media = append(p.Media[:i], p.Media[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// FindMedia returns a pointer to the item with the given ID, or nil.
func (p *Project) FindMedia(id string) *MediaItem {
	for i := range p.Media {
		if p.Media[i].ID == id {
			return &p.Media[i]
		}
	}
	return nil
}

// Reorder moves the item at from to position to. Item identities are
// untouched; only the order changes.
func (p *Project) Reorder(from, to int) error {
	n := len(p.Media)
	if from < 0 || from >= n || to < 0 || to >= n {
		return ErrBadIndex
	}
	if from == to {
		return nil
	}
	item := p.Media[from]
	p.Media = append(p.Media[:from], p.Media[from+1:]...)
	p.Media = append(p.Media, MediaItem{})
	copy(p.Media[to+1:], p.Media[to:])
	p.Media[to] = item
	return nil
}
