package playback

import "slidecast/internal/project"

type EventType string

const (
	EventSlide  EventType = "slide"
	EventAudio  EventType = "audio"
	EventClock  EventType = "clock"
	EventClosed EventType = "closed"
)

// AudioCommand tells the client what to do with the audio element.
type AudioCommand string

const (
	// AudioRestart resets volume to full, seeks to zero, and plays.
	// Emitted on entering slide 0, both at start and on every loop.
	AudioRestart AudioCommand = "restart"
	// AudioVolume sets the volume directly: one step of the fade-out
	// ramp, or the current level replayed to a new subscriber.
	AudioVolume AudioCommand = "volume"
)

// Event is one item on a session's event stream.
type Event struct {
	Type  EventType   `json:"type"`
	Slide *SlideEvent `json:"slide,omitempty"`
	Audio *AudioEvent `json:"audio,omitempty"`
	Clock *ClockEvent `json:"clock,omitempty"`
}

type SlideEvent struct {
	Index           int                     `json:"index"`
	MediaID         string                  `json:"media_id"`
	Kind            project.MediaKind       `json:"kind"`
	ContentRef      string                  `json:"content_ref"`
	Caption         string                  `json:"caption,omitempty"`
	Transition      project.TransitionStyle `json:"transition"`
	IntervalSeconds int                     `json:"interval_seconds"`
}

type AudioEvent struct {
	Command AudioCommand `json:"command"`
	Volume  float64      `json:"volume"`
}

type ClockEvent struct {
	Time string `json:"time"`
}
