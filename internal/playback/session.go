// Package playback drives a live slideshow: which slide is current,
// when to advance, and when to restart or fade the audio track. A
// session owns every timer it arms and releases all of them on Close.
package playback

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"slidecast/internal/project"
)

var (
	ErrClosed  = errors.New("playback session is closed")
	ErrNoMedia = errors.New("project has no media to play")
)

const clockTick = time.Second

// Session is one live playback run over a snapshot of a project.
// Structural edits made to the project after start are not reflected;
// the session plays what it saw. Playback loops until Close.
type Session struct {
	ID        string
	ProjectID string

	logger   zerolog.Logger
	fadeTick time.Duration
	bus      *broadcaster
	onClose  func(id string)

	mu         sync.Mutex
	media      []project.MediaItem
	settings   project.Settings
	hasAudio   bool
	index      int
	volume     float64
	slideTimer *time.Timer
	fadeStop   chan struct{}
	clockStop  chan struct{}
	closed     bool
	startedAt  time.Time
}

// SessionState is a point-in-time view for API responses.
type SessionState struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"project_id"`
	Index      int       `json:"index"`
	MediaCount int       `json:"media_count"`
	Volume     float64   `json:"volume"`
	Closed     bool      `json:"closed"`
	StartedAt  time.Time `json:"started_at"`
}

func newSession(id string, p *project.Project, fadeTick time.Duration, onClose func(string), logger zerolog.Logger) (*Session, error) {
	if len(p.Media) == 0 {
		return nil, ErrNoMedia
	}
	if fadeTick <= 0 {
		fadeTick = 50 * time.Millisecond
	}

	s := &Session{
		ID:        id,
		ProjectID: p.ID,
		logger:    logger.With().Str("session", id).Logger(),
		fadeTick:  fadeTick,
		bus:       newBroadcaster(),
		onClose:   onClose,
		media:     append([]project.MediaItem(nil), p.Media...),
		settings:  p.Settings,
		hasAudio:  p.Audio != nil,
		volume:    1,
		startedAt: time.Now(),
	}

	s.mu.Lock()
	if s.settings.ShowClock {
		s.clockStop = make(chan struct{})
		go s.runClock(s.clockStop)
	}
	s.enterSlideLocked(0)
	s.mu.Unlock()

	return s, nil
}

// Subscribe attaches a listener to the session's event stream. The
// listener immediately receives the slide that is already current and,
// when the project has audio, the current audio state, so late joiners
// are neither blank nor silent until the next transition. The restart
// published on entering slide 0 happens before any listener exists, so
// without the replay the first loop would never start the track.
func (s *Session) Subscribe() *Listener {
	l := s.bus.Subscribe()
	s.mu.Lock()
	if !s.closed {
		evt := s.slideEventLocked()
		select {
		case l.C <- Event{Type: EventSlide, Slide: &evt}:
		default:
		}
		if s.hasAudio {
			audio := AudioEvent{Command: AudioVolume, Volume: s.volume}
			if s.fadeStop == nil && s.volume == 1 {
				audio = AudioEvent{Command: AudioRestart, Volume: 1}
			}
			select {
			case l.C <- Event{Type: EventAudio, Audio: &audio}:
			default:
			}
		}
	}
	s.mu.Unlock()
	return l
}

func (s *Session) Unsubscribe(l *Listener) {
	s.bus.Unsubscribe(l)
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionState{
		ID:         s.ID,
		ProjectID:  s.ProjectID,
		Index:      s.index,
		MediaCount: len(s.media),
		Volume:     s.volume,
		Closed:     s.closed,
		StartedAt:  s.startedAt,
	}
}

// enterSlideLocked performs one transition: disarm whatever the
// previous slide left pending, move the cursor, emit the slide event,
// run the audio rules, and arm the next advancement mechanism. At most
// one mechanism is ever armed.
func (s *Session) enterSlideLocked(i int) {
	if s.slideTimer != nil {
		s.slideTimer.Stop()
		s.slideTimer = nil
	}
	s.stopFadeLocked()

	s.index = i
	item := s.media[i]
	n := len(s.media)
	interval := s.settings.IntervalSeconds

	evt := s.slideEventLocked()
	s.bus.Publish(Event{Type: EventSlide, Slide: &evt})

	if s.hasAudio {
		if i == 0 {
			// Initial start and every loop restart: full volume,
			// seek to zero, play.
			s.volume = 1
			s.bus.Publish(Event{Type: EventAudio, Audio: &AudioEvent{Command: AudioRestart, Volume: 1}})
		}
		if i == n-1 && n > 1 && interval > 0 {
			s.startFadeLocked(interval)
		}
	}

	// A single item is shown until Close; nothing is armed. Videos
	// advance on their own ended signal, never on a timer.
	if n > 1 && item.Kind == project.KindImage {
		from := i
		s.slideTimer = time.AfterFunc(time.Duration(interval)*time.Second, func() {
			s.advanceFrom(from)
		})
	}
}

func (s *Session) slideEventLocked() SlideEvent {
	item := s.media[s.index]
	evt := SlideEvent{
		Index:           s.index,
		MediaID:         item.ID,
		Kind:            item.Kind,
		ContentRef:      item.ContentRef,
		Transition:      s.settings.Transition,
		IntervalSeconds: s.settings.IntervalSeconds,
	}
	if s.settings.CaptionsEnabled && item.Kind == project.KindImage {
		evt.Caption = item.Caption
	}
	return evt
}

func (s *Session) advanceFrom(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.index != index {
		// The slide changed before the timer fired; this expiry is
		// stale and must not advance anything.
		return
	}
	s.enterSlideLocked((s.index + 1) % len(s.media))
}

// VideoEnded is the client's report that the current video finished.
// It is the only advancement mechanism for video slides. Signals that
// arrive for a non-video slide are stale and ignored.
func (s *Session) VideoEnded() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.media[s.index].Kind != project.KindVideo {
		s.logger.Debug().Int("index", s.index).Msg("ignoring video-ended signal for non-video slide")
		return nil
	}
	if len(s.media) == 1 {
		return nil
	}
	s.enterSlideLocked((s.index + 1) % len(s.media))
	return nil
}

// ReportPlaybackError records an autoplay or media start rejection
// from the client. Non-fatal: the timeline keeps advancing on its
// timer and ended-signal contract.
func (s *Session) ReportPlaybackError(source, message string) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	s.logger.Warn().Str("source", source).Str("detail", message).Msg("client playback start rejected")
	return nil
}

func (s *Session) startFadeLocked(intervalSeconds int) {
	ticks := int(time.Duration(intervalSeconds) * time.Second / s.fadeTick)
	if ticks < 1 {
		ticks = 1
	}
	step := 1.0 / float64(ticks)

	stop := make(chan struct{})
	s.fadeStop = stop
	go s.runFade(stop, step)
}

func (s *Session) stopFadeLocked() {
	if s.fadeStop != nil {
		close(s.fadeStop)
		s.fadeStop = nil
	}
}

// runFade ramps the audio volume to zero in fixed decrements so it
// hits silence after exactly intervalSeconds of wall clock, one tick
// at a time.
func (s *Session) runFade(stop chan struct{}, step float64) {
	ticker := time.NewTicker(s.fadeTick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.closed || s.fadeStop != stop {
				s.mu.Unlock()
				return
			}
			s.volume -= step
			if s.volume < 0 {
				s.volume = 0
			}
			v := s.volume
			done := v == 0
			if done {
				s.fadeStop = nil
			}
			s.mu.Unlock()

			s.bus.Publish(Event{Type: EventAudio, Audio: &AudioEvent{Command: AudioVolume, Volume: v}})
			if done {
				return
			}
		}
	}
}

func (s *Session) runClock(stop chan struct{}) {
	ticker := time.NewTicker(clockTick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.bus.Publish(Event{Type: EventClock, Clock: &ClockEvent{Time: time.Now().Format("15:04")}})
		}
	}
}

// Close tears the session down: every owned timer is cancelled and
// every listener released before Close returns. Safe to call more
// than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.slideTimer != nil {
		s.slideTimer.Stop()
		s.slideTimer = nil
	}
	s.stopFadeLocked()
	if s.clockStop != nil {
		close(s.clockStop)
		s.clockStop = nil
	}
	s.mu.Unlock()

	s.bus.Publish(Event{Type: EventClosed})
	s.bus.Close()
	s.logger.Info().Msg("playback session closed")

	if s.onClose != nil {
		s.onClose(s.ID)
	}
}
