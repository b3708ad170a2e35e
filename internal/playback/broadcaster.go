package playback

import "sync"

const listenerBuffer = 64

// Listener receives a session's events. C is closed when the session
// closes or the listener is unsubscribed.
type Listener struct {
	C chan Event
}

// broadcaster fans session events out to any number of listeners. A
// listener that falls behind has events dropped rather than stalling
// the state machine.
type broadcaster struct {
	mu        sync.Mutex
	listeners map[*Listener]struct{}
	closed    bool
}

func newBroadcaster() *broadcaster {
	return &broadcaster{
		listeners: make(map[*Listener]struct{}),
	}
}

func (b *broadcaster) Subscribe() *Listener {
	l := &Listener{C: make(chan Event, listenerBuffer)}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(l.C)
		return l
	}
	b.listeners[l] = struct{}{}
	return l
}

func (b *broadcaster) Unsubscribe(l *Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.listeners[l]; ok {
		delete(b.listeners, l)
		close(l.C)
	}
}

func (b *broadcaster) Publish(evt Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for l := range b.listeners {
		select {
		case l.C <- evt:
		default:
		}
	}
}

func (b *broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for l := range b.listeners {
		delete(b.listeners, l)
		close(l.C)
	}
}
