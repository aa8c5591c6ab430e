package broadcast

import (
	"sync"

	"github.com/nickbreaton/video-slug/internal/event"
)

// Stream fans one producer's events out to any number of independent
// subscribers. Buffering is unbounded: a slow or absent subscriber never
// blocks the producer or any other subscriber. Events are retained for the
// lifetime of the stream, but each subscriber only sees events published
// after its Subscribe call.
type Stream struct {
	mu      sync.Mutex
	events  []event.Event
	done    bool
	err     error
	waiters []chan struct{}
}

func New() *Stream {
	return &Stream{}
}

// Publish appends an event and wakes all blocked subscribers. Publishing
// after the stream has terminated is a no-op.
func (s *Stream) Publish(ev event.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}
	s.events = append(s.events, ev)
	s.wakeLocked()
}

// Close terminates the stream normally. Subscriber channels close once they
// have drained the buffered events.
func (s *Stream) Close() {
	s.terminate(nil)
}

// Fail terminates the stream with err. The first terminal state wins; a
// later Close or Fail is a no-op.
func (s *Stream) Fail(err error) {
	s.terminate(err)
}

func (s *Stream) terminate(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}
	s.done = true
	s.err = err
	s.wakeLocked()
}

func (s *Stream) wakeLocked() {
	for _, w := range s.waiters {
		close(w)
	}
	s.waiters = nil
}

// Err reports the terminal error, if any. It is only meaningful once a
// subscriber channel has closed.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Done reports whether the stream has reached a terminal state.
func (s *Stream) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Subscribe returns a channel delivering, in publish order, every event
// published after this call. The channel closes when the stream terminates
// and all pending events have been delivered. The returned cancel func
// releases the delivery goroutine early; it is idempotent and must be
// called once the subscriber is finished.
func (s *Stream) Subscribe() (<-chan event.Event, func()) {
	s.mu.Lock()
	cursor := len(s.events)
	s.mu.Unlock()

	out := make(chan event.Event)
	stop := make(chan struct{})
	var once sync.Once
	cancel := func() { once.Do(func() { close(stop) }) }

	go func() {
		defer close(out)
		for {
			s.mu.Lock()
			for cursor >= len(s.events) && !s.done {
				w := make(chan struct{})
				s.waiters = append(s.waiters, w)
				s.mu.Unlock()
				select {
				case <-w:
				case <-stop:
					return
				}
				s.mu.Lock()
			}
			if cursor >= len(s.events) {
				// terminal state and nothing left to deliver
				s.mu.Unlock()
				return
			}
			ev := s.events[cursor]
			cursor++
			s.mu.Unlock()

			select {
			case out <- ev:
			case <-stop:
				return
			}
		}
	}()

	return out, cancel
}
