package services

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/custodia-labs/xkit-cli/internal/core/domain"
	"github.com/custodia-labs/xkit-cli/internal/core/ports/driving"
	"github.com/custodia-labs/xkit-cli/internal/logger"
)

type listenerEntry struct {
	id string
	fn driving.Listener
}

// Emitter is a minimal pub/sub for client lifecycle events.
// At most one listener may be registered per (event, id) pair; a duplicate
// registration or the removal of an unknown listener is an error, which
// surfaces listener leaks early.
type Emitter struct {
	mu        sync.Mutex
	listeners map[domain.Event][]listenerEntry
}

// NewEmitter creates an empty emitter.
func NewEmitter() *Emitter {
	return &Emitter{listeners: make(map[domain.Event][]listenerEntry)}
}

// On registers fn for event under id.
func (e *Emitter) On(event domain.Event, id string, fn driving.Listener) error {
	if fn == nil || id == "" {
		return fmt.Errorf("register %s listener: %w", event, domain.ErrInvalidInput)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, l := range e.listeners[event] {
		if l.id == id {
			return fmt.Errorf("register %s listener %q: %w", event, id, domain.ErrListenerExists)
		}
	}
	if event.IsDeprecated() {
		logger.Deprecated(string(event), string(domain.EventConnectionRemove))
	}
	e.listeners[event] = append(e.listeners[event], listenerEntry{id: id, fn: fn})
	return nil
}

// Off removes the listener registered for event under id.
func (e *Emitter) Off(event domain.Event, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	entries := e.listeners[event]
	for i, l := range entries {
		if l.id == id {
			e.listeners[event] = append(entries[:i:i], entries[i+1:]...)
			if len(e.listeners[event]) == 0 {
				delete(e.listeners, event)
			}
			return nil
		}
	}
	return fmt.Errorf("remove %s listener %q: %w", event, id, domain.ErrListenerNotFound)
}

// Has returns true if a listener is registered for event under id.
func (e *Emitter) Has(event domain.Event, id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, l := range e.listeners[event] {
		if l.id == id {
			return true
		}
	}
	return false
}

// Emit calls every listener of event synchronously, in registration order.
// Listeners may register or remove listeners while being called.
func (e *Emitter) Emit(event domain.Event, payload any) {
	e.mu.Lock()
	entries := make([]listenerEntry, len(e.listeners[event]))
	copy(entries, e.listeners[event])
	e.mu.Unlock()

	for _, l := range entries {
		l.fn(payload)
	}
}

// RemoveAllListeners drops every listener of every event.
func (e *Emitter) RemoveAllListeners() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = make(map[domain.Event][]listenerEntry)
}

// Subscription delivers the payloads of one event on a channel.
type Subscription struct {
	C <-chan any

	mu      sync.Mutex
	ch      chan any
	closed  bool
	event   domain.Event
	id      string
	emitter *Emitter
}

// Subscribe returns a channel-backed subscription to event. Payloads are
// dropped when the buffer is full, since Emit never blocks on a consumer.
func (e *Emitter) Subscribe(event domain.Event, buf int) (*Subscription, error) {
	ch := make(chan any, buf)
	sub := &Subscription{
		C:       ch,
		ch:      ch,
		event:   event,
		id:      "subscription:" + uuid.NewString(),
		emitter: e,
	}
	if err := e.On(event, sub.id, sub.deliver); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *Subscription) deliver(payload any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- payload:
	default:
		logger.Warn("dropping %s event: subscriber is not keeping up", s.event)
	}
}

// Cancel removes the subscription and closes C. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.ch)
	s.mu.Unlock()

	_ = s.emitter.Off(s.event, s.id)
}
