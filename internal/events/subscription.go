package events

import (
	"fmt"
	"sync"
)

// DefaultBuffer is the per-subscriber buffer used when none is configured.
const DefaultBuffer = 64

// Subscription is one consumer's buffered view of a Bus.
type Subscription struct {
	id      uint64
	events  chan Envelope
	mu      sync.Mutex
	closed  bool
	onClose func()
}

func newSubscription(id uint64, buffer int, onClose func()) *Subscription {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Subscription{id: id, events: make(chan Envelope, buffer), onClose: onClose}
}

// push enqueues env without blocking.
//
// Postcondition: Returns an error if the subscription is closed or its buffer is full.
func (s *Subscription) push(env Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("subscription %d is closed", s.id)
	}
	select {
	case s.events <- env:
		return nil
	default:
		return fmt.Errorf("subscription %d buffer full", s.id)
	}
}

// Events returns the channel envelopes arrive on. It is closed by Close.
func (s *Subscription) Events() <-chan Envelope {
	return s.events
}

// Close detaches the subscription and closes its channel. Close is idempotent.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.events)
	s.mu.Unlock()

	if s.onClose != nil {
		s.onClose()
	}
}

// IsClosed reports whether Close has been called.
func (s *Subscription) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
