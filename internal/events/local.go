package events

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// LocalBus is an in-process fan-out bus. Publish never blocks: an envelope is
// dropped for a subscriber whose buffer is full.
type LocalBus struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
	buffer int
	closed bool
	logger *zap.Logger
}

// NewLocalBus creates a LocalBus with the given per-subscriber buffer.
func NewLocalBus(buffer int, logger *zap.Logger) *LocalBus {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalBus{subs: make(map[uint64]*Subscription), buffer: buffer, logger: logger}
}

// Publish delivers env to every subscriber.
func (b *LocalBus) Publish(_ context.Context, env Envelope) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.subs {
		if err := s.push(env); err != nil {
			b.logger.Debug("event dropped", zap.String("type", env.Type), zap.Error(err))
		}
	}
	return nil
}

// Subscribe registers a new subscriber.
func (b *LocalBus) Subscribe(_ context.Context) (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBusClosed
	}
	b.nextID++
	id := b.nextID
	s := newSubscription(id, b.buffer, func() { b.remove(id) })
	b.subs[id] = s
	return s, nil
}

func (b *LocalBus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, id)
}

// Subscribers returns the number of attached subscribers.
func (b *LocalBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close closes every subscription and rejects new ones.
func (b *LocalBus) Close() error {
	b.mu.Lock()
	b.closed = true
	subs := make([]*Subscription, 0, len(b.subs))
	for _, s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()
	for _, s := range subs {
		s.Close()
	}
	return nil
}
