package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisBus publishes envelopes as JSON on a redis channel, so every process
// subscribed to the channel sees every event.
type RedisBus struct {
	client  *goredis.Client
	channel string
	buffer  int
	logger  *zap.Logger

	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]*Subscription
	closed bool
}

// NewRedisBus creates a RedisBus on channel.
//
// Precondition: client must be connected; channel must be non-empty.
func NewRedisBus(client *goredis.Client, channel string, buffer int, logger *zap.Logger) *RedisBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBus{
		client:  client,
		channel: channel,
		buffer:  buffer,
		logger:  logger.With(zap.String("channel", channel)),
		subs:    make(map[uint64]*Subscription),
	}
}

// Publish sends env to the channel.
func (b *RedisBus) Publish(ctx context.Context, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encoding envelope: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("publishing to %s: %w", b.channel, err)
	}
	return nil
}

// Subscribe opens a redis subscription and forwards decoded envelopes until the
// Subscription is closed.
//
// Postcondition: The redis subscription is confirmed before Subscribe returns.
func (b *RedisBus) Subscribe(ctx context.Context) (*Subscription, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrBusClosed
	}
	b.nextID++
	id := b.nextID
	b.mu.Unlock()

	ps := b.client.Subscribe(ctx, b.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", b.channel, err)
	}

	sub := newSubscription(id, b.buffer, func() {
		_ = ps.Close()
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	})
	if !b.register(id, sub) {
		sub.Close()
		return nil, ErrBusClosed
	}

	go b.forward(ps.Channel(), sub)
	return sub, nil
}

// register records sub unless the bus closed while the redis subscription was
// being confirmed.
func (b *RedisBus) register(id uint64, sub *Subscription) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	b.subs[id] = sub
	return true
}

func (b *RedisBus) forward(msgs <-chan *goredis.Message, sub *Subscription) {
	for msg := range msgs {
		var env Envelope
		if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
			b.logger.Warn("discarding malformed envelope", zap.Error(err))
			continue
		}
		if err := sub.push(env); err != nil {
			if sub.IsClosed() {
				return
			}
			b.logger.Debug("event dropped", zap.String("type", env.Type), zap.Error(err))
		}
	}
	sub.Close()
}

// Close closes every open subscription. The client is owned by the caller.
func (b *RedisBus) Close() error {
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
