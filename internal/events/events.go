// Package events fans combat events out to stream subscribers, in process or
// across processes through redis pub/sub.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/combat"
)

// ErrBusClosed is returned by Subscribe after the bus has been closed.
var ErrBusClosed = errors.New("event bus closed")

// Envelope is the wire form of an event.
type Envelope struct {
	Type    string          `json:"type"`
	At      time.Time       `json:"at"`
	Payload json.RawMessage `json:"payload"`
}

// Encode wraps ev in an Envelope stamped with at.
func Encode(ev combat.Event, at time.Time) (Envelope, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return Envelope{}, fmt.Errorf("encoding %s event: %w", ev.EventType(), err)
	}
	return Envelope{Type: ev.EventType(), At: at.UTC(), Payload: payload}, nil
}

// Bus delivers envelopes to every current subscriber.
type Bus interface {
	Publish(ctx context.Context, env Envelope) error
	Subscribe(ctx context.Context) (*Subscription, error)
	Close() error
}

// Publisher adapts a Bus to combat.EventPublisher. Delivery failures are logged and
// never reach the combat flow.
type Publisher struct {
	bus    Bus
	now    func() time.Time
	logger *zap.Logger
}

// NewPublisher creates a Publisher on bus.
//
// Precondition: bus must be non-nil.
func NewPublisher(bus Bus, clock func() time.Time, logger *zap.Logger) *Publisher {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{bus: bus, now: clock, logger: logger}
}

// Publish implements combat.EventPublisher.
func (p *Publisher) Publish(ctx context.Context, ev combat.Event) {
	env, err := Encode(ev, p.now())
	if err != nil {
		p.logger.Error("dropping event", zap.Error(err))
		return
	}
	if err := p.bus.Publish(ctx, env); err != nil {
		p.logger.Warn("publishing event", zap.String("type", env.Type), zap.Error(err))
	}
}
