// Package regen restores the active character's pools over wall-clock time.
package regen

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/character"
)

// DefaultInterval is the regeneration tick used when none is configured.
const DefaultInterval = time.Second

// ActiveCharacter yields the character currently in session, if any.
type ActiveCharacter interface {
	Active() (*character.Character, bool)
}

// CharacterSaver persists a character snapshot.
type CharacterSaver interface {
	Save(ctx context.Context, rec character.Record) error
}

// Scheduler runs regeneration passes for the active character on a fixed tick.
//
// Invariant: interval > 0.
type Scheduler struct {
	interval time.Duration
	active   ActiveCharacter
	saver    CharacterSaver
	now      func() time.Time
	logger   *zap.Logger
}

// NewScheduler returns a Scheduler ticking every interval. A nil clock defaults to
// time.Now; a nil logger is replaced by a no-op logger.
//
// Precondition: interval must be > 0; active and saver must be non-nil.
func NewScheduler(interval time.Duration, active ActiveCharacter, saver CharacterSaver, clock func() time.Time, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		panic("regen.NewScheduler: interval must be > 0")
	}
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		interval: interval,
		active:   active,
		saver:    saver,
		now:      clock,
		logger:   logger,
	}
}

// Interval returns the tick interval.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Pass regenerates the active character as of now and persists it when a pool rose.
// It is a no-op without an active character.
//
// Postcondition: On a persistence failure the in-memory result stands and the wrapped
// error is returned.
func (s *Scheduler) Pass(ctx context.Context, now time.Time) (character.RegenResult, error) {
	c, ok := s.active.Active()
	if !ok {
		return character.RegenResult{}, nil
	}
	res := c.Regenerate(now, s.interval)
	if !res.Changed() {
		return res, nil
	}
	s.logger.Debug("regenerated",
		zap.String("character_id", c.ID()),
		zap.Int("cycles", res.Cycles),
		zap.Int("health", res.HealthRestored),
		zap.Int("mana", res.ManaRestored),
	)
	if _, err := c.Persist(ctx, s.saver); err != nil {
		return res, fmt.Errorf("persisting regeneration for %s: %w", c.ID(), err)
	}
	return res, nil
}

// Run invokes Pass once per interval until ctx is cancelled. Pass errors are logged
// and do not stop the loop.
//
// Postcondition: Returns ctx.Err() once ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Pass(ctx, s.now()); err != nil {
				s.logger.Error("regeneration pass failed", zap.Error(err))
			}
		}
	}
}

// Start runs the tick loop in a new goroutine until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go func() { _ = s.Run(ctx) }()
}
