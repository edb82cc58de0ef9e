package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/character"
	"github.com/cory-johannsen/arena/internal/game/combat"
	"github.com/cory-johannsen/arena/internal/game/monster"
	"github.com/cory-johannsen/arena/internal/game/progression"
	"github.com/cory-johannsen/arena/internal/game/ruleset"
)

// Session is the play state of the active character: the character aggregate, its
// combat resolver and the selected location.
type Session struct {
	mu        sync.Mutex
	char      *character.Character
	resolver  *combat.Resolver
	location  *ruleset.Location
	catalog   Catalog
	saver     combat.CharacterSaver
	startedAt time.Time
	logger    *zap.Logger
}

// View is a read-only summary of a Session.
type View struct {
	Character character.Record  `json:"character"`
	Location  *ruleset.Location `json:"location,omitempty"`
	State     combat.State      `json:"state"`
	Enemy     *monster.Instance `json:"enemy,omitempty"`
	StartedAt time.Time         `json:"started_at"`
}

// CharacterID returns the id of the session's character.
func (s *Session) CharacterID() string {
	return s.char.ID()
}

// Character returns the session's character aggregate.
func (s *Session) Character() *character.Character {
	return s.char
}

// View returns a consistent summary of the session.
func (s *Session) View() View {
	s.mu.Lock()
	var loc *ruleset.Location
	if s.location != nil {
		l := *s.location
		loc = &l
	}
	s.mu.Unlock()

	v := View{
		Character: s.char.Snapshot(),
		Location:  loc,
		State:     s.resolver.State(),
		StartedAt: s.startedAt,
	}
	if m, ok := s.resolver.Enemy(); ok {
		v.Enemy = &m
	}
	return v
}

// SelectLocation moves the session to locationID, abandoning any encounter.
//
// Postcondition: Returns ErrUnknownLocation or ErrLocationLocked without changing the
// current location.
func (s *Session) SelectLocation(locationID string) (ruleset.Location, error) {
	loc, ok := s.catalog.Location(locationID)
	if !ok {
		return ruleset.Location{}, fmt.Errorf("%w: %s", ErrUnknownLocation, locationID)
	}
	level := s.char.Snapshot().Level
	if !loc.Accessible(level) {
		return ruleset.Location{}, fmt.Errorf("%w: %s requires level %d, character is level %d",
			ErrLocationLocked, loc.ID, loc.RequiredLevel, level)
	}
	s.mu.Lock()
	s.location = &loc
	s.mu.Unlock()
	s.resolver.Flee()
	s.logger.Info("location selected", zap.String("location", loc.ID))
	return loc, nil
}

// FindEnemy engages a monster from the selected location.
func (s *Session) FindEnemy(ctx context.Context) (*monster.Instance, error) {
	s.mu.Lock()
	loc := s.location
	s.mu.Unlock()
	return s.resolver.FindEnemy(ctx, loc)
}

// Attack runs one combat exchange.
func (s *Session) Attack(ctx context.Context) (combat.Exchange, error) {
	return s.resolver.PerformAttack(ctx)
}

// Flee abandons the current encounter.
func (s *Session) Flee() {
	s.resolver.Flee()
}

// AllocateStatPoint spends one stat point and persists the character.
//
// Postcondition: On ErrNoPointsAvailable or ErrInvalidStatKind nothing changes and
// nothing is persisted.
func (s *Session) AllocateStatPoint(ctx context.Context, kind progression.StatKind) (progression.StatGain, character.Record, error) {
	gain, err := s.char.AllocateStatPoint(kind)
	if err != nil {
		return progression.StatGain{}, s.char.Snapshot(), err
	}
	rec, err := s.char.Persist(ctx, s.saver)
	s.logger.Info("stat point allocated",
		zap.Stringer("stat", kind),
		zap.Int("amount", gain.Amount),
		zap.Int("available_stat_points", rec.AvailableStatPoints),
	)
	if err != nil {
		return gain, rec, fmt.Errorf("persisting character %s: %w", rec.ID, err)
	}
	return gain, rec, nil
}

// Restore fully heals the character and persists it. It is the revive path after a defeat.
func (s *Session) Restore(ctx context.Context) (character.Record, error) {
	s.char.Restore()
	rec, err := s.char.Persist(ctx, s.saver)
	s.logger.Info("character restored")
	if err != nil {
		return rec, fmt.Errorf("persisting character %s: %w", rec.ID, err)
	}
	return rec, nil
}
