// Package session owns the single active play session and the character roster
// operations that must stay consistent with it.
package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/character"
	"github.com/cory-johannsen/arena/internal/game/combat"
	"github.com/cory-johannsen/arena/internal/game/monster"
	"github.com/cory-johannsen/arena/internal/game/ruleset"
	"github.com/cory-johannsen/arena/internal/storage"
)

var (
	// ErrNoActiveSession is returned when an operation needs a started session.
	ErrNoActiveSession = errors.New("no active session")
	// ErrLocationLocked is returned when the character's level is below a location's requirement.
	ErrLocationLocked = errors.New("location locked")
	// ErrUnknownLocation is returned for a location id missing from the catalog.
	ErrUnknownLocation = errors.New("unknown location")
	// ErrUnknownRace is returned for a race id missing from the catalog.
	ErrUnknownRace = errors.New("unknown race")
)

// Catalog is the read-only content the session layer needs.
type Catalog interface {
	Race(id string) (ruleset.Race, bool)
	Location(id string) (ruleset.Location, bool)
	Listing(itemID string) (ruleset.ShopListing, bool)
	MonstersIn(locationID string) []monster.Template
}

// Stats aggregates the roster.
type Stats struct {
	TotalCharacters int `json:"total_characters"`
	TotalLevels     int `json:"total_levels"`
	AverageLevel    int `json:"average_level"`
	TotalCurrency   int `json:"total_currency"`
	GlobalCurrency  int `json:"global_currency"`
}

// Manager holds at most one active Session.
type Manager struct {
	mu            sync.Mutex
	current       *Session
	store         storage.CharacterStore
	catalog       Catalog
	src           combat.Source
	pub           combat.EventPublisher
	globalPercent int
	now           func() time.Time
	logger        *zap.Logger
}

// NewManager creates a Manager with no active session.
//
// Precondition: store, catalog and src must be non-nil; globalPercent in [0, 100].
// A nil clock uses time.Now and a nil logger is replaced by a no-op logger.
func NewManager(
	store storage.CharacterStore,
	catalog Catalog,
	src combat.Source,
	pub combat.EventPublisher,
	globalPercent int,
	clock func() time.Time,
	logger *zap.Logger,
) *Manager {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:         store,
		catalog:       catalog,
		src:           src,
		pub:           pub,
		globalPercent: globalPercent,
		now:           clock,
		logger:        logger,
	}
}

// Start loads characterID and makes it the active session, ending any previous one.
//
// Postcondition: On error the previous session, if any, stays active.
func (m *Manager) Start(ctx context.Context, characterID string) (*Session, error) {
	rec, err := m.store.Get(ctx, characterID)
	if err != nil {
		return nil, fmt.Errorf("loading character %s: %w", characterID, err)
	}
	char, err := character.New(rec, m.now)
	if err != nil {
		return nil, err
	}
	logger := m.logger.With(zap.String("character_id", rec.ID))
	s := &Session{
		char:      char,
		resolver:  combat.NewResolver(char, m.catalog, m.store, m.store, m.src, m.pub, m.globalPercent, logger),
		catalog:   m.catalog,
		saver:     m.store,
		startedAt: m.now().UTC(),
		logger:    logger,
	}

	m.mu.Lock()
	prev := m.current
	m.current = s
	m.mu.Unlock()

	if prev != nil {
		m.persist(ctx, prev)
	}
	logger.Info("session started", zap.String("name", rec.Name), zap.Int("level", rec.Level))
	return s, nil
}

// Current returns the active session or ErrNoActiveSession.
func (m *Manager) Current() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil, ErrNoActiveSession
	}
	return m.current, nil
}

// Active returns the active character, if any.
func (m *Manager) Active() (*character.Character, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil, false
	}
	return m.current.char, true
}

// End persists the active character and clears the session.
func (m *Manager) End(ctx context.Context) error {
	m.mu.Lock()
	s := m.current
	m.current = nil
	m.mu.Unlock()
	if s == nil {
		return ErrNoActiveSession
	}
	s.Flee()
	if _, err := s.char.Persist(ctx, m.store); err != nil {
		return fmt.Errorf("persisting character %s: %w", s.CharacterID(), err)
	}
	s.logger.Info("session ended")
	return nil
}

func (m *Manager) persist(ctx context.Context, s *Session) {
	s.Flee()
	if _, err := s.char.Persist(ctx, m.store); err != nil && !errors.Is(err, storage.ErrCharacterNotFound) {
		s.logger.Error("persisting replaced session", zap.Error(err))
		return
	}
	s.logger.Info("session replaced")
}

// CreateCharacter builds and stores a new character of raceID.
//
// Postcondition: Returns ErrUnknownRace, character.ErrRaceLocked or
// character.ErrInvalidName without storing anything.
func (m *Manager) CreateCharacter(ctx context.Context, name, raceID string) (character.Record, error) {
	race, ok := m.catalog.Race(raceID)
	if !ok {
		return character.Record{}, fmt.Errorf("%w: %s", ErrUnknownRace, raceID)
	}
	unlocked, err := m.raceUnlocked(ctx, raceID)
	if err != nil {
		return character.Record{}, err
	}
	if !unlocked {
		return character.Record{}, fmt.Errorf("%w: %s", character.ErrRaceLocked, raceID)
	}
	rec, err := m.store.Create(ctx, name, race)
	if err != nil {
		return character.Record{}, err
	}
	m.logger.Info("character created",
		zap.String("character_id", rec.ID),
		zap.String("name", rec.Name),
		zap.String("race", rec.RaceID),
	)
	return rec, nil
}

// raceUnlocked reports whether a race is playable. Races without a shop listing are
// always playable.
func (m *Manager) raceUnlocked(ctx context.Context, raceID string) (bool, error) {
	listing, ok := m.catalog.Listing(raceID)
	if !ok || listing.Purchased {
		return true, nil
	}
	items, err := m.store.UnlockedItems(ctx)
	if err != nil {
		return false, fmt.Errorf("loading unlocked items: %w", err)
	}
	return slices.Contains(items, raceID), nil
}

// DeleteCharacter removes a character, ending the session first when it is the active one.
func (m *Manager) DeleteCharacter(ctx context.Context, id string) error {
	m.mu.Lock()
	if m.current != nil && m.current.CharacterID() == id {
		m.current.Flee()
		m.current = nil
		m.logger.Info("session ended by delete", zap.String("character_id", id))
	}
	m.mu.Unlock()
	if err := m.store.Delete(ctx, id); err != nil {
		return err
	}
	m.logger.Info("character deleted", zap.String("character_id", id))
	return nil
}

// GetCharacter returns the live state of the active character, or the stored record otherwise.
func (m *Manager) GetCharacter(ctx context.Context, id string) (character.Record, error) {
	if char, ok := m.Active(); ok && char.ID() == id {
		return char.Snapshot(), nil
	}
	return m.store.Get(ctx, id)
}

// ListCharacters returns every character, most recently updated first. The active
// character is reported with its live state.
func (m *Manager) ListCharacters(ctx context.Context) ([]character.Record, error) {
	recs, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}
	char, ok := m.Active()
	if !ok {
		return recs, nil
	}
	for i := range recs {
		if recs[i].ID == char.ID() {
			recs[i] = char.Snapshot()
		}
	}
	slices.SortStableFunc(recs, func(a, b character.Record) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return recs, nil
}

// Stats aggregates the roster and the global wallet.
func (m *Manager) Stats(ctx context.Context) (Stats, error) {
	recs, err := m.ListCharacters(ctx)
	if err != nil {
		return Stats{}, err
	}
	global, err := m.store.GlobalCurrency(ctx)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{TotalCharacters: len(recs), GlobalCurrency: global, TotalCurrency: global}
	for _, r := range recs {
		st.TotalLevels += r.Level
		st.TotalCurrency += r.PersonalCurrency
	}
	if st.TotalCharacters > 0 {
		st.AverageLevel = int(math.Round(float64(st.TotalLevels) / float64(st.TotalCharacters)))
	}
	return st, nil
}
