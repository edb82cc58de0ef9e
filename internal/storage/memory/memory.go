// Package memory provides an in-process CharacterStore.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/cory-johannsen/arena/internal/game/character"
	"github.com/cory-johannsen/arena/internal/game/ruleset"
	"github.com/cory-johannsen/arena/internal/storage"
)

// Store is a map-backed CharacterStore. The zero value is not usable; call New.
type Store struct {
	mu       sync.RWMutex
	records  map[string]character.Record
	balance  int
	unlocked map[string]struct{}
	now      func() time.Time
}

// New returns an empty Store. A nil clock defaults to time.Now.
func New(clock func() time.Time) *Store {
	if clock == nil {
		clock = time.Now
	}
	return &Store{
		records:  make(map[string]character.Record),
		unlocked: make(map[string]struct{}),
		now:      clock,
	}
}

// List returns every character ordered by UpdatedAt descending.
func (s *Store) List(_ context.Context) ([]character.Record, error) {
	s.mu.RLock()
	out := make([]character.Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// Get returns the record with id.
func (s *Store) Get(_ context.Context, id string) (character.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return character.Record{}, storage.ErrCharacterNotFound
	}
	return r, nil
}

// Create builds and stores a new character.
func (s *Store) Create(_ context.Context, name string, race ruleset.Race) (character.Record, error) {
	rec, err := character.Build(name, race, s.now())
	if err != nil {
		return character.Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec
	return rec, nil
}

// Save overwrites an existing record.
func (s *Store) Save(_ context.Context, rec character.Record) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("saving character: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.ID]; !ok {
		return storage.ErrCharacterNotFound
	}
	s.records[rec.ID] = rec
	return nil
}

// Delete removes the record with id.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return storage.ErrCharacterNotFound
	}
	delete(s.records, id)
	return nil
}

// GlobalCurrency returns the global balance.
func (s *Store) GlobalCurrency(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balance, nil
}

// AddGlobalCurrency credits the global wallet.
func (s *Store) AddGlobalCurrency(_ context.Context, amount int) (int, error) {
	if amount < 0 {
		return 0, storage.ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balance += amount
	return s.balance, nil
}

// SpendGlobalCurrency debits the global wallet all-or-nothing.
func (s *Store) SpendGlobalCurrency(_ context.Context, amount int) (int, error) {
	if amount < 0 {
		return 0, storage.ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.balance < amount {
		return s.balance, storage.ErrInsufficientCurrency
	}
	s.balance -= amount
	return s.balance, nil
}

// UnlockedItems returns the unlocked item ids in lexical order.
func (s *Store) UnlockedItems(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.unlocked))
	for id := range s.unlocked {
		out = append(out, id)
	}
	slices.Sort(out)
	return out, nil
}

// UnlockItem marks itemID unlocked.
func (s *Store) UnlockItem(_ context.Context, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unlocked[itemID] = struct{}{}
	return nil
}

// PurchaseItem spends price and unlocks itemID under one lock.
func (s *Store) PurchaseItem(_ context.Context, itemID string, price int) (int, error) {
	if price < 0 {
		return 0, storage.ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.unlocked[itemID]; ok {
		return s.balance, storage.ErrAlreadyUnlocked
	}
	if s.balance < price {
		return s.balance, storage.ErrInsufficientCurrency
	}
	s.balance -= price
	s.unlocked[itemID] = struct{}{}
	return s.balance, nil
}
