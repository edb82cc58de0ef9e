// Package storetest holds the behavioural contract every CharacterStore must satisfy.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/arena/internal/game/character"
	"github.com/cory-johannsen/arena/internal/game/progression"
	"github.com/cory-johannsen/arena/internal/game/ruleset"
	"github.com/cory-johannsen/arena/internal/storage"
)

// Factory returns an empty store whose creation timestamps come from clock.
type Factory func(t *testing.T, clock func() time.Time) storage.CharacterStore

// Clock is a settable test clock with microsecond precision, the finest resolution
// every backend preserves.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a Clock set to start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start.UTC().Truncate(time.Microsecond)}
}

// Now returns the current clock value.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d).Truncate(time.Microsecond)
}

// Elf is the race fixture used by the contract.
func Elf() ruleset.Race {
	return ruleset.Race{
		ID: "elf", Name: "Elf",
		BaseHealth: 80, BaseMana: 80, BaseDamage: 8,
		Bonuses: ruleset.Bonuses{HealthRegen: 1, ManaRegen: 3},
		LevelUp: &progression.LevelUpConfig{HealthGain: 20, ManaGain: 20, DamageGain: 4, StatPointsPerLevel: 5},
	}
}

// Run executes the CharacterStore contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("CreateThenGet", func(t *testing.T) {
		clock := NewClock(start)
		s := newStore(t, clock.Now)
		ctx := context.Background()

		rec, err := s.Create(ctx, " Lira ", Elf())
		require.NoError(t, err)
		assert.Equal(t, "Lira", rec.Name)
		assert.Equal(t, clock.Now(), rec.CreatedAt)

		got, err := s.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, rec, got)
	})

	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t, NewClock(start).Now)
		_, err := s.Get(context.Background(), "00000000-0000-0000-0000-000000000000")
		assert.ErrorIs(t, err, storage.ErrCharacterNotFound)
	})

	t.Run("CreateRejectsBlankName", func(t *testing.T) {
		s := newStore(t, NewClock(start).Now)
		_, err := s.Create(context.Background(), "  ", Elf())
		assert.ErrorIs(t, err, character.ErrInvalidName)
	})

	t.Run("SaveRoundTrip", func(t *testing.T) {
		clock := NewClock(start)
		s := newStore(t, clock.Now)
		ctx := context.Background()

		rec, err := s.Create(ctx, "Lira", Elf())
		require.NoError(t, err)
		clock.Advance(time.Minute)
		c, err := character.New(rec, clock.Now)
		require.NoError(t, err)
		c.GainExperience(45)
		c.ApplyIncomingDamage(30)
		c.AddPersonalCurrency(12)
		_, err = c.AllocateStatPoint(progression.StatMana)
		require.NoError(t, err)

		want := c.Snapshot()
		require.NoError(t, s.Save(ctx, want))
		got, err := s.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("SaveMissing", func(t *testing.T) {
		clock := NewClock(start)
		s := newStore(t, clock.Now)
		rec, err := character.Build("Ghost", Elf(), clock.Now())
		require.NoError(t, err)
		assert.ErrorIs(t, s.Save(context.Background(), rec), storage.ErrCharacterNotFound)
	})

	t.Run("ListMostRecentFirst", func(t *testing.T) {
		clock := NewClock(start)
		s := newStore(t, clock.Now)
		ctx := context.Background()

		a, err := s.Create(ctx, "A", Elf())
		require.NoError(t, err)
		clock.Advance(time.Second)
		b, err := s.Create(ctx, "B", Elf())
		require.NoError(t, err)
		clock.Advance(time.Second)
		_, err = s.Create(ctx, "C", Elf())
		require.NoError(t, err)

		clock.Advance(time.Second)
		a.UpdatedAt = clock.Now()
		require.NoError(t, s.Save(ctx, a))

		list, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, []string{"A", "C", "B"}, []string{list[0].Name, list[1].Name, list[2].Name})
		assert.Equal(t, b, list[2])
	})

	t.Run("ListEmpty", func(t *testing.T) {
		s := newStore(t, NewClock(start).Now)
		list, err := s.List(context.Background())
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("Delete", func(t *testing.T) {
		s := newStore(t, NewClock(start).Now)
		ctx := context.Background()
		rec, err := s.Create(ctx, "Lira", Elf())
		require.NoError(t, err)

		require.NoError(t, s.Delete(ctx, rec.ID))
		_, err = s.Get(ctx, rec.ID)
		assert.ErrorIs(t, err, storage.ErrCharacterNotFound)
		assert.ErrorIs(t, s.Delete(ctx, rec.ID), storage.ErrCharacterNotFound)
	})

	t.Run("GlobalCurrency", func(t *testing.T) {
		s := newStore(t, NewClock(start).Now)
		ctx := context.Background()

		bal, err := s.GlobalCurrency(ctx)
		require.NoError(t, err)
		assert.Zero(t, bal)

		bal, err = s.AddGlobalCurrency(ctx, 100)
		require.NoError(t, err)
		assert.Equal(t, 100, bal)

		bal, err = s.SpendGlobalCurrency(ctx, 40)
		require.NoError(t, err)
		assert.Equal(t, 60, bal)

		_, err = s.SpendGlobalCurrency(ctx, 61)
		assert.ErrorIs(t, err, storage.ErrInsufficientCurrency)
		bal, err = s.GlobalCurrency(ctx)
		require.NoError(t, err)
		assert.Equal(t, 60, bal, "failed spend must not debit")

		bal, err = s.SpendGlobalCurrency(ctx, 60)
		require.NoError(t, err)
		assert.Zero(t, bal)

		_, err = s.AddGlobalCurrency(ctx, -1)
		assert.ErrorIs(t, err, storage.ErrInvalidAmount)
		_, err = s.SpendGlobalCurrency(ctx, -1)
		assert.ErrorIs(t, err, storage.ErrInvalidAmount)
	})

	t.Run("ConcurrentSpendNeverOverdraws", func(t *testing.T) {
		s := newStore(t, NewClock(start).Now)
		ctx := context.Background()
		_, err := s.AddGlobalCurrency(ctx, 50)
		require.NoError(t, err)

		var wg sync.WaitGroup
		var mu sync.Mutex
		succeeded := 0
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := s.SpendGlobalCurrency(ctx, 10); err == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 5, succeeded)
		bal, err := s.GlobalCurrency(ctx)
		require.NoError(t, err)
		assert.Zero(t, bal)
	})

	t.Run("UnlockAndPurchase", func(t *testing.T) {
		s := newStore(t, NewClock(start).Now)
		ctx := context.Background()

		require.NoError(t, s.UnlockItem(ctx, "human"))
		require.NoError(t, s.UnlockItem(ctx, "human"))

		_, err := s.PurchaseItem(ctx, "elf", 150)
		assert.ErrorIs(t, err, storage.ErrInsufficientCurrency)

		_, err = s.AddGlobalCurrency(ctx, 200)
		require.NoError(t, err)
		bal, err := s.PurchaseItem(ctx, "elf", 150)
		require.NoError(t, err)
		assert.Equal(t, 50, bal)

		_, err = s.PurchaseItem(ctx, "elf", 0)
		assert.ErrorIs(t, err, storage.ErrAlreadyUnlocked)
		bal, err = s.GlobalCurrency(ctx)
		require.NoError(t, err)
		assert.Equal(t, 50, bal)

		items, err := s.UnlockedItems(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"human", "elf"}, items)
	})
}
