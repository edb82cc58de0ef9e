// Package storage defines the CharacterStore contract shared by every persistence backend.
package storage

import (
	"context"
	"errors"

	"github.com/cory-johannsen/arena/internal/game/character"
	"github.com/cory-johannsen/arena/internal/game/ruleset"
)

// ErrCharacterNotFound is returned when a character lookup yields no results.
var ErrCharacterNotFound = errors.New("character not found")

// ErrInsufficientCurrency is returned when a spend exceeds the global balance.
// No partial spend takes place.
var ErrInsufficientCurrency = errors.New("insufficient currency")

// ErrInvalidAmount is returned for a negative currency amount.
var ErrInvalidAmount = errors.New("currency amount must not be negative")

// ErrAlreadyUnlocked is returned when purchasing an item that is already unlocked.
var ErrAlreadyUnlocked = errors.New("item already unlocked")

// CharacterStore persists character records, the global wallet and shop unlocks.
//
// Implementations MUST be safe for concurrent use.
type CharacterStore interface {
	// List returns every character, most recently updated first.
	List(ctx context.Context) ([]character.Record, error)
	// Get returns the record with id or ErrCharacterNotFound.
	Get(ctx context.Context, id string) (character.Record, error)
	// Create builds and inserts a new level 1 character of race.
	Create(ctx context.Context, name string, race ruleset.Race) (character.Record, error)
	// Save overwrites an existing record or returns ErrCharacterNotFound.
	Save(ctx context.Context, rec character.Record) error
	// Delete removes the record with id or returns ErrCharacterNotFound.
	Delete(ctx context.Context, id string) error

	// GlobalCurrency returns the global wallet balance.
	GlobalCurrency(ctx context.Context) (int, error)
	// AddGlobalCurrency credits the global wallet and returns the new balance.
	AddGlobalCurrency(ctx context.Context, amount int) (int, error)
	// SpendGlobalCurrency debits the wallet all-or-nothing and returns the new balance,
	// or ErrInsufficientCurrency leaving the balance unchanged.
	SpendGlobalCurrency(ctx context.Context, amount int) (int, error)

	// UnlockedItems returns the ids of every unlocked shop item.
	UnlockedItems(ctx context.Context) ([]string, error)
	// UnlockItem marks itemID unlocked without charging; it is idempotent.
	UnlockItem(ctx context.Context, itemID string) error
	// PurchaseItem atomically spends price and unlocks itemID, returning the new
	// balance. It fails with ErrAlreadyUnlocked or ErrInsufficientCurrency and then
	// changes nothing.
	PurchaseItem(ctx context.Context, itemID string, price int) (int, error)
}
