// Package character defines the character record and the aggregate that owns it
// during a session.
package character

import (
	"errors"
	"fmt"
	"time"

	"github.com/cory-johannsen/arena/internal/game/progression"
	"github.com/cory-johannsen/arena/internal/game/ruleset"
)

// ErrCorruptRecord is returned when a stored record violates a record invariant.
var ErrCorruptRecord = errors.New("corrupt character record")

// ErrRaceLocked is returned when a character is created from a race that has not
// been unlocked.
var ErrRaceLocked = errors.New("race is locked")

// ErrInvalidName is returned when a character name is empty after trimming.
var ErrInvalidName = errors.New("character name must not be empty")

// Record is the persistent state of one character.
//
// ID is assigned at creation and never changes.
type Record struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	RaceID string `json:"race_id"`
	Race   string `json:"race"`

	Level      int `json:"level"`
	Experience int `json:"experience"`

	MaxHealth int `json:"max_health"`
	Health    int `json:"health"`
	MaxMana   int `json:"max_mana"`
	Mana      int `json:"mana"`
	Damage    int `json:"damage"`

	AvailableStatPoints int `json:"available_stat_points"`
	SpentStatPoints     int `json:"spent_stat_points"`

	HealthRegenPerSecond int       `json:"health_regen_per_second"`
	ManaRegenPerSecond   int       `json:"mana_regen_per_second"`
	LastRegenAt          time.Time `json:"last_regen_at"`

	LevelUp progression.LevelUpConfig `json:"level_up"`
	Bonuses ruleset.Bonuses           `json:"bonuses"`

	PersonalCurrency int `json:"personal_currency"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate reports the first record invariant r violates, wrapped in ErrCorruptRecord.
func (r Record) Validate() error {
	switch {
	case r.ID == "":
		return fmt.Errorf("%w: missing id", ErrCorruptRecord)
	case r.Name == "":
		return fmt.Errorf("%w %s: missing name", ErrCorruptRecord, r.ID)
	case r.RaceID == "":
		return fmt.Errorf("%w %s: missing race", ErrCorruptRecord, r.ID)
	case r.Level < 1:
		return fmt.Errorf("%w %s: level %d < 1", ErrCorruptRecord, r.ID, r.Level)
	case r.Experience < 0 || r.Experience >= progression.ExperienceRequired(r.Level):
		return fmt.Errorf("%w %s: experience %d out of range for level %d", ErrCorruptRecord, r.ID, r.Experience, r.Level)
	case r.Health < 0 || r.Health > r.MaxHealth:
		return fmt.Errorf("%w %s: health %d/%d", ErrCorruptRecord, r.ID, r.Health, r.MaxHealth)
	case r.Mana < 0 || r.Mana > r.MaxMana:
		return fmt.Errorf("%w %s: mana %d/%d", ErrCorruptRecord, r.ID, r.Mana, r.MaxMana)
	case r.Damage < 0:
		return fmt.Errorf("%w %s: negative damage", ErrCorruptRecord, r.ID)
	case r.AvailableStatPoints < 0 || r.SpentStatPoints < 0:
		return fmt.Errorf("%w %s: negative stat points", ErrCorruptRecord, r.ID)
	case r.HealthRegenPerSecond < 0 || r.ManaRegenPerSecond < 0:
		return fmt.Errorf("%w %s: negative regeneration", ErrCorruptRecord, r.ID)
	case r.PersonalCurrency < 0:
		return fmt.Errorf("%w %s: negative currency", ErrCorruptRecord, r.ID)
	}
	return nil
}

// TotalStatPoints returns every stat point ever granted to the character.
func (r Record) TotalStatPoints() int {
	return r.AvailableStatPoints + r.SpentStatPoints
}
