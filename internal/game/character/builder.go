package character

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/arena/internal/game/ruleset"
)

// Build constructs a new level 1 Record from a name and race template.
// Pools start full, regeneration rates come from the race bonuses (defaulting to 1/s)
// and the level-up profile is fixed from the race (defaulting to DefaultLevelUpConfig).
//
// Precondition: race must pass Validate.
// Postcondition: Returns a Record that passes Validate, or a non-nil error.
func Build(name string, race ruleset.Race, now time.Time) (Record, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Record{}, ErrInvalidName
	}
	if err := race.Validate(); err != nil {
		return Record{}, fmt.Errorf("building character: %w", err)
	}
	now = now.UTC()
	return Record{
		ID:                   uuid.NewString(),
		Name:                 name,
		RaceID:               race.ID,
		Race:                 race.Name,
		Level:                1,
		MaxHealth:            race.BaseHealth,
		Health:               race.BaseHealth,
		MaxMana:              race.BaseMana,
		Mana:                 race.BaseMana,
		Damage:               race.BaseDamage,
		HealthRegenPerSecond: race.Bonuses.HealthRegenPerSecond(),
		ManaRegenPerSecond:   race.Bonuses.ManaRegenPerSecond(),
		LastRegenAt:          now,
		LevelUp:              race.LevelUpConfig(),
		Bonuses:              race.Bonuses,
		CreatedAt:            now,
		UpdatedAt:            now,
	}, nil
}
