package ruleset

import (
	"fmt"

	"github.com/cory-johannsen/arena/internal/game/progression"
)

// DefaultRegenPerSecond is used for a regeneration bonus that is missing or not positive.
const DefaultRegenPerSecond = 1

// Bonuses are the passive race bonuses carried onto every character of the race.
type Bonuses struct {
	HealthRegen int `yaml:"health_regen" json:"health_regen"`
	ManaRegen   int `yaml:"mana_regen" json:"mana_regen"`
}

// HealthRegenPerSecond returns the health regeneration rate, defaulting to 1.
func (b Bonuses) HealthRegenPerSecond() int {
	if b.HealthRegen <= 0 {
		return DefaultRegenPerSecond
	}
	return b.HealthRegen
}

// ManaRegenPerSecond returns the mana regeneration rate, defaulting to 1.
func (b Bonuses) ManaRegenPerSecond() int {
	if b.ManaRegen <= 0 {
		return DefaultRegenPerSecond
	}
	return b.ManaRegen
}

// Race is the immutable base-stat and bonus profile chosen at character creation.
type Race struct {
	ID          string                     `yaml:"id" json:"id"`
	Name        string                     `yaml:"name" json:"name"`
	Description string                     `yaml:"description" json:"description"`
	BaseHealth  int                        `yaml:"base_health" json:"base_health"`
	BaseMana    int                        `yaml:"base_mana" json:"base_mana"`
	BaseDamage  int                        `yaml:"base_damage" json:"base_damage"`
	Bonuses     Bonuses                    `yaml:"bonuses" json:"bonuses"`
	LevelUp     *progression.LevelUpConfig `yaml:"level_up" json:"level_up,omitempty"`
}

// LevelUpConfig returns the race's level-up profile, or the default profile when
// the race does not declare one.
func (r Race) LevelUpConfig() progression.LevelUpConfig {
	if r.LevelUp == nil || r.LevelUp.IsZero() {
		return progression.DefaultLevelUpConfig
	}
	return *r.LevelUp
}

// Validate checks that the race can seed a character.
//
// Postcondition: Returns nil iff ID and Name are non-empty, BaseHealth >= 1 and
// BaseMana, BaseDamage are >= 0.
func (r Race) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("race: id must not be empty")
	}
	if r.Name == "" {
		return fmt.Errorf("race %q: name must not be empty", r.ID)
	}
	if r.BaseHealth < 1 {
		return fmt.Errorf("race %q: base_health must be >= 1", r.ID)
	}
	if r.BaseMana < 0 {
		return fmt.Errorf("race %q: base_mana must be >= 0", r.ID)
	}
	if r.BaseDamage < 0 {
		return fmt.Errorf("race %q: base_damage must be >= 0", r.ID)
	}
	return nil
}

// LoadRaces reads all .yaml files in dir and parses each as a Race.
//
// Precondition: dir must be a readable directory path.
// Postcondition: Returns all parsed and validated races or a non-nil error.
func LoadRaces(dir string) ([]*Race, error) {
	races, err := loadDir[Race](dir, "race")
	if err != nil {
		return nil, err
	}
	for _, r := range races {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}
	return races, nil
}
