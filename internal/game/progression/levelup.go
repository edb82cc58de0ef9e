package progression

// LevelUpConfig is the per-level gain profile a character receives from its race.
// It is fixed at character creation.
type LevelUpConfig struct {
	HealthGain         int `yaml:"health_gain" json:"health_gain"`
	ManaGain           int `yaml:"mana_gain" json:"mana_gain"`
	DamageGain         int `yaml:"damage_gain" json:"damage_gain"`
	StatPointsPerLevel int `yaml:"stat_points" json:"stat_points"`
}

// DefaultLevelUpConfig is applied to races that do not declare their own profile.
var DefaultLevelUpConfig = LevelUpConfig{
	HealthGain:         25,
	ManaGain:           15,
	DamageGain:         5,
	StatPointsPerLevel: 5,
}

// IsZero reports whether no gain is configured at all.
func (c LevelUpConfig) IsZero() bool {
	return c == LevelUpConfig{}
}

// Gains is the cumulative stat increase granted for one or more levels.
type Gains struct {
	Health     int `json:"health"`
	Mana       int `json:"mana"`
	Damage     int `json:"damage"`
	StatPoints int `json:"stat_points"`
}

// GainsForLevels scales every configured gain linearly by levels.
//
// Precondition: levels >= 0.
// Postcondition: Each field equals the matching config gain × levels.
func (c LevelUpConfig) GainsForLevels(levels int) Gains {
	return Gains{
		Health:     c.HealthGain * levels,
		Mana:       c.ManaGain * levels,
		Damage:     c.DamageGain * levels,
		StatPoints: c.StatPointsPerLevel * levels,
	}
}

// Grant is the outcome of applying an experience award to a (level, experience) pair.
type Grant struct {
	NewLevel            int
	RemainingExperience int
	LevelsGained        int
}

// GrantExperience adds amount to experience and resolves every level-up it pays for.
// Thresholds are taken from ExperienceRequired for the level being left, so a single
// grant may cross several levels.
//
// Precondition: level >= 1; experience >= 0; amount >= 0 (negative amounts count as 0).
// Postcondition: RemainingExperience < ExperienceRequired(NewLevel);
// NewLevel == level + LevelsGained.
func GrantExperience(level, experience, amount int) Grant {
	if level < 1 {
		level = 1
	}
	if amount < 0 {
		amount = 0
	}
	total := experience + amount
	g := Grant{NewLevel: level}
	for total >= ExperienceRequired(g.NewLevel) {
		total -= ExperienceRequired(g.NewLevel)
		g.NewLevel++
		g.LevelsGained++
	}
	g.RemainingExperience = total
	return g
}
