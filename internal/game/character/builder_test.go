package character_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/arena/internal/game/character"
	"github.com/cory-johannsen/arena/internal/game/progression"
	"github.com/cory-johannsen/arena/internal/game/ruleset"
)

func TestBuild_FromRace(t *testing.T) {
	rec, err := character.Build("  Aria  ", human(), epoch)
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "Aria", rec.Name)
	assert.Equal(t, "human", rec.RaceID)
	assert.Equal(t, "Human", rec.Race)
	assert.Equal(t, 1, rec.Level)
	assert.Zero(t, rec.Experience)
	assert.Equal(t, 100, rec.Health)
	assert.Equal(t, 100, rec.MaxHealth)
	assert.Equal(t, 50, rec.Mana)
	assert.Equal(t, 10, rec.Damage)
	assert.Equal(t, 5, rec.HealthRegenPerSecond)
	assert.Equal(t, 2, rec.ManaRegenPerSecond)
	assert.Equal(t, epoch, rec.LastRegenAt)
	assert.Equal(t, epoch, rec.CreatedAt)
	assert.NoError(t, rec.Validate())
}

func TestBuild_Defaults(t *testing.T) {
	race := ruleset.Race{ID: "undead", Name: "Undead", BaseHealth: 80}
	rec, err := character.Build("Bones", race, epoch)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.HealthRegenPerSecond)
	assert.Equal(t, 1, rec.ManaRegenPerSecond)
	assert.Equal(t, progression.DefaultLevelUpConfig, rec.LevelUp)
}

func TestBuild_UniqueIDs(t *testing.T) {
	a, err := character.Build("A", human(), epoch)
	require.NoError(t, err)
	b, err := character.Build("A", human(), epoch)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestBuild_RejectsBlankName(t *testing.T) {
	_, err := character.Build("   ", human(), epoch)
	assert.ErrorIs(t, err, character.ErrInvalidName)
}

func TestBuild_RejectsInvalidRace(t *testing.T) {
	_, err := character.Build("Hero", ruleset.Race{ID: "ghost", Name: "Ghost"}, epoch)
	assert.Error(t, err)
}

func TestRecord_Validate(t *testing.T) {
	base, err := character.Build("Hero", human(), epoch)
	require.NoError(t, err)

	cases := map[string]func(r *character.Record){
		"missing id":      func(r *character.Record) { r.ID = "" },
		"level zero":      func(r *character.Record) { r.Level = 0 },
		"xp overflow":     func(r *character.Record) { r.Experience = 20 },
		"negative mana":   func(r *character.Record) { r.Mana = -1 },
		"negative points": func(r *character.Record) { r.SpentStatPoints = -1 },
		"negative wallet": func(r *character.Record) { r.PersonalCurrency = -5 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			r := base
			mutate(&r)
			assert.ErrorIs(t, r.Validate(), character.ErrCorruptRecord)
		})
	}
}
