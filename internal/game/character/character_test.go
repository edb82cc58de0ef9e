package character_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/arena/internal/game/character"
	"github.com/cory-johannsen/arena/internal/game/progression"
	"github.com/cory-johannsen/arena/internal/game/ruleset"
)

var epoch = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func human() ruleset.Race {
	return ruleset.Race{
		ID: "human", Name: "Human",
		BaseHealth: 100, BaseMana: 50, BaseDamage: 10,
		Bonuses: ruleset.Bonuses{HealthRegen: 5, ManaRegen: 2},
		LevelUp: &progression.LevelUpConfig{HealthGain: 25, ManaGain: 15, DamageGain: 5, StatPointsPerLevel: 5},
	}
}

func newCharacter(t *testing.T) (*character.Character, *time.Time) {
	t.Helper()
	rec, err := character.Build("Hero", human(), epoch)
	require.NoError(t, err)
	clock := epoch
	c, err := character.New(rec, func() time.Time { return clock })
	require.NoError(t, err)
	return c, &clock
}

func TestNew_RejectsCorruptRecord(t *testing.T) {
	rec, err := character.Build("Hero", human(), epoch)
	require.NoError(t, err)
	rec.Health = rec.MaxHealth + 1
	_, err = character.New(rec, nil)
	assert.ErrorIs(t, err, character.ErrCorruptRecord)
}

func TestApplyIncomingDamage(t *testing.T) {
	c, clock := newCharacter(t)
	*clock = epoch.Add(time.Minute)

	assert.False(t, c.ApplyIncomingDamage(30))
	assert.Equal(t, 70, c.Snapshot().Health)
	assert.Equal(t, epoch.Add(time.Minute), c.Snapshot().UpdatedAt)

	assert.True(t, c.ApplyIncomingDamage(500))
	assert.Equal(t, 0, c.Snapshot().Health)
	assert.True(t, c.IsIncapacitated())

	c.Restore()
	assert.False(t, c.IsIncapacitated())
	assert.Equal(t, 100, c.Snapshot().Health)
}

func TestApplyIncomingDamage_NegativeIgnored(t *testing.T) {
	c, _ := newCharacter(t)
	before := c.Snapshot()
	assert.False(t, c.ApplyIncomingDamage(-10))
	assert.Equal(t, before, c.Snapshot())
}

func TestGainExperience_EndToEnd45(t *testing.T) {
	c, _ := newCharacter(t)
	c.ApplyIncomingDamage(60)

	res := c.GainExperience(45)

	assert.True(t, res.LeveledUp)
	assert.Equal(t, 2, res.LevelsGained)
	assert.Equal(t, 3, res.NewLevel)
	assert.Equal(t, 10, res.AvailableStatPoints)
	assert.Equal(t, progression.Gains{Health: 50, Mana: 30, Damage: 10, StatPoints: 10}, res.Gains)

	rec := c.Snapshot()
	assert.Equal(t, 3, rec.Level)
	assert.Equal(t, 1, rec.Experience)
	assert.Equal(t, 150, rec.MaxHealth)
	assert.Equal(t, 150, rec.Health, "level-up heals to full")
	assert.Equal(t, 80, rec.Mana)
	assert.Equal(t, 20, rec.Damage)
}

func TestGainExperience_NoLevel(t *testing.T) {
	c, _ := newCharacter(t)
	c.ApplyIncomingDamage(10)
	res := c.GainExperience(19)
	assert.False(t, res.LeveledUp)
	assert.Equal(t, 1, res.NewLevel)
	assert.Equal(t, 19, c.Snapshot().Experience)
	assert.Equal(t, 90, c.Snapshot().Health)
}

func TestAllocateStatPoint(t *testing.T) {
	c, _ := newCharacter(t)
	c.GainExperience(20)

	g, err := c.AllocateStatPoint(progression.StatHealth)
	require.NoError(t, err)
	assert.Equal(t, progression.StatGain{Kind: progression.StatHealth, Amount: 25}, g)

	g, err = c.AllocateStatPoint(progression.StatDamage)
	require.NoError(t, err)
	assert.Equal(t, 5, g.Amount)

	rec := c.Snapshot()
	assert.Equal(t, 3, rec.AvailableStatPoints)
	assert.Equal(t, 2, rec.SpentStatPoints)
	assert.Equal(t, 150, rec.MaxHealth)
	assert.Equal(t, 150, rec.Health)
	assert.Equal(t, 20, rec.Damage)
}

func TestAllocateStatPoint_NoPointsLeavesRecordUntouched(t *testing.T) {
	c, _ := newCharacter(t)
	before := c.Snapshot()
	_, err := c.AllocateStatPoint(progression.StatMana)
	assert.ErrorIs(t, err, progression.ErrNoPointsAvailable)
	assert.Equal(t, before, c.Snapshot())
}

func TestAllocateStatPoint_InvalidKindLeavesRecordUntouched(t *testing.T) {
	c, _ := newCharacter(t)
	c.GainExperience(20)
	before := c.Snapshot()
	_, err := c.AllocateStatPoint(progression.StatKind(9))
	assert.ErrorIs(t, err, progression.ErrInvalidStatKind)
	assert.Equal(t, before, c.Snapshot())
}

func TestAddPersonalCurrency(t *testing.T) {
	c, _ := newCharacter(t)
	c.AddPersonalCurrency(4)
	c.AddPersonalCurrency(-3)
	c.AddPersonalCurrency(0)
	assert.Equal(t, 4, c.Snapshot().PersonalCurrency)
}

func TestRegenerate_ThreeCycles(t *testing.T) {
	rec, err := character.Build("Hero", human(), epoch)
	require.NoError(t, err)
	rec.Health = 50
	now := epoch.Add(3000 * time.Millisecond)
	c, err := character.New(rec, func() time.Time { return now })
	require.NoError(t, err)

	res := c.Regenerate(now, time.Second)

	assert.Equal(t, 3, res.Cycles)
	assert.Equal(t, 15, res.HealthRestored)
	assert.Equal(t, 0, res.ManaRestored)
	assert.Equal(t, 65, c.Snapshot().Health)
	assert.Equal(t, now, c.Snapshot().LastRegenAt)
}

func TestRegenerate_BelowIntervalIsNoop(t *testing.T) {
	c, _ := newCharacter(t)
	c.ApplyIncomingDamage(10)
	before := c.Snapshot()
	res := c.Regenerate(epoch.Add(999*time.Millisecond), time.Second)
	assert.Zero(t, res.Cycles)
	assert.Equal(t, before, c.Snapshot())
}

func TestRegenerate_DropsRemainder(t *testing.T) {
	c, _ := newCharacter(t)
	c.ApplyIncomingDamage(50)
	now := epoch.Add(2500 * time.Millisecond)
	res := c.Regenerate(now, time.Second)
	assert.Equal(t, 2, res.Cycles)
	assert.Equal(t, now, c.Snapshot().LastRegenAt)
}

func TestRegenerate_LongAbsenceClampsToMax(t *testing.T) {
	c, _ := newCharacter(t)
	c.ApplyIncomingDamage(99)
	c.Regenerate(epoch.Add(24*365*time.Hour), time.Millisecond)
	rec := c.Snapshot()
	assert.Equal(t, rec.MaxHealth, rec.Health)
	assert.Equal(t, rec.MaxMana, rec.Mana)
}

func TestRegenerate_PanicsOnNonPositiveInterval(t *testing.T) {
	c, _ := newCharacter(t)
	assert.Panics(t, func() { c.Regenerate(epoch, 0) })
}

// Property: stat points are conserved across allocations and level-ups.
func TestProperty_StatPointConservation(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		rec, err := character.Build("Hero", human(), epoch)
		if err != nil {
			rt.Fatal(err)
		}
		c, err := character.New(rec, func() time.Time { return epoch })
		if err != nil {
			rt.Fatal(err)
		}
		granted := 0
		spent := 0
		steps := rapid.IntRange(0, 40).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			if rapid.Bool().Draw(rt, "gain") {
				res := c.GainExperience(rapid.IntRange(0, 200).Draw(rt, "xp"))
				granted += res.Gains.StatPoints
				continue
			}
			kind := progression.StatKind(rapid.IntRange(0, 2).Draw(rt, "kind"))
			if _, err := c.AllocateStatPoint(kind); err == nil {
				spent++
			}
		}
		snap := c.Snapshot()
		if snap.TotalStatPoints() != granted {
			rt.Fatalf("total %d != granted %d", snap.TotalStatPoints(), granted)
		}
		if snap.SpentStatPoints != spent {
			rt.Fatalf("spent %d != %d", snap.SpentStatPoints, spent)
		}
		if err := snap.Validate(); err != nil {
			rt.Fatal(err)
		}
	})
}

// Property: regeneration keeps pools within [0, max].
func TestProperty_RegenerateBounded(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		rec, _ := character.Build("Hero", human(), epoch)
		rec.Health = rapid.IntRange(0, rec.MaxHealth).Draw(rt, "health")
		rec.Mana = rapid.IntRange(0, rec.MaxMana).Draw(rt, "mana")
		c, err := character.New(rec, nil)
		if err != nil {
			rt.Fatal(err)
		}
		ms := rapid.Int64Range(0, 1<<40).Draw(rt, "elapsed_ms")
		c.Regenerate(epoch.Add(time.Duration(ms)*time.Millisecond), time.Second)
		snap := c.Snapshot()
		if snap.Health < rec.Health || snap.Health > snap.MaxHealth {
			rt.Fatalf("health %d out of [%d, %d]", snap.Health, rec.Health, snap.MaxHealth)
		}
		if snap.Mana < rec.Mana || snap.Mana > snap.MaxMana {
			rt.Fatalf("mana %d out of [%d, %d]", snap.Mana, rec.Mana, snap.MaxMana)
		}
	})
}

func TestCharacter_ConcurrentMutation(t *testing.T) {
	c, _ := newCharacter(t)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.ApplyIncomingDamage(1)
		}()
		go func() {
			defer wg.Done()
			c.AddPersonalCurrency(1)
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, c.Snapshot().Health)
	assert.Equal(t, 50, c.Snapshot().PersonalCurrency)
}

func TestRegenerate_IncapacitatedStaysDown(t *testing.T) {
	c, _ := newCharacter(t)
	c.ApplyIncomingDamage(1000)
	now := epoch.Add(5 * time.Second)

	res := c.Regenerate(now, time.Second)

	assert.Equal(t, 5, res.Cycles)
	assert.False(t, res.Changed())
	assert.True(t, c.IsIncapacitated())
	assert.Equal(t, now, c.Snapshot().LastRegenAt)

	c.Restore()
	assert.False(t, c.IsIncapacitated())
}

// gatedSaver holds its first Save until release is closed.
type gatedSaver struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once

	mu    sync.Mutex
	saved []character.Record
}

func newGatedSaver() *gatedSaver {
	return &gatedSaver{entered: make(chan struct{}), release: make(chan struct{})}
}

func (s *gatedSaver) Save(_ context.Context, rec character.Record) error {
	first := false
	s.once.Do(func() { first = true })
	if first {
		close(s.entered)
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, rec)
	return nil
}

func (s *gatedSaver) last() character.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved[len(s.saved)-1]
}

func TestPersist_LastSaveCarriesNewestSnapshot(t *testing.T) {
	c, _ := newCharacter(t)
	c.ApplyIncomingDamage(30)
	sv := newGatedSaver()
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		rec, err := c.Persist(ctx, sv)
		assert.NoError(t, err)
		assert.Equal(t, 70, rec.Health)
	}()
	<-sv.entered

	c.Regenerate(epoch.Add(time.Second), time.Second)
	go func() {
		defer wg.Done()
		_, err := c.Persist(ctx, sv)
		assert.NoError(t, err)
	}()
	close(sv.release)
	wg.Wait()

	assert.Equal(t, 75, c.Snapshot().Health)
	assert.Equal(t, c.Snapshot(), sv.last())
}
