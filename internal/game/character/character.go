package character

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/cory-johannsen/arena/internal/game/progression"
)

// LevelUpResult describes the effect of one experience intake.
type LevelUpResult struct {
	LeveledUp           bool              `json:"leveled_up"`
	LevelsGained        int               `json:"levels_gained"`
	NewLevel            int               `json:"new_level"`
	Gains               progression.Gains `json:"gains"`
	AvailableStatPoints int               `json:"available_stat_points"`
}

// RegenResult describes one regeneration pass.
type RegenResult struct {
	// Cycles is the number of whole intervals elapsed; 0 means the pass was skipped.
	Cycles         int
	HealthRestored int
	ManaRestored   int
}

// Changed reports whether any pool was raised.
func (r RegenResult) Changed() bool {
	return r.HealthRestored > 0 || r.ManaRestored > 0
}

// Saver persists a character record.
type Saver interface {
	Save(ctx context.Context, rec Record) error
}

// Character owns one Record for the duration of a session. Every mutation goes
// through its methods, which serialize on an internal mutex and refresh UpdatedAt.
type Character struct {
	mu  sync.Mutex
	rec Record
	now func() time.Time

	// persistMu orders Persist calls so saves reach the store in snapshot order.
	persistMu sync.Mutex
}

// New wraps rec in a Character. A nil clock defaults to time.Now.
//
// Precondition: rec must pass Validate.
// Postcondition: Returns a Character or an error wrapping ErrCorruptRecord.
func New(rec Record, clock func() time.Time) (*Character, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = time.Now
	}
	return &Character{rec: rec, now: clock}, nil
}

// ID returns the immutable character id.
func (c *Character) ID() string {
	return c.rec.ID
}

// Snapshot returns a copy of the current record.
func (c *Character) Snapshot() Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rec
}

// Persist snapshots the record and saves it. Concurrent Persist calls are
// serialized across both steps, so the last save to complete always carries the
// newest snapshot.
//
// Postcondition: Returns the snapshot handed to saver, even when Save fails.
func (c *Character) Persist(ctx context.Context, saver Saver) (Record, error) {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()
	rec := c.Snapshot()
	return rec, saver.Save(ctx, rec)
}

// IsIncapacitated reports whether the character is at zero health.
func (c *Character) IsIncapacitated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rec.Health == 0
}

// Restore refills health and mana to their maximums.
func (c *Character) Restore() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.restoreLocked()
	c.touchLocked()
}

// ApplyIncomingDamage lowers health by amount, flooring at zero. Negative amounts
// are ignored.
//
// Postcondition: Returns true iff health is zero afterwards.
func (c *Character) ApplyIncomingDamage(amount int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if amount > 0 {
		c.rec.Health -= min(amount, c.rec.Health)
		c.touchLocked()
	}
	return c.rec.Health == 0
}

// GainExperience is the only way experience and level change. Gains for every level
// crossed are applied at once from the fixed level-up profile, and any level-up
// heals the character to full.
//
// Postcondition: Experience < ExperienceRequired(Level).
func (c *Character) GainExperience(amount int) LevelUpResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	g := progression.GrantExperience(c.rec.Level, c.rec.Experience, amount)
	c.rec.Level = g.NewLevel
	c.rec.Experience = g.RemainingExperience
	res := LevelUpResult{NewLevel: g.NewLevel}
	if g.LevelsGained > 0 {
		gains := c.rec.LevelUp.GainsForLevels(g.LevelsGained)
		c.rec.MaxHealth += gains.Health
		c.rec.Health += gains.Health
		c.rec.MaxMana += gains.Mana
		c.rec.Mana += gains.Mana
		c.rec.Damage += gains.Damage
		c.rec.AvailableStatPoints += gains.StatPoints
		c.restoreLocked()
		res.LeveledUp = true
		res.LevelsGained = g.LevelsGained
		res.Gains = gains
	}
	res.AvailableStatPoints = c.rec.AvailableStatPoints
	c.touchLocked()
	return res
}

// AllocateStatPoint spends one stat point on kind, raising it by the level-up
// profile's gain for that stat.
//
// Postcondition: On error nothing is mutated; on success exactly one point moved
// from available to spent.
func (c *Character) AllocateStatPoint(kind progression.StatKind) (progression.StatGain, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	amount, err := c.rec.LevelUp.GainFor(kind)
	if err != nil {
		return progression.StatGain{}, err
	}
	if c.rec.AvailableStatPoints <= 0 {
		return progression.StatGain{}, progression.ErrNoPointsAvailable
	}
	c.rec.AvailableStatPoints--
	c.rec.SpentStatPoints++
	switch kind {
	case progression.StatHealth:
		c.rec.MaxHealth += amount
		c.rec.Health += amount
	case progression.StatMana:
		c.rec.MaxMana += amount
		c.rec.Mana += amount
	case progression.StatDamage:
		c.rec.Damage += amount
	}
	c.touchLocked()
	return progression.StatGain{Kind: kind, Amount: amount}, nil
}

// AddPersonalCurrency credits the character's own wallet. Non-positive amounts are ignored.
func (c *Character) AddPersonalCurrency(amount int) {
	if amount <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rec.PersonalCurrency += amount
	c.touchLocked()
}

// Regenerate restores pools for every whole interval elapsed since LastRegenAt.
// When at least one interval elapsed, LastRegenAt is set to now; the fractional
// remainder is dropped rather than carried. An incapacitated character does not
// regenerate; only Restore brings it back.
//
// Precondition: interval > 0.
// Postcondition: 0 <= Health <= MaxHealth and 0 <= Mana <= MaxMana.
func (c *Character) Regenerate(now time.Time, interval time.Duration) RegenResult {
	if interval <= 0 {
		panic("character: Regenerate called with non-positive interval")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	elapsed := now.Sub(c.rec.LastRegenAt)
	if elapsed < interval {
		return RegenResult{}
	}
	cycles := int(min(int64(elapsed/interval), int64(math.MaxInt)))
	res := RegenResult{Cycles: cycles}
	c.rec.LastRegenAt = now.UTC()
	if c.rec.Health == 0 {
		return res
	}
	res.HealthRestored = regenAmount(c.rec.Health, c.rec.MaxHealth, c.rec.HealthRegenPerSecond, cycles)
	res.ManaRestored = regenAmount(c.rec.Mana, c.rec.MaxMana, c.rec.ManaRegenPerSecond, cycles)
	c.rec.Health += res.HealthRestored
	c.rec.Mana += res.ManaRestored
	if res.Changed() {
		c.touchLocked()
	}
	return res
}

// regenAmount returns how much of rate × cycles fits below maximum.
func regenAmount(current, maximum, rate, cycles int) int {
	missing := maximum - current
	if missing <= 0 || rate <= 0 {
		return 0
	}
	if cycles >= (missing+rate-1)/rate {
		return missing
	}
	return rate * cycles
}

func (c *Character) restoreLocked() {
	c.rec.Health = c.rec.MaxHealth
	c.rec.Mana = c.rec.MaxMana
}

func (c *Character) touchLocked() {
	c.rec.UpdatedAt = c.now().UTC()
}
