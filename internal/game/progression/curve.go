// Package progression holds the experience curve and the level-up economy shared by
// every character: how much experience a level costs, how a grant resolves into
// level-ups, and what each level and stat point is worth.
package progression

import "math"

const (
	// BaseExperience is the experience required to advance from level 1.
	BaseExperience = 20
	// GrowthRate is the per-level multiplier applied to BaseExperience.
	GrowthRate = 1.2
)

// ExperienceRequired returns the experience needed to advance from level to level+1:
// floor(20 × 1.2^(level-1)).
//
// Precondition: level >= 1; smaller values are treated as 1.
// Postcondition: Returns a value >= BaseExperience. Results that do not fit an int
// saturate at math.MaxInt.
func ExperienceRequired(level int) int {
	if level < 1 {
		level = 1
	}
	v := math.Floor(BaseExperience * math.Pow(GrowthRate, float64(level-1)))
	if v >= math.MaxInt {
		return math.MaxInt
	}
	return int(v)
}
