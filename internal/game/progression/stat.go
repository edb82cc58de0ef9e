package progression

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoPointsAvailable is returned when a stat point is spent with none available.
var ErrNoPointsAvailable = errors.New("no stat points available")

// ErrInvalidStatKind is returned for a stat name or kind outside health, mana and damage.
var ErrInvalidStatKind = errors.New("invalid stat kind")

// StatKind names a stat that can receive allocated points.
type StatKind int

const (
	StatHealth StatKind = iota
	StatMana
	StatDamage
)

// StatKinds lists every allocatable stat in display order.
var StatKinds = []StatKind{StatHealth, StatMana, StatDamage}

// String returns the lower-case stat name used on the wire.
func (k StatKind) String() string {
	switch k {
	case StatHealth:
		return "health"
	case StatMana:
		return "mana"
	case StatDamage:
		return "damage"
	default:
		return fmt.Sprintf("StatKind(%d)", int(k))
	}
}

// MarshalText encodes k by name.
func (k StatKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStatKind, int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a stat name accepted by ParseStatKind.
func (k *StatKind) UnmarshalText(text []byte) error {
	parsed, err := ParseStatKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Valid reports whether k is one of the declared kinds.
func (k StatKind) Valid() bool {
	return k >= StatHealth && k <= StatDamage
}

// ParseStatKind maps a stat name (case-insensitive) to its kind.
//
// Postcondition: Returns ErrInvalidStatKind for unknown names.
func ParseStatKind(name string) (StatKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "health", "hp":
		return StatHealth, nil
	case "mana", "mp":
		return StatMana, nil
	case "damage", "dmg":
		return StatDamage, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidStatKind, name)
	}
}

// StatGain records the stat a point was spent on and how much it grew.
type StatGain struct {
	Kind   StatKind `json:"kind"`
	Amount int      `json:"amount"`
}

// GainFor returns the per-point increase for kind, which is the race's per-level gain.
//
// Postcondition: Returns ErrInvalidStatKind when kind is not valid.
func (c LevelUpConfig) GainFor(kind StatKind) (int, error) {
	switch kind {
	case StatHealth:
		return c.HealthGain, nil
	case StatMana:
		return c.ManaGain, nil
	case StatDamage:
		return c.DamageGain, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrInvalidStatKind, kind)
	}
}
