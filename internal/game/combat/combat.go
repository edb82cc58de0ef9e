// Package combat resolves player-versus-monster encounters for the active character.
package combat

import "errors"

var (
	// ErrNoLocationSelected is returned by FindEnemy without a current location.
	ErrNoLocationSelected = errors.New("no location selected")
	// ErrNoMonstersInLocation is returned by FindEnemy when the location has no monsters.
	ErrNoMonstersInLocation = errors.New("no monsters in location")
	// ErrNoEnemy is returned by PerformAttack outside an encounter.
	ErrNoEnemy = errors.New("no enemy engaged")
	// ErrCharacterIncapacitated is returned by PerformAttack while the character is at zero health.
	ErrCharacterIncapacitated = errors.New("character is incapacitated")
)

// State is the encounter state of a Resolver.
type State int

const (
	// StateNoEnemy means no monster is engaged.
	StateNoEnemy State = iota
	// StateEngaged means a monster is engaged and the character can attack.
	StateEngaged
	// StateDefeat means the character reached zero health during the encounter.
	StateDefeat
)

// String returns the wire name of s.
func (s State) String() string {
	switch s {
	case StateNoEnemy:
		return "no_enemy"
	case StateEngaged:
		return "engaged"
	case StateDefeat:
		return "defeat"
	default:
		return "unknown"
	}
}

// MarshalText encodes s by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Source is the subset of dice.Source used to draw encounters.
type Source interface {
	Intn(n int) int
}
