package combat

import (
	"context"

	"github.com/cory-johannsen/arena/internal/game/character"
	"github.com/cory-johannsen/arena/internal/game/monster"
)

// Event type names as published on the wire.
const (
	EventEnemyFound     = "enemy_found"
	EventPlayerAttacked = "player_attacked"
	EventEnemyAttacked  = "enemy_attacked"
	EventVictory        = "victory"
	EventDefeat         = "defeat"
)

// Event is a combat occurrence for the presentation layer.
type Event interface {
	EventType() string
}

// EventPublisher receives every event a Resolver emits, in order.
// Publish must not block on slow consumers.
type EventPublisher interface {
	Publish(ctx context.Context, ev Event)
}

// NopPublisher discards events.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(context.Context, Event) {}

// EnemyFoundEvent is emitted when FindEnemy engages a monster.
type EnemyFoundEvent struct {
	CharacterID string           `json:"character_id"`
	Monster     monster.Instance `json:"monster"`
}

// EventType implements Event.
func (EnemyFoundEvent) EventType() string { return EventEnemyFound }

// PlayerAttackedEvent is emitted when the character hits the monster.
type PlayerAttackedEvent struct {
	CharacterID   string `json:"character_id"`
	Damage        int    `json:"damage"`
	MonsterHealth int    `json:"monster_health"`
}

// EventType implements Event.
func (PlayerAttackedEvent) EventType() string { return EventPlayerAttacked }

// EnemyAttackedEvent is emitted when the monster retaliates.
type EnemyAttackedEvent struct {
	CharacterID     string `json:"character_id"`
	Damage          int    `json:"damage"`
	Special         bool   `json:"special"`
	SpecialName     string `json:"special_name,omitempty"`
	CharacterHealth int    `json:"character_health"`
}

// EventType implements Event.
func (EnemyAttackedEvent) EventType() string { return EventEnemyAttacked }

// VictoryEvent is emitted when the monster dies.
type VictoryEvent struct {
	CharacterID string  `json:"character_id"`
	Victory     Victory `json:"victory"`
}

// EventType implements Event.
func (VictoryEvent) EventType() string { return EventVictory }

// DefeatEvent is emitted when the character reaches zero health.
type DefeatEvent struct {
	CharacterID string `json:"character_id"`
}

// EventType implements Event.
func (DefeatEvent) EventType() string { return EventDefeat }

// Victory is the reward resolved for killing a monster.
type Victory struct {
	ExperienceReward int                     `json:"experience_reward"`
	CurrencyReward   int                     `json:"currency_reward"`
	GlobalReward     int                     `json:"global_reward"`
	LevelUp          character.LevelUpResult `json:"level_up"`
}
