package combat

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/character"
	"github.com/cory-johannsen/arena/internal/game/monster"
	"github.com/cory-johannsen/arena/internal/game/ruleset"
)

// Bestiary resolves the monster templates bound to a location.
type Bestiary interface {
	MonstersIn(locationID string) []monster.Template
}

// CharacterSaver persists a character snapshot.
type CharacterSaver interface {
	Save(ctx context.Context, rec character.Record) error
}

// GlobalWallet receives the global share of victory rewards.
type GlobalWallet interface {
	AddGlobalCurrency(ctx context.Context, amount int) (int, error)
}

// Exchange is the result of one PerformAttack call.
type Exchange struct {
	// PlayerDamage is the damage the character dealt.
	PlayerDamage int `json:"player_damage"`
	// Monster is the monster after the exchange.
	Monster monster.Instance `json:"monster"`
	// Retaliation is nil when the monster died before it could strike back.
	Retaliation *monster.AttackOutcome `json:"retaliation,omitempty"`
	// Victory is set when the monster died.
	Victory *Victory `json:"victory,omitempty"`
	// PlayerDead is true when the character is at zero health after the exchange.
	PlayerDead bool `json:"player_dead"`
	// Character is the persisted character snapshot.
	Character character.Record `json:"character"`
	// State is the encounter state after the exchange.
	State State `json:"state"`
}

// Resolver runs encounters for one character.
//
// Invariant: at most one monster is engaged; exchanges are serialized.
type Resolver struct {
	mu sync.Mutex
	// pubMu is taken before mu is released so events leave in exchange order
	// without holding mu across Publish.
	pubMu         sync.Mutex
	char          *character.Character
	enemy         *monster.Instance
	bestiary      Bestiary
	saver         CharacterSaver
	wallet        GlobalWallet
	src           Source
	pub           EventPublisher
	globalPercent int
	logger        *zap.Logger
}

// NewResolver creates a Resolver for char.
//
// Precondition: char, bestiary, saver and src must be non-nil; globalPercent in [0, 100].
// wallet may be nil when globalPercent is 0; a nil pub discards events and a nil logger
// is replaced by a no-op logger.
// Postcondition: Returns a Resolver in StateNoEnemy.
func NewResolver(
	char *character.Character,
	bestiary Bestiary,
	saver CharacterSaver,
	wallet GlobalWallet,
	src Source,
	pub EventPublisher,
	globalPercent int,
	logger *zap.Logger,
) *Resolver {
	if pub == nil {
		pub = NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		char:          char,
		bestiary:      bestiary,
		saver:         saver,
		wallet:        wallet,
		src:           src,
		pub:           pub,
		globalPercent: globalPercent,
		logger:        logger.With(zap.String("character_id", char.ID())),
	}
}

// State returns the current encounter state. Defeat lasts while a monster is engaged
// and the character is at zero health.
func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stateLocked()
}

func (r *Resolver) stateLocked() State {
	switch {
	case r.enemy == nil:
		return StateNoEnemy
	case r.char.IsIncapacitated():
		return StateDefeat
	default:
		return StateEngaged
	}
}

// Enemy returns a copy of the engaged monster.
func (r *Resolver) Enemy() (monster.Instance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.enemy == nil {
		return monster.Instance{}, false
	}
	return r.enemy.Clone(), true
}

// FindEnemy draws a monster uniformly from those bound to loc and engages it,
// replacing any current encounter.
//
// Postcondition: Returns ErrNoLocationSelected for a nil loc, ErrNoMonstersInLocation
// when none are bound; otherwise the state is StateEngaged (or StateDefeat while
// incapacitated) and a copy of the new monster is returned.
func (r *Resolver) FindEnemy(ctx context.Context, loc *ruleset.Location) (*monster.Instance, error) {
	if loc == nil {
		return nil, ErrNoLocationSelected
	}
	templates := r.bestiary.MonstersIn(loc.ID)
	if len(templates) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMonstersInLocation, loc.ID)
	}
	tmpl := templates[0]
	if len(templates) > 1 {
		tmpl = templates[r.src.Intn(len(templates))]
	}

	r.mu.Lock()
	r.enemy = monster.NewInstance(uuid.NewString(), tmpl)
	found := r.enemy.Clone()
	r.publishAndUnlock(ctx, EnemyFoundEvent{CharacterID: r.char.ID(), Monster: found})

	r.logger.Debug("enemy found",
		zap.String("location", loc.ID),
		zap.String("monster", found.TemplateID),
	)
	return &found, nil
}

// Flee abandons the current encounter without side effects.
func (r *Resolver) Flee() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enemy = nil
}

// PerformAttack runs one exchange: the character hits the monster, then a surviving
// monster retaliates. A kill resolves the victory reward and ends the encounter. The
// character is persisted after every exchange; events are published once the
// exchange is complete.
//
// Postcondition: Returns ErrNoEnemy outside an encounter and ErrCharacterIncapacitated
// at zero health, mutating nothing. A persistence failure is returned wrapped, together
// with the in-memory Exchange.
func (r *Resolver) PerformAttack(ctx context.Context) (Exchange, error) {
	r.mu.Lock()
	ex, evs, err := r.exchangeLocked(ctx)
	r.publishAndUnlock(ctx, evs...)
	return ex, err
}

func (r *Resolver) exchangeLocked(ctx context.Context) (Exchange, []Event, error) {
	if r.enemy == nil {
		return Exchange{}, nil, ErrNoEnemy
	}
	if r.char.IsIncapacitated() {
		return Exchange{}, nil, ErrCharacterIncapacitated
	}

	var (
		ex   Exchange
		evs  []Event
		errs []error
	)
	id := r.char.ID()

	ex.PlayerDamage = r.char.Snapshot().Damage
	dead := r.enemy.TakeDamage(ex.PlayerDamage)
	evs = append(evs, PlayerAttackedEvent{CharacterID: id, Damage: ex.PlayerDamage, MonsterHealth: r.enemy.Health})
	ex.Monster = r.enemy.Clone()

	if dead {
		v, err := r.rewardLocked(ctx, r.enemy)
		if err != nil {
			errs = append(errs, err)
		}
		ex.Victory = &v
		r.enemy = nil
		evs = append(evs, VictoryEvent{CharacterID: id, Victory: v})
	} else {
		out := r.enemy.ResolveAttack(r.char)
		ex.Retaliation = &out
		ex.Monster = r.enemy.Clone()
		ex.PlayerDead = out.TargetDefeated
		evs = append(evs, EnemyAttackedEvent{
			CharacterID:     id,
			Damage:          out.Damage,
			Special:         out.Kind == monster.AttackSpecial,
			SpecialName:     out.SpecialName,
			CharacterHealth: r.char.Snapshot().Health,
		})
		if ex.PlayerDead {
			r.logger.Info("character defeated", zap.String("monster", r.enemy.TemplateID))
			evs = append(evs, DefeatEvent{CharacterID: id})
		}
	}

	rec, err := r.char.Persist(ctx, r.saver)
	if err != nil {
		r.logger.Error("persisting character after exchange", zap.Error(err))
		errs = append(errs, fmt.Errorf("persisting character %s: %w", id, err))
	}
	ex.Character = rec
	ex.State = r.stateLocked()
	r.logger.Debug("exchange resolved",
		zap.Int("player_damage", ex.PlayerDamage),
		zap.Int("monster_health", ex.Monster.Health),
		zap.Int("character_health", ex.Character.Health),
		zap.Stringer("state", ex.State),
	)
	return ex, evs, errors.Join(errs...)
}

// publishAndUnlock releases mu and then publishes evs. pubMu is acquired before mu is
// released, so a later exchange cannot publish ahead of this one.
//
// Precondition: r.mu is held.
func (r *Resolver) publishAndUnlock(ctx context.Context, evs ...Event) {
	r.pubMu.Lock()
	r.mu.Unlock()
	defer r.pubMu.Unlock()
	for _, ev := range evs {
		r.pub.Publish(ctx, ev)
	}
}

// rewardLocked credits experience and currency for killing m.
func (r *Resolver) rewardLocked(ctx context.Context, m *monster.Instance) (Victory, error) {
	v := Victory{
		ExperienceReward: m.ExperienceReward,
		CurrencyReward:   m.ExperienceReward / 2,
	}
	v.LevelUp = r.char.GainExperience(v.ExperienceReward)
	r.char.AddPersonalCurrency(v.CurrencyReward)
	if v.LevelUp.LeveledUp {
		r.logger.Info("level up",
			zap.Int("level", v.LevelUp.NewLevel),
			zap.Int("levels_gained", v.LevelUp.LevelsGained),
			zap.Int("available_stat_points", v.LevelUp.AvailableStatPoints),
		)
	}

	share := v.CurrencyReward * r.globalPercent / 100
	if share <= 0 || r.wallet == nil {
		return v, nil
	}
	if _, err := r.wallet.AddGlobalCurrency(ctx, share); err != nil {
		r.logger.Error("crediting global reward", zap.Int("amount", share), zap.Error(err))
		return v, fmt.Errorf("crediting global reward: %w", err)
	}
	v.GlobalReward = share
	return v, nil
}
