package monster

// AttackKind tags how a monster attacked.
type AttackKind int

const (
	AttackNormal AttackKind = iota
	AttackSpecial
)

// String returns the attack tag.
func (k AttackKind) String() string {
	if k == AttackSpecial {
		return "special"
	}
	return "normal"
}

// MarshalText encodes k by its tag.
func (k AttackKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Target receives monster damage.
type Target interface {
	// ApplyIncomingDamage lowers health by amount, clamped at zero, and reports
	// whether the target is now at zero health.
	ApplyIncomingDamage(amount int) bool
}

// AttackOutcome describes one monster attack.
type AttackOutcome struct {
	Kind        AttackKind `json:"kind"`
	Damage      int        `json:"damage"`
	SpecialName string     `json:"special_name,omitempty"`
	// TargetDefeated is true when the attack left the target at zero health.
	TargetDefeated bool `json:"target_defeated"`
}

// Instance is a live monster for the duration of one encounter.
type Instance struct {
	// ID uniquely identifies this encounter's monster.
	ID               string `json:"id"`
	TemplateID       string `json:"template_id"`
	Name             string `json:"name"`
	Type             string `json:"type"`
	MaxHealth        int    `json:"max_health"`
	Health           int    `json:"health"`
	MaxMana          int    `json:"max_mana"`
	Mana             int    `json:"mana"`
	Damage           int    `json:"damage"`
	ExperienceReward int    `json:"experience_reward"`
	// Special is nil for monsters without a special attack.
	Special *SpecialAttack `json:"special_attack,omitempty"`
}

// NewInstance creates a fresh monster from a template copy.
//
// Precondition: id must be non-empty; tmpl must satisfy Validate.
// Postcondition: Health == MaxHealth and Mana == MaxMana.
func NewInstance(id string, tmpl Template) *Instance {
	inst := &Instance{
		ID:               id,
		TemplateID:       tmpl.ID,
		Name:             tmpl.Name,
		Type:             tmpl.Type,
		MaxHealth:        tmpl.MaxHealth,
		Health:           tmpl.MaxHealth,
		MaxMana:          tmpl.MaxMana,
		Mana:             tmpl.MaxMana,
		Damage:           tmpl.Damage,
		ExperienceReward: tmpl.ExperienceReward,
	}
	if tmpl.Special != nil {
		special := *tmpl.Special
		inst.Special = &special
	}
	return inst
}

// Clone returns a deep copy of m.
func (m *Instance) Clone() Instance {
	out := *m
	if m.Special != nil {
		special := *m.Special
		out.Special = &special
	}
	return out
}

// IsAlive reports whether the monster has health left.
func (m *Instance) IsAlive() bool {
	return m.Health > 0
}

// TakeDamage reduces Health by amount, flooring at zero.
//
// Precondition: amount >= 0.
// Postcondition: Health >= 0; returns true iff the monster is now dead.
func (m *Instance) TakeDamage(amount int) bool {
	m.Health -= amount
	if m.Health < 0 {
		m.Health = 0
	}
	return m.Health <= 0
}

// ResolveAttack hits target once. When a special attack is defined and affordable its
// mana cost is paid and its bonus added; otherwise the base damage is dealt.
//
// Precondition: target must be non-nil.
// Postcondition: Mana >= 0; the returned Damage was applied to target.
func (m *Instance) ResolveAttack(target Target) AttackOutcome {
	out := AttackOutcome{Kind: AttackNormal, Damage: m.Damage}
	if m.Special != nil && m.Mana >= m.Special.ManaCost {
		m.Mana -= m.Special.ManaCost
		out.Kind = AttackSpecial
		out.Damage = m.Damage + m.Special.BonusDamage
		out.SpecialName = m.Special.Name
	}
	out.TargetDefeated = target.ApplyIncomingDamage(out.Damage)
	return out
}
