// Package monster provides monster template definitions and the ephemeral
// instances a character fights.
package monster

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SpecialAttack is a mana-gated attack that adds BonusDamage to the base hit.
type SpecialAttack struct {
	Name        string `yaml:"name" json:"name"`
	ManaCost    int    `yaml:"mana_cost" json:"mana_cost"`
	BonusDamage int    `yaml:"bonus_damage" json:"bonus_damage"`
}

// Template defines a reusable monster archetype loaded from YAML.
type Template struct {
	ID               string         `yaml:"id"`
	Name             string         `yaml:"name"`
	Type             string         `yaml:"type"`
	MaxHealth        int            `yaml:"health"`
	MaxMana          int            `yaml:"mana"`
	Damage           int            `yaml:"damage"`
	ExperienceReward int            `yaml:"experience_reward"`
	Special          *SpecialAttack `yaml:"special_attack"`
	// Locations lists the location IDs this monster can be found in.
	Locations []string `yaml:"locations"`
}

// Validate checks that the template satisfies basic invariants.
//
// Precondition: t must not be nil.
// Postcondition: Returns nil iff ID and Name are non-empty, MaxHealth >= 1 and
// MaxMana, Damage, ExperienceReward and any special attack cost are >= 0.
func (t *Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("monster template: id must not be empty")
	}
	if t.Name == "" {
		return fmt.Errorf("monster template %q: name must not be empty", t.ID)
	}
	if t.MaxHealth < 1 {
		return fmt.Errorf("monster template %q: health must be >= 1", t.ID)
	}
	if t.MaxMana < 0 {
		return fmt.Errorf("monster template %q: mana must be >= 0", t.ID)
	}
	if t.Damage < 0 {
		return fmt.Errorf("monster template %q: damage must be >= 0", t.ID)
	}
	if t.ExperienceReward < 0 {
		return fmt.Errorf("monster template %q: experience_reward must be >= 0", t.ID)
	}
	if t.Special != nil {
		if t.Special.Name == "" {
			return fmt.Errorf("monster template %q: special_attack name must not be empty", t.ID)
		}
		if t.Special.ManaCost < 0 || t.Special.BonusDamage < 0 {
			return fmt.Errorf("monster template %q: special_attack cost and bonus must be >= 0", t.ID)
		}
	}
	return nil
}

// FoundIn reports whether the template lists locationID among its locations.
func (t *Template) FoundIn(locationID string) bool {
	for _, id := range t.Locations {
		if id == locationID {
			return true
		}
	}
	return false
}

// LoadTemplateFromBytes parses a single monster template from raw YAML bytes.
//
// Precondition: data must be valid YAML for a single Template.
// Postcondition: Returns a validated *Template, or an error.
func LoadTemplateFromBytes(data []byte) (*Template, error) {
	var tmpl Template
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return nil, fmt.Errorf("parsing template YAML: %w", err)
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// LoadTemplates reads all *.yaml files in dir and returns the parsed templates.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all templates or an error on the first parse or validate
// failure; on error, the partial result is discarded.
func LoadTemplates(dir string) ([]*Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading monster dir %q: %w", dir, err)
	}

	var templates []*Template
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}

		tmpl, err := LoadTemplateFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		templates = append(templates, tmpl)
	}
	return templates, nil
}
