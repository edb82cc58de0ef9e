package ruleset

import "fmt"

// Location is a hunting ground. Monsters bind to it either through MonsterIDs here or
// through their own location list.
type Location struct {
	ID            string   `yaml:"id" json:"id"`
	Name          string   `yaml:"name" json:"name"`
	Description   string   `yaml:"description" json:"description"`
	RequiredLevel int      `yaml:"required_level" json:"required_level"`
	MonsterIDs    []string `yaml:"monsters" json:"monsters"`
}

// Accessible reports whether a character of level may hunt here.
func (l Location) Accessible(level int) bool {
	return level >= l.RequiredLevel
}

// Validate checks basic location invariants.
func (l Location) Validate() error {
	if l.ID == "" {
		return fmt.Errorf("location: id must not be empty")
	}
	if l.Name == "" {
		return fmt.Errorf("location %q: name must not be empty", l.ID)
	}
	if l.RequiredLevel < 0 {
		return fmt.Errorf("location %q: required_level must be >= 0", l.ID)
	}
	return nil
}

// LoadLocations reads all .yaml files in dir and parses each as a Location.
//
// Precondition: dir must be a readable directory path.
// Postcondition: Returns all parsed and validated locations or a non-nil error.
func LoadLocations(dir string) ([]*Location, error) {
	locs, err := loadDir[Location](dir, "location")
	if err != nil {
		return nil, err
	}
	for _, l := range locs {
		if err := l.Validate(); err != nil {
			return nil, err
		}
	}
	return locs, nil
}
