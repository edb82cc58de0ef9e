// Package content assembles the static game tables into one read-only Catalog.
package content

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/cory-johannsen/arena/internal/game/monster"
	"github.com/cory-johannsen/arena/internal/game/ruleset"
)

// Catalog indexes races, locations, monsters and shop listings by ID.
// A Catalog is immutable after construction and safe for concurrent use.
// Lookups return copies, never shared pointers.
type Catalog struct {
	races     map[string]ruleset.Race
	raceOrder []string
	locations map[string]ruleset.Location
	locOrder  []string
	monsters  map[string]monster.Template
	byLoc     map[string][]string // location ID → monster template IDs
	shop      []ruleset.ShopListing
}

// New builds a Catalog from already-parsed tables.
//
// Precondition: IDs are unique per table.
// Postcondition: Returns an error when an ID repeats or a location names an unknown monster.
func New(races []*ruleset.Race, locations []*ruleset.Location, monsters []*monster.Template, shop []ruleset.ShopListing) (*Catalog, error) {
	c := &Catalog{
		races:     make(map[string]ruleset.Race, len(races)),
		locations: make(map[string]ruleset.Location, len(locations)),
		monsters:  make(map[string]monster.Template, len(monsters)),
		byLoc:     make(map[string][]string),
		shop:      append([]ruleset.ShopListing(nil), shop...),
	}
	for _, r := range races {
		if _, dup := c.races[r.ID]; dup {
			return nil, fmt.Errorf("duplicate race id %q", r.ID)
		}
		c.races[r.ID] = *r
		c.raceOrder = append(c.raceOrder, r.ID)
	}
	for _, m := range monsters {
		if _, dup := c.monsters[m.ID]; dup {
			return nil, fmt.Errorf("duplicate monster id %q", m.ID)
		}
		c.monsters[m.ID] = *m
	}
	for _, l := range locations {
		if _, dup := c.locations[l.ID]; dup {
			return nil, fmt.Errorf("duplicate location id %q", l.ID)
		}
		c.locations[l.ID] = *l
		c.locOrder = append(c.locOrder, l.ID)
	}
	sort.Strings(c.raceOrder)
	sort.SliceStable(c.locOrder, func(i, j int) bool {
		a, b := c.locations[c.locOrder[i]], c.locations[c.locOrder[j]]
		if a.RequiredLevel != b.RequiredLevel {
			return a.RequiredLevel < b.RequiredLevel
		}
		return a.ID < b.ID
	})

	for _, locID := range c.locOrder {
		seen := make(map[string]bool)
		for _, id := range c.locations[locID].MonsterIDs {
			if _, ok := c.monsters[id]; !ok {
				return nil, fmt.Errorf("location %q references unknown monster %q", locID, id)
			}
			if !seen[id] {
				seen[id] = true
				c.byLoc[locID] = append(c.byLoc[locID], id)
			}
		}
		monsterIDs := make([]string, 0, len(c.monsters))
		for id := range c.monsters {
			monsterIDs = append(monsterIDs, id)
		}
		sort.Strings(monsterIDs)
		for _, id := range monsterIDs {
			m := c.monsters[id]
			if m.FoundIn(locID) && !seen[id] {
				seen[id] = true
				c.byLoc[locID] = append(c.byLoc[locID], id)
			}
		}
	}
	for _, l := range c.shop {
		if _, ok := c.races[l.ItemID]; !ok {
			return nil, fmt.Errorf("shop listing references unknown race %q", l.ItemID)
		}
	}
	return c, nil
}

// Load reads a content directory laid out as races/, locations/, monsters/ and shop.yaml.
//
// Precondition: dir must be a readable directory; shop.yaml is optional.
// Postcondition: Returns a validated Catalog or a non-nil error.
func Load(dir string) (*Catalog, error) {
	races, err := ruleset.LoadRaces(filepath.Join(dir, "races"))
	if err != nil {
		return nil, fmt.Errorf("loading races: %w", err)
	}
	locations, err := ruleset.LoadLocations(filepath.Join(dir, "locations"))
	if err != nil {
		return nil, fmt.Errorf("loading locations: %w", err)
	}
	monsters, err := monster.LoadTemplates(filepath.Join(dir, "monsters"))
	if err != nil {
		return nil, fmt.Errorf("loading monsters: %w", err)
	}
	var shop []ruleset.ShopListing
	shopPath := filepath.Join(dir, "shop.yaml")
	if _, statErr := os.Stat(shopPath); statErr == nil {
		shop, err = ruleset.LoadShop(shopPath)
		if err != nil {
			return nil, fmt.Errorf("loading shop: %w", err)
		}
	}
	return New(races, locations, monsters, shop)
}

// Races returns every race ordered by ID.
func (c *Catalog) Races() []ruleset.Race {
	out := make([]ruleset.Race, 0, len(c.raceOrder))
	for _, id := range c.raceOrder {
		out = append(out, c.races[id])
	}
	return out
}

// Race returns the race with the given ID.
func (c *Catalog) Race(id string) (ruleset.Race, bool) {
	r, ok := c.races[id]
	return r, ok
}

// Locations returns every location ordered by required level, then ID.
func (c *Catalog) Locations() []ruleset.Location {
	out := make([]ruleset.Location, 0, len(c.locOrder))
	for _, id := range c.locOrder {
		out = append(out, c.locations[id])
	}
	return out
}

// Location returns the location with the given ID.
func (c *Catalog) Location(id string) (ruleset.Location, bool) {
	l, ok := c.locations[id]
	return l, ok
}

// Monster returns the monster template with the given ID.
func (c *Catalog) Monster(id string) (monster.Template, bool) {
	m, ok := c.monsters[id]
	return m, ok
}

// MonstersIn returns copies of every template bound to locationID.
//
// Postcondition: Returns a non-nil slice (may be empty).
func (c *Catalog) MonstersIn(locationID string) []monster.Template {
	ids := c.byLoc[locationID]
	out := make([]monster.Template, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.monsters[id])
	}
	return out
}

// Shop returns the shop listings in file order with their content-declared state.
func (c *Catalog) Shop() []ruleset.ShopListing {
	return append([]ruleset.ShopListing(nil), c.shop...)
}

// Listing returns the shop listing for itemID.
func (c *Catalog) Listing(itemID string) (ruleset.ShopListing, bool) {
	for _, l := range c.shop {
		if l.ItemID == itemID {
			return l, true
		}
	}
	return ruleset.ShopListing{}, false
}
