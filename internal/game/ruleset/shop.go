package ruleset

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ShopListing offers a race for purchase with global currency. ItemID is the race ID.
// Purchased listings are unlocked from the start.
type ShopListing struct {
	ItemID    string `yaml:"item_id" json:"item_id"`
	Price     int    `yaml:"price" json:"price"`
	Purchased bool   `yaml:"purchased" json:"purchased"`
}

type shopFile struct {
	Listings []ShopListing `yaml:"listings"`
}

// LoadShop parses the shop listing file at path.
//
// Precondition: path must name a readable YAML file with a top-level "listings" list.
// Postcondition: Returns listings with non-empty ItemID and Price >= 0, or an error.
func LoadShop(path string) ([]ShopListing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var f shopFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing shop file %s: %w", path, err)
	}
	for _, l := range f.Listings {
		if l.ItemID == "" {
			return nil, fmt.Errorf("shop listing: item_id must not be empty")
		}
		if l.Price < 0 {
			return nil, fmt.Errorf("shop listing %q: price must be >= 0", l.ItemID)
		}
	}
	return f.Listings, nil
}
