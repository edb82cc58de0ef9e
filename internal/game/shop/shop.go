// Package shop sells race unlocks for global currency.
package shop

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/ruleset"
	"github.com/cory-johannsen/arena/internal/storage"
)

var (
	// ErrAlreadyPurchased is returned when the item is already unlocked.
	ErrAlreadyPurchased = errors.New("item already purchased")
	// ErrUnknownItem is returned for an item id with no listing.
	ErrUnknownItem = errors.New("unknown shop item")
)

// Catalog supplies the shop listings.
type Catalog interface {
	Shop() []ruleset.ShopListing
	Listing(itemID string) (ruleset.ShopListing, bool)
}

// Wallet is the subset of storage.CharacterStore the shop needs.
type Wallet interface {
	GlobalCurrency(ctx context.Context) (int, error)
	UnlockedItems(ctx context.Context) ([]string, error)
	UnlockItem(ctx context.Context, itemID string) error
	PurchaseItem(ctx context.Context, itemID string, price int) (int, error)
}

// Listing is a shop listing together with its unlock state.
type Listing struct {
	ItemID    string `json:"item_id"`
	Price     int    `json:"price"`
	Purchased bool   `json:"purchased"`
}

// Receipt describes a completed purchase.
type Receipt struct {
	ItemID         string `json:"item_id"`
	Price          int    `json:"price"`
	GlobalCurrency int    `json:"global_currency"`
}

// Shop lists and sells unlocks.
type Shop struct {
	catalog Catalog
	wallet  Wallet
	logger  *zap.Logger
}

// New creates a Shop.
//
// Precondition: catalog and wallet must be non-nil.
func New(catalog Catalog, wallet Wallet, logger *zap.Logger) *Shop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Shop{catalog: catalog, wallet: wallet, logger: logger}
}

// Seed unlocks every listing marked purchased in content. It is idempotent.
func (s *Shop) Seed(ctx context.Context) error {
	for _, l := range s.catalog.Shop() {
		if !l.Purchased {
			continue
		}
		if err := s.wallet.UnlockItem(ctx, l.ItemID); err != nil {
			return fmt.Errorf("seeding unlock %s: %w", l.ItemID, err)
		}
	}
	return nil
}

// Listings returns every listing in catalog order with its current unlock state.
func (s *Shop) Listings(ctx context.Context) ([]Listing, error) {
	unlocked, err := s.unlockedSet(ctx)
	if err != nil {
		return nil, err
	}
	shop := s.catalog.Shop()
	out := make([]Listing, 0, len(shop))
	for _, l := range shop {
		_, owned := unlocked[l.ItemID]
		out = append(out, Listing{ItemID: l.ItemID, Price: l.Price, Purchased: l.Purchased || owned})
	}
	return out, nil
}

func (s *Shop) unlockedSet(ctx context.Context) (map[string]struct{}, error) {
	items, err := s.wallet.UnlockedItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading unlocked items: %w", err)
	}
	set := make(map[string]struct{}, len(items))
	for _, id := range items {
		set[id] = struct{}{}
	}
	return set, nil
}

// Purchase spends the listing price from the global wallet and unlocks itemID.
//
// Postcondition: On ErrUnknownItem, ErrAlreadyPurchased or
// storage.ErrInsufficientCurrency the wallet and unlocks are unchanged.
func (s *Shop) Purchase(ctx context.Context, itemID string) (Receipt, error) {
	listing, ok := s.catalog.Listing(itemID)
	if !ok {
		return Receipt{}, fmt.Errorf("%w: %s", ErrUnknownItem, itemID)
	}
	if listing.Purchased {
		return Receipt{}, fmt.Errorf("%w: %s", ErrAlreadyPurchased, itemID)
	}
	balance, err := s.wallet.PurchaseItem(ctx, itemID, listing.Price)
	switch {
	case errors.Is(err, storage.ErrAlreadyUnlocked):
		return Receipt{}, fmt.Errorf("%w: %s", ErrAlreadyPurchased, itemID)
	case err != nil:
		return Receipt{}, fmt.Errorf("purchasing %s: %w", itemID, err)
	}
	s.logger.Info("item purchased",
		zap.String("item_id", itemID),
		zap.Int("price", listing.Price),
		zap.Int("global_currency", balance),
	)
	return Receipt{ItemID: itemID, Price: listing.Price, GlobalCurrency: balance}, nil
}
