package shop_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/arena/internal/game/ruleset"
	"github.com/cory-johannsen/arena/internal/game/shop"
	"github.com/cory-johannsen/arena/internal/storage"
	"github.com/cory-johannsen/arena/internal/storage/memory"
)

type listings []ruleset.ShopListing

func (l listings) Shop() []ruleset.ShopListing { return l }

func (l listings) Listing(id string) (ruleset.ShopListing, bool) {
	for _, x := range l {
		if x.ItemID == id {
			return x, true
		}
	}
	return ruleset.ShopListing{}, false
}

var fixture = listings{
	{ItemID: "human", Price: 0, Purchased: true},
	{ItemID: "elf", Price: 100},
	{ItemID: "dwarf", Price: 250},
}

func newShop(t *testing.T) (*shop.Shop, *memory.Store) {
	t.Helper()
	store := memory.New(time.Now)
	return shop.New(fixture, store, zaptest.NewLogger(t)), store
}

func TestSeed_UnlocksPurchasedListings(t *testing.T) {
	ctx := context.Background()
	s, store := newShop(t)
	require.NoError(t, s.Seed(ctx))
	require.NoError(t, s.Seed(ctx))

	items, err := store.UnlockedItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"human"}, items)
}

func TestListings_ReflectUnlocks(t *testing.T) {
	ctx := context.Background()
	s, store := newShop(t)
	require.NoError(t, store.UnlockItem(ctx, "dwarf"))

	got, err := s.Listings(ctx)
	require.NoError(t, err)
	assert.Equal(t, []shop.Listing{
		{ItemID: "human", Price: 0, Purchased: true},
		{ItemID: "elf", Price: 100, Purchased: false},
		{ItemID: "dwarf", Price: 250, Purchased: true},
	}, got)
}

func TestPurchase(t *testing.T) {
	ctx := context.Background()
	s, store := newShop(t)
	_, err := store.AddGlobalCurrency(ctx, 150)
	require.NoError(t, err)

	receipt, err := s.Purchase(ctx, "elf")
	require.NoError(t, err)
	assert.Equal(t, shop.Receipt{ItemID: "elf", Price: 100, GlobalCurrency: 50}, receipt)

	items, err := store.UnlockedItems(ctx)
	require.NoError(t, err)
	assert.Contains(t, items, "elf")

	_, err = s.Purchase(ctx, "elf")
	assert.ErrorIs(t, err, shop.ErrAlreadyPurchased)
	bal, err := store.GlobalCurrency(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50, bal)
}

func TestPurchase_Rejections(t *testing.T) {
	ctx := context.Background()
	s, store := newShop(t)
	_, err := store.AddGlobalCurrency(ctx, 99)
	require.NoError(t, err)

	_, err = s.Purchase(ctx, "unicorn")
	assert.ErrorIs(t, err, shop.ErrUnknownItem)
	_, err = s.Purchase(ctx, "human")
	assert.ErrorIs(t, err, shop.ErrAlreadyPurchased)
	_, err = s.Purchase(ctx, "elf")
	assert.ErrorIs(t, err, storage.ErrInsufficientCurrency)

	bal, err := store.GlobalCurrency(ctx)
	require.NoError(t, err)
	assert.Equal(t, 99, bal)
	items, err := store.UnlockedItems(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

type failingWallet struct{ *memory.Store }

func (failingWallet) UnlockedItems(context.Context) ([]string, error) {
	return nil, errors.New("connection reset")
}

func TestListings_WrapsWalletError(t *testing.T) {
	s := shop.New(fixture, failingWallet{memory.New(time.Now)}, nil)
	_, err := s.Listings(context.Background())
	assert.ErrorContains(t, err, "loading unlocked items")
}

func TestPurchase_BalanceNeverNegative(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ctx := context.Background()
		store := memory.New(time.Now)
		s := shop.New(fixture, store, nil)
		start := rapid.IntRange(0, 400).Draw(rt, "start")
		_, err := store.AddGlobalCurrency(ctx, start)
		require.NoError(rt, err)

		spent := 0
		for _, id := range rapid.SliceOf(rapid.SampledFrom([]string{"elf", "dwarf"})).Draw(rt, "buys") {
			r, err := s.Purchase(ctx, id)
			if err == nil {
				spent += r.Price
			}
		}
		bal, err := store.GlobalCurrency(ctx)
		require.NoError(rt, err)
		assert.GreaterOrEqual(rt, bal, 0)
		assert.Equal(rt, start-spent, bal)
	})
}
