package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/game/character"
	"github.com/cory-johannsen/arena/internal/storage"
	"github.com/cory-johannsen/arena/internal/storage/redis"
	"github.com/cory-johannsen/arena/internal/storage/storetest"
	"github.com/cory-johannsen/arena/internal/testutil"
)

func TestStore_Contract(t *testing.T) {
	rc := testutil.NewRedisContainer(t)
	storetest.Run(t, func(t *testing.T, clock func() time.Time) storage.CharacterStore {
		rc.Reset(t)
		return redis.NewStore(rc.Client, "test:", clock)
	})
}

func TestStore_PrefixesIsolate(t *testing.T) {
	rc := testutil.NewRedisContainer(t)
	ctx := context.Background()
	a := redis.NewStore(rc.Client, "a:", nil)
	b := redis.NewStore(rc.Client, "b:", nil)

	_, err := a.Create(ctx, "Lira", storetest.Elf())
	require.NoError(t, err)
	_, err = a.AddGlobalCurrency(ctx, 10)
	require.NoError(t, err)

	list, err := b.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	bal, err := b.GlobalCurrency(ctx)
	require.NoError(t, err)
	assert.Zero(t, bal)
}

func TestStore_CorruptPayload(t *testing.T) {
	rc := testutil.NewRedisContainer(t)
	ctx := context.Background()
	require.NoError(t, rc.Client.Set(ctx, "c:character:bad", "{not json", 0).Err())

	s := redis.NewStore(rc.Client, "c:", nil)
	_, err := s.Get(ctx, "bad")
	assert.ErrorIs(t, err, character.ErrCorruptRecord)
}

func TestNewClient(t *testing.T) {
	rc := testutil.NewRedisContainer(t)
	client, err := redis.NewClient(context.Background(), config.RedisConfig{Addr: rc.Addr})
	require.NoError(t, err)
	assert.NoError(t, client.Close())
}

func TestNewClient_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := redis.NewClient(ctx, config.RedisConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}
