package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/game/character"
	"github.com/cory-johannsen/arena/internal/storage"
	"github.com/cory-johannsen/arena/internal/storage/postgres"
	"github.com/cory-johannsen/arena/internal/storage/storetest"
	"github.com/cory-johannsen/arena/internal/testutil"
)

func setupContainer(t *testing.T) *testutil.PostgresContainer {
	t.Helper()
	pc := testutil.NewPostgresContainer(t)
	pc.Migrate(t)
	return pc
}

func TestStore_Contract(t *testing.T) {
	pc := setupContainer(t)
	storetest.Run(t, func(t *testing.T, clock func() time.Time) storage.CharacterStore {
		pc.Reset(t)
		return postgres.NewStore(pc.DB(), clock)
	})
}

func TestStore_SaveKeepsCreationFields(t *testing.T) {
	pc := setupContainer(t)
	ctx := context.Background()
	clock := storetest.NewClock(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	s := postgres.NewStore(pc.DB(), clock.Now)

	rec, err := s.Create(ctx, "Lira", storetest.Elf())
	require.NoError(t, err)

	tampered := rec
	tampered.RaceID = "orc"
	tampered.LevelUp.HealthGain = 999
	require.NoError(t, s.Save(ctx, tampered))

	got, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.RaceID, got.RaceID)
	assert.Equal(t, rec.LevelUp, got.LevelUp)
}

func TestStore_SaveRejectsCorruptRecord(t *testing.T) {
	pc := setupContainer(t)
	ctx := context.Background()
	s := postgres.NewStore(pc.DB(), nil)

	rec, err := s.Create(ctx, "Lira", storetest.Elf())
	require.NoError(t, err)
	rec.Health = -1
	assert.ErrorIs(t, s.Save(ctx, rec), character.ErrCorruptRecord)
}

func TestPool_Health(t *testing.T) {
	pc := setupContainer(t)
	assert.NoError(t, pc.Pool.Health(context.Background()))
}

func TestNewPool_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := postgres.NewPool(ctx, config.DatabaseConfig{
		Host: "127.0.0.1", Port: 1, User: "arena", Name: "arena", SSLMode: "disable", MaxConns: 1,
	})
	assert.Error(t, err)
}

func TestMigrate_DownThenUp(t *testing.T) {
	pc := testutil.NewPostgresContainer(t)
	dsn, dir := pc.Config.DSN(), testutil.MigrationsDir()

	res, err := postgres.Migrate(dsn, dir, postgres.Up, 0)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, uint(2), res.Version)
	assert.False(t, res.Dirty)

	res, err = postgres.Migrate(dsn, dir, postgres.Up, 0)
	require.NoError(t, err)
	assert.False(t, res.Changed)

	res, err = postgres.Migrate(dsn, dir, postgres.Down, 1)
	require.NoError(t, err)
	assert.Equal(t, uint(1), res.Version)

	res, err = postgres.Migrate(dsn, dir, postgres.Down, 0)
	require.NoError(t, err)
	assert.Equal(t, uint(0), res.Version)

	_, err = postgres.Migrate(dsn, dir, postgres.Up, 0)
	require.NoError(t, err)
	_, err = pc.Pool.Store(nil).Create(context.Background(), "Lira", storetest.Elf())
	assert.NoError(t, err)
}

func TestMigrate_RejectsBadArguments(t *testing.T) {
	_, err := postgres.Migrate("postgres://unused", testutil.MigrationsDir(), "sideways", 0)
	assert.ErrorIs(t, err, postgres.ErrInvalidDirection)

	_, err = postgres.Migrate("postgres://unused", testutil.MigrationsDir(), postgres.Up, -1)
	assert.Error(t, err)
}
