package testutil

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/storage/postgres"
)

// PostgresContainer is a throwaway database for postgres store tests.
type PostgresContainer struct {
	container testcontainers.Container
	Pool      *postgres.Pool
	Config    config.DatabaseConfig
}

// NewPostgresContainer starts postgres:16-alpine and connects a Pool to it.
// The schema is empty until Migrate is called.
//
// Precondition: Docker must be available.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()
	c, host, port := startContainer(t, testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "arena",
			"POSTGRES_PASSWORD": "arena",
			"POSTGRES_DB":       "arena_test",
		},
		// postgres logs readiness once for the init server and once for the real one.
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(30 * time.Second),
	})

	cfg := config.DatabaseConfig{
		Host:            host,
		Port:            port,
		User:            "arena",
		Password:        "arena",
		Name:            "arena_test",
		SSLMode:         "disable",
		MaxConns:        4,
		MinConns:        1,
		MaxConnLifetime: time.Minute,
	}
	pool, err := postgres.NewPool(context.Background(), cfg)
	if err != nil {
		t.Fatalf("connecting to test postgres: %v", err)
	}
	t.Cleanup(pool.Close)
	return &PostgresContainer{container: c, Pool: pool, Config: cfg}
}

// DB is the raw pgx pool.
func (pc *PostgresContainer) DB() *pgxpool.Pool { return pc.Pool.DB() }

// Migrate brings the schema to the latest version through the same
// postgres.Migrate path cmd/migrate uses.
func (pc *PostgresContainer) Migrate(t *testing.T) {
	t.Helper()
	if _, err := postgres.Migrate(pc.Config.DSN(), MigrationsDir(), postgres.Up, 0); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
}

// Reset empties every table and zeroes the wallet.
func (pc *PostgresContainer) Reset(t *testing.T) {
	t.Helper()
	_, err := pc.DB().Exec(context.Background(), `
		TRUNCATE characters, unlocked_items;
		UPDATE wallet SET balance = 0 WHERE id = 1;`)
	if err != nil {
		t.Fatalf("resetting database: %v", err)
	}
}

// MigrationsDir returns the absolute path of the repository's migrations directory.
func MigrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations")
}
