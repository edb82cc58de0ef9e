// Package postgres provides the PostgreSQL CharacterStore using pgx v5.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/arena/internal/config"
)

// HealthTimeout bounds a single Ping issued by Pool.Health.
const HealthTimeout = 2 * time.Second

// Pool owns the pgx pool backing a Store.
type Pool struct {
	db   *pgxpool.Pool
	name string
}

// NewPool connects to the database described by cfg and pings it once.
//
// Precondition: cfg passed config validation.
// Postcondition: Returns a reachable Pool or a non-nil error; no connections
// are left open on failure.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing dsn for %q: %w", cfg.Name, err)
	}
	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.ConnConfig.RuntimeParams["application_name"] = "arena"

	db, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("opening pool for %q: %w", cfg.Name, err)
	}
	p := &Pool{db: db, name: cfg.Name}
	if err := p.Health(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

// Health pings the database, giving up after HealthTimeout.
// Its signature matches the readiness probe the HTTP layer expects.
func (p *Pool) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, HealthTimeout)
	defer cancel()
	if err := p.db.Ping(ctx); err != nil {
		return fmt.Errorf("pinging %q: %w", p.name, err)
	}
	return nil
}

// Store returns a CharacterStore sharing this pool.
func (p *Pool) Store(now func() time.Time) *Store {
	return NewStore(p.db, now)
}

// DB exposes the raw pool for fixtures that issue their own statements.
func (p *Pool) DB() *pgxpool.Pool { return p.db }

// Close releases every connection.
func (p *Pool) Close() { p.db.Close() }
