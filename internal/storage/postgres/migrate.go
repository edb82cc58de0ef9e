package postgres

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// ErrInvalidDirection is returned by Migrate for anything but Up or Down.
var ErrInvalidDirection = errors.New("migration direction must be up or down")

// Direction selects which way Migrate moves the schema.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// MigrationResult reports where the schema ended up.
type MigrationResult struct {
	Version uint
	Dirty   bool
	// Changed is false when the schema was already where it was asked to be.
	Changed bool
}

// Migrate applies the migration files in dir to the database at dsn.
// steps limits how many migrations are applied; zero means all of them.
//
// Precondition: dir holds golang-migrate numbered .up.sql/.down.sql files.
// Postcondition: Returns the resulting schema version, or a non-nil error.
func Migrate(dsn, dir string, direction Direction, steps int) (MigrationResult, error) {
	if direction != Up && direction != Down {
		return MigrationResult{}, fmt.Errorf("%w: %q", ErrInvalidDirection, direction)
	}
	if steps < 0 {
		return MigrationResult{}, fmt.Errorf("steps must be >= 0, got %d", steps)
	}

	m, err := migrate.New("file://"+dir, dsn)
	if err != nil {
		return MigrationResult{}, fmt.Errorf("opening migrations in %s: %w", dir, err)
	}
	defer func() { _, _ = m.Close() }()

	switch {
	case steps > 0 && direction == Down:
		err = m.Steps(-steps)
	case steps > 0:
		err = m.Steps(steps)
	case direction == Down:
		err = m.Down()
	default:
		err = m.Up()
	}
	res := MigrationResult{Changed: !errors.Is(err, migrate.ErrNoChange)}
	if err != nil && res.Changed {
		return res, fmt.Errorf("migrating %s: %w", direction, err)
	}

	res.Version, res.Dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("reading schema version: %w", err)
	}
	return res, nil
}
