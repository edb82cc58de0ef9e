package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/arena/internal/game/character"
	"github.com/cory-johannsen/arena/internal/game/ruleset"
	"github.com/cory-johannsen/arena/internal/storage"
)

const characterColumns = `
	id, name, race_id, race, level, experience,
	max_health, health, max_mana, mana, damage,
	available_stat_points, spent_stat_points,
	health_regen_per_second, mana_regen_per_second, last_regen_at,
	health_gain, mana_gain, damage_gain, stat_points_per_level,
	bonus_health_regen, bonus_mana_regen,
	personal_currency, created_at, updated_at`

// Store is the PostgreSQL CharacterStore.
type Store struct {
	db  *pgxpool.Pool
	now func() time.Time
}

// NewStore creates a Store backed by the given pool. A nil clock defaults to time.Now.
//
// Precondition: db must be a valid, open connection pool with migrations applied.
func NewStore(db *pgxpool.Pool, clock func() time.Time) *Store {
	if clock == nil {
		clock = time.Now
	}
	return &Store{db: db, now: clock}
}

// Create builds a new character from race and inserts it.
//
// Postcondition: Returns the inserted record or a non-nil error.
func (s *Store) Create(ctx context.Context, name string, race ruleset.Race) (character.Record, error) {
	rec, err := character.Build(name, race, s.now())
	if err != nil {
		return character.Record{}, err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO characters (`+characterColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25)`,
		recordArgs(rec)...,
	)
	if err != nil {
		return character.Record{}, fmt.Errorf("inserting character: %w", err)
	}
	return rec, nil
}

// List returns all characters ordered by updated_at descending.
//
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (s *Store) List(ctx context.Context) ([]character.Record, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+characterColumns+`
		FROM characters ORDER BY updated_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing characters: %w", err)
	}
	defer rows.Close()

	recs := make([]character.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning character row: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Get retrieves a character by id.
//
// Postcondition: Returns the record or storage.ErrCharacterNotFound.
func (s *Store) Get(ctx context.Context, id string) (character.Record, error) {
	rec, err := scanRecord(s.db.QueryRow(ctx, `
		SELECT `+characterColumns+`
		FROM characters WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return character.Record{}, storage.ErrCharacterNotFound
		}
		return character.Record{}, fmt.Errorf("querying character: %w", err)
	}
	return rec, nil
}

// Save overwrites the mutable columns of an existing character. Identity, race and
// the level-up profile are fixed at creation and are not rewritten.
//
// Postcondition: Returns nil on success, storage.ErrCharacterNotFound if no row updated.
func (s *Store) Save(ctx context.Context, rec character.Record) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("saving character: %w", err)
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE characters SET
			name = $2, level = $3, experience = $4,
			max_health = $5, health = $6, max_mana = $7, mana = $8, damage = $9,
			available_stat_points = $10, spent_stat_points = $11,
			health_regen_per_second = $12, mana_regen_per_second = $13, last_regen_at = $14,
			personal_currency = $15, updated_at = $16
		WHERE id = $1`,
		rec.ID, rec.Name, rec.Level, rec.Experience,
		rec.MaxHealth, rec.Health, rec.MaxMana, rec.Mana, rec.Damage,
		rec.AvailableStatPoints, rec.SpentStatPoints,
		rec.HealthRegenPerSecond, rec.ManaRegenPerSecond, rec.LastRegenAt,
		rec.PersonalCurrency, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving character: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrCharacterNotFound
	}
	return nil
}

// Delete removes a character.
//
// Postcondition: Returns nil on success, storage.ErrCharacterNotFound if no row deleted.
func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM characters WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting character: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrCharacterNotFound
	}
	return nil
}

func recordArgs(r character.Record) []any {
	return []any{
		r.ID, r.Name, r.RaceID, r.Race, r.Level, r.Experience,
		r.MaxHealth, r.Health, r.MaxMana, r.Mana, r.Damage,
		r.AvailableStatPoints, r.SpentStatPoints,
		r.HealthRegenPerSecond, r.ManaRegenPerSecond, r.LastRegenAt,
		r.LevelUp.HealthGain, r.LevelUp.ManaGain, r.LevelUp.DamageGain, r.LevelUp.StatPointsPerLevel,
		r.Bonuses.HealthRegen, r.Bonuses.ManaRegen,
		r.PersonalCurrency, r.CreatedAt, r.UpdatedAt,
	}
}

func scanRecord(row pgx.Row) (character.Record, error) {
	var r character.Record
	err := row.Scan(
		&r.ID, &r.Name, &r.RaceID, &r.Race, &r.Level, &r.Experience,
		&r.MaxHealth, &r.Health, &r.MaxMana, &r.Mana, &r.Damage,
		&r.AvailableStatPoints, &r.SpentStatPoints,
		&r.HealthRegenPerSecond, &r.ManaRegenPerSecond, &r.LastRegenAt,
		&r.LevelUp.HealthGain, &r.LevelUp.ManaGain, &r.LevelUp.DamageGain, &r.LevelUp.StatPointsPerLevel,
		&r.Bonuses.HealthRegen, &r.Bonuses.ManaRegen,
		&r.PersonalCurrency, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return character.Record{}, err
	}
	r.LastRegenAt = r.LastRegenAt.UTC()
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	if err := r.Validate(); err != nil {
		return character.Record{}, err
	}
	return r, nil
}
