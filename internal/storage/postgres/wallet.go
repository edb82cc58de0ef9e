package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cory-johannsen/arena/internal/storage"
)

// GlobalCurrency returns the balance of the single wallet row.
func (s *Store) GlobalCurrency(ctx context.Context) (int, error) {
	var bal int
	if err := s.db.QueryRow(ctx, `SELECT balance FROM wallet WHERE id = 1`).Scan(&bal); err != nil {
		return 0, fmt.Errorf("querying wallet: %w", err)
	}
	return bal, nil
}

// AddGlobalCurrency credits the wallet.
//
// Postcondition: Returns the new balance or storage.ErrInvalidAmount for amount < 0.
func (s *Store) AddGlobalCurrency(ctx context.Context, amount int) (int, error) {
	if amount < 0 {
		return 0, storage.ErrInvalidAmount
	}
	var bal int
	err := s.db.QueryRow(ctx, `
		UPDATE wallet SET balance = balance + $1 WHERE id = 1 RETURNING balance`,
		amount,
	).Scan(&bal)
	if err != nil {
		return 0, fmt.Errorf("crediting wallet: %w", err)
	}
	return bal, nil
}

// SpendGlobalCurrency debits the wallet in a single conditional UPDATE.
//
// Postcondition: Returns the new balance, or storage.ErrInsufficientCurrency with the
// balance unchanged.
func (s *Store) SpendGlobalCurrency(ctx context.Context, amount int) (int, error) {
	if amount < 0 {
		return 0, storage.ErrInvalidAmount
	}
	return spend(ctx, s.db, amount)
}

// UnlockedItems returns every unlocked item id ordered by id.
func (s *Store) UnlockedItems(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT item_id FROM unlocked_items ORDER BY item_id`)
	if err != nil {
		return nil, fmt.Errorf("listing unlocked items: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scanning unlocked item: %w", err)
	}
	return ids, nil
}

// UnlockItem marks itemID unlocked; repeated calls are no-ops.
func (s *Store) UnlockItem(ctx context.Context, itemID string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO unlocked_items (item_id) VALUES ($1) ON CONFLICT (item_id) DO NOTHING`,
		itemID,
	)
	if err != nil {
		return fmt.Errorf("unlocking item: %w", err)
	}
	return nil
}

// PurchaseItem unlocks itemID and debits price in one transaction.
//
// Postcondition: On error the transaction is rolled back and nothing changes.
func (s *Store) PurchaseItem(ctx context.Context, itemID string, price int) (int, error) {
	if price < 0 {
		return 0, storage.ErrInvalidAmount
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning purchase: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		INSERT INTO unlocked_items (item_id) VALUES ($1) ON CONFLICT (item_id) DO NOTHING`,
		itemID,
	)
	if err != nil {
		return 0, fmt.Errorf("unlocking item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, storage.ErrAlreadyUnlocked
	}
	bal, err := spend(ctx, tx, price)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing purchase: %w", err)
	}
	return bal, nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func spend(ctx context.Context, q querier, amount int) (int, error) {
	var bal int
	err := q.QueryRow(ctx, `
		UPDATE wallet SET balance = balance - $1
		WHERE id = 1 AND balance >= $1
		RETURNING balance`,
		amount,
	).Scan(&bal)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, storage.ErrInsufficientCurrency
		}
		return 0, fmt.Errorf("debiting wallet: %w", err)
	}
	return bal, nil
}
