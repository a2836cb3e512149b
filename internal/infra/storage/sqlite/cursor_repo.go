package sqlite

import (
	"context"
	"fmt"

	"github.com/vietddude/sqllogs/internal/core/domain"
	"github.com/vietddude/sqllogs/internal/infra/storage"
)

const (
	insertCursorSQL = `INSERT INTO state (chain_id, block_number, timestamp)
		VALUES (:chain_id, :block_number, :timestamp)`
	updateCursorSQL = `UPDATE state SET block_number = :block_number, timestamp = :timestamp
		WHERE chain_id = :chain_id`
	upsertCursorSQL = `INSERT INTO state (chain_id, block_number, timestamp)
		VALUES (:chain_id, :block_number, :timestamp)
		ON CONFLICT (chain_id) DO UPDATE SET
			block_number = excluded.block_number,
			timestamp = excluded.timestamp`
)

var _ storage.CursorRepository = (*CursorRepo)(nil)

// CursorRepo implements storage.CursorRepository on the state table.
type CursorRepo struct {
	db *DB
}

// NewCursorRepo creates a new SQLite cursor repository.
func NewCursorRepo(db *DB) *CursorRepo {
	return &CursorRepo{db: db}
}

// List returns all cursors ordered by chain id.
func (r *CursorRepo) List(ctx context.Context) (domain.CursorSet, error) {
	var set domain.CursorSet
	err := r.db.SelectContext(ctx, &set,
		`SELECT chain_id, block_number, timestamp FROM state ORDER BY chain_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cursors: %w", err)
	}
	return set, nil
}

// Apply writes inserts and updates in a single transaction. An update for a
// chain with no row rolls the whole batch back.
func (r *CursorRepo) Apply(ctx context.Context, inserts, updates domain.CursorSet) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, c := range inserts {
		if _, err := tx.NamedExecContext(ctx, insertCursorSQL, c); err != nil {
			return fmt.Errorf("failed to insert cursor for chain %d: %w", c.ChainID, err)
		}
	}
	for _, c := range updates {
		res, err := tx.NamedExecContext(ctx, updateCursorSQL, c)
		if err != nil {
			return fmt.Errorf("failed to update cursor for chain %d: %w", c.ChainID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("chain %d: %w", c.ChainID, storage.ErrCursorNotFound)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cursors: %w", err)
	}
	return nil
}

// Upsert inserts or overwrites one cursor.
func (r *CursorRepo) Upsert(ctx context.Context, c domain.Cursor) error {
	if _, err := r.db.NamedExecContext(ctx, upsertCursorSQL, c); err != nil {
		return fmt.Errorf("failed to upsert cursor for chain %d: %w", c.ChainID, err)
	}
	return nil
}
