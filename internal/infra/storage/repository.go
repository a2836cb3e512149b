package storage

import (
	"context"
	"errors"

	"github.com/vietddude/sqllogs/internal/core/domain"
)

var (
	// ErrCursorNotFound is returned when an update targets a chain with no row.
	ErrCursorNotFound = errors.New("cursor not found")
)

// CursorRepository handles cursor storage operations
type CursorRepository interface {
	// List returns every stored cursor ordered by chain id
	List(ctx context.Context) (domain.CursorSet, error)

	// Apply inserts and updates cursors in one transaction
	Apply(ctx context.Context, inserts, updates domain.CursorSet) error

	// Upsert overwrites a single cursor (operator reset)
	Upsert(ctx context.Context, cursor domain.Cursor) error
}
