package control

import (
	"context"

	"github.com/vietddude/sqllogs/internal/core/domain"
	"github.com/vietddude/sqllogs/internal/indexing/emitter"
	"github.com/vietddude/sqllogs/internal/infra/vault"
)

// ChainSource reports cursors and the events between them.
type ChainSource interface {
	// FetchLatestCursors returns the newest indexed block of every chain
	FetchLatestCursors(ctx context.Context) (domain.CursorSet, error)

	// FetchEvents returns the SQL events of a range in block order
	FetchEvents(ctx context.Context, r domain.BlockRange) ([]domain.RawEvent, error)
}

// Mirror uploads the signed cursor file.
type Mirror interface {
	WriteFile(ctx context.Context, vault, path string, signer vault.FileSigner) error
}

// Notifier delivers classified events.
type Notifier interface {
	Dispatch(ctx context.Context, p domain.Partition) emitter.Report
}
