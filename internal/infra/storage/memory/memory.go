package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/vietddude/sqllogs/internal/core/domain"
	"github.com/vietddude/sqllogs/internal/infra/storage"
)

// MemoryStorage keeps cursors in a map. Used for dry runs and tests.
type MemoryStorage struct {
	cursors map[domain.ChainID]domain.Cursor
	mu      sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		cursors: make(map[domain.ChainID]domain.Cursor),
	}
}

// -----------------------------------------------------------------------------
// Cursor Repository
// -----------------------------------------------------------------------------

var _ storage.CursorRepository = (*CursorRepo)(nil)

type CursorRepo struct {
	store *MemoryStorage
}

func NewCursorRepo(store *MemoryStorage) *CursorRepo {
	return &CursorRepo{store: store}
}

func (r *CursorRepo) List(ctx context.Context) (domain.CursorSet, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	set := make(domain.CursorSet, 0, len(r.store.cursors))
	for _, c := range r.store.cursors {
		set = append(set, c)
	}
	return set.Sorted(), nil
}

// Apply validates the whole batch before touching the map so a failed batch
// leaves nothing behind, like the SQL transaction does.
func (r *CursorRepo) Apply(ctx context.Context, inserts, updates domain.CursorSet) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	seen := make(map[domain.ChainID]bool, len(inserts))
	for _, c := range inserts {
		if _, ok := r.store.cursors[c.ChainID]; ok || seen[c.ChainID] {
			return fmt.Errorf("cursor for chain %d already exists", c.ChainID)
		}
		seen[c.ChainID] = true
	}
	for _, c := range updates {
		if _, ok := r.store.cursors[c.ChainID]; !ok {
			return fmt.Errorf("chain %d: %w", c.ChainID, storage.ErrCursorNotFound)
		}
	}

	for _, c := range inserts {
		r.store.cursors[c.ChainID] = c
	}
	for _, c := range updates {
		r.store.cursors[c.ChainID] = c
	}
	return nil
}

func (r *CursorRepo) Upsert(ctx context.Context, c domain.Cursor) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.cursors[c.ChainID] = c
	return nil
}
