package cursor

import (
	"context"
	"fmt"

	"github.com/vietddude/sqllogs/internal/core/domain"
	"github.com/vietddude/sqllogs/internal/infra/storage"
)

// Manager loads and commits cursor sets.
type Manager struct {
	repo storage.CursorRepository
}

// NewManager creates a new cursor manager with the given repository.
func NewManager(repo storage.CursorRepository) *Manager {
	return &Manager{repo: repo}
}

// Previous returns the cursors persisted by the last successful run.
func (m *Manager) Previous(ctx context.Context) (domain.CursorSet, error) {
	set, err := m.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load cursors: %w", err)
	}
	return set, nil
}

// Commit writes the plan atomically. An empty plan is a no-op.
func (m *Manager) Commit(ctx context.Context, plan PersistPlan) error {
	if plan.Empty() {
		return nil
	}
	if err := m.repo.Apply(ctx, plan.Inserts, plan.Updates); err != nil {
		return fmt.Errorf("failed to commit cursors: %w", err)
	}
	return nil
}
