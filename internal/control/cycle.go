package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vietddude/sqllogs/internal/core/cursor"
	"github.com/vietddude/sqllogs/internal/core/domain"
	"github.com/vietddude/sqllogs/internal/indexing/emitter"
	"github.com/vietddude/sqllogs/internal/indexing/metrics"
	"github.com/vietddude/sqllogs/internal/infra/storage"
	"github.com/vietddude/sqllogs/internal/infra/vault"
)

// RunContext carries everything one cycle touches. It is built once per
// invocation after bootstrap.
type RunContext struct {
	RunID     string
	Vault     string
	StatePath string

	Cursors    storage.CursorRepository
	Source     ChainSource
	Classifier *cursor.Classifier
	Mirror     Mirror
	Signer     vault.FileSigner
	Notifier   Notifier
	Log        *slog.Logger
}

// CycleResult describes a finished cycle.
type CycleResult struct {
	RunID     string
	Plan      cursor.Plan
	Fetched   int
	Partition domain.Partition
	Report    emitter.Report
}

// RunCycle reconciles cursors, fetches the new events, persists the advanced
// cursors, mirrors the state file and posts the events, in that order.
//
// Anything failing before the commit leaves no trace and the next run
// derives the same plan. A failed mirror keeps the local commit but sends
// nothing; the next run restores the older snapshot and replays those
// ranges. Notification failures are logged and do not fail the cycle.
func RunCycle(ctx context.Context, rc *RunContext) (*CycleResult, error) {
	log := rc.Log
	if log == nil {
		log = slog.Default()
	}
	manager := cursor.NewManager(rc.Cursors)

	previous, err := manager.Previous(ctx)
	if err != nil {
		return nil, err
	}

	fresh, err := rc.Source.FetchLatestCursors(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest cursors: %w", err)
	}

	plan := cursor.NewPlan(previous, fresh)
	log.Info("Cursor plan",
		"previous", len(plan.Previous),
		"fresh", len(plan.Fresh),
		"delta", len(plan.Delta),
		"queryable", len(plan.Queryable),
		"first_run", plan.FirstRun(),
	)

	var events []domain.RawEvent
	for _, r := range plan.Queryable {
		batch, err := rc.Source.FetchEvents(ctx, r)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch events for chain %d (%d, %d]: %w",
				r.ChainID, r.FromExclusive, r.ToInclusive, err)
		}
		metrics.EventsFetched.WithLabelValues(r.ChainID.String()).Add(float64(len(batch)))
		log.Debug("Fetched events", "chain", r.ChainID, "from", r.FromExclusive, "to", r.ToInclusive, "count", len(batch))
		events = append(events, batch...)
	}

	partition := rc.Classifier.Classify(events)

	if err := manager.Commit(ctx, plan.Persist); err != nil {
		return nil, err
	}
	for _, c := range plan.Delta {
		metrics.CursorBlock.WithLabelValues(c.ChainID.String()).Set(float64(c.BlockNumber))
	}

	if err := rc.Mirror.WriteFile(ctx, rc.Vault, rc.StatePath, rc.Signer); err != nil {
		return nil, fmt.Errorf("failed to mirror state: %w", err)
	}

	result := &CycleResult{
		RunID:     rc.RunID,
		Plan:      plan,
		Fetched:   len(events),
		Partition: partition,
	}
	if partition.Len() > 0 {
		result.Report = rc.Notifier.Dispatch(ctx, partition)
	}

	log.Info("Cycle complete",
		"events", len(events),
		"internal", len(partition.Internal),
		"external", len(partition.External),
	)
	return result, nil
}
