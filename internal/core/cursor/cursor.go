// Package cursor reconciles the per-chain block cursors persisted by the
// previous run with the cursors reported by the indexing service.
//
// # Purpose
//
// A cursor remembers the last block whose events were reported for a chain.
// Each run compares the stored set with a fresh one and derives:
//   - the delta: fresh entries not matched on (chain, block, timestamp)
//   - block ranges (from, to] to scan for SQL events
//   - a persistence plan: UPDATE for known chains, INSERT for new ones
//
// # Safety
//
// Derivation is pure, so an interrupted run re-derives the identical plan
// from the same stored cursors. A chain seen for the first time produces an
// empty range (from == to) and is only recorded; nothing older is replayed.
//
//	plan := cursor.NewPlan(previous, fresh)
//	for _, r := range plan.Queryable {
//	    events, _ := client.FetchEvents(ctx, r)
//	    ...
//	}
//	manager.Commit(ctx, plan.Persist)
//
// # Package Structure
//
//   - delta.go    - delta, range and persistence derivation
//   - classify.go - healthbot filtering and internal/external routing
//   - manager.go  - loads and commits cursor sets through the repository
package cursor

import "github.com/vietddude/sqllogs/internal/core/domain"

// Plan is everything derived from one (previous, fresh) pair.
type Plan struct {
	Previous domain.CursorSet
	Fresh    domain.CursorSet
	Delta    domain.CursorSet
	// Ranges has one entry per delta cursor, empty ranges included.
	Ranges []domain.BlockRange
	// Queryable is Ranges without empty ones.
	Queryable []domain.BlockRange
	Persist   PersistPlan
}

// NewPlan derives the reconciliation plan for one run.
func NewPlan(previous, fresh domain.CursorSet) Plan {
	delta := Delta(previous, fresh)
	ranges := Ranges(previous, delta)
	return Plan{
		Previous:  previous,
		Fresh:     fresh,
		Delta:     delta,
		Ranges:    ranges,
		Queryable: Queryable(ranges),
		Persist:   PlanPersist(previous, delta),
	}
}

// FirstRun reports whether nothing was persisted before this run.
func (p Plan) FirstRun() bool {
	return len(p.Previous) == 0
}
