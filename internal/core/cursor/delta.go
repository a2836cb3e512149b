package cursor

import "github.com/vietddude/sqllogs/internal/core/domain"

// Delta returns the fresh cursors with no exact (chain, block, timestamp)
// match in previous. A changed timestamp on an unchanged block still counts.
func Delta(previous, fresh domain.CursorSet) domain.CursorSet {
	delta := make(domain.CursorSet, 0, len(fresh))
	for _, c := range fresh {
		if !previous.Contains(c) {
			delta = append(delta, c)
		}
	}
	return delta
}

// Ranges maps each delta cursor to the block range still to be scanned.
// Chains without a previous cursor get from == to.
func Ranges(previous, delta domain.CursorSet) []domain.BlockRange {
	ranges := make([]domain.BlockRange, 0, len(delta))
	for _, d := range delta {
		from := d.BlockNumber
		if prev, ok := previous.Find(d.ChainID); ok {
			from = prev.BlockNumber
		}
		ranges = append(ranges, domain.BlockRange{
			ChainID:       d.ChainID,
			FromExclusive: from,
			ToInclusive:   d.BlockNumber,
		})
	}
	return ranges
}

// Queryable drops ranges that contain no blocks.
func Queryable(ranges []domain.BlockRange) []domain.BlockRange {
	out := make([]domain.BlockRange, 0, len(ranges))
	for _, r := range ranges {
		if r.Empty() {
			continue
		}
		out = append(out, r)
	}
	return out
}

// PersistPlan splits delta cursors into rows to update and rows to insert.
// The store keys rows by chain id, so the two are not interchangeable.
type PersistPlan struct {
	Inserts domain.CursorSet
	Updates domain.CursorSet
}

// Empty reports whether nothing has to be written.
func (p PersistPlan) Empty() bool {
	return len(p.Inserts) == 0 && len(p.Updates) == 0
}

// PlanPersist decides how each delta cursor reaches the store. On a first
// run every cursor is inserted.
func PlanPersist(previous, delta domain.CursorSet) PersistPlan {
	var plan PersistPlan
	for _, d := range delta {
		if _, ok := previous.Find(d.ChainID); ok {
			plan.Updates = append(plan.Updates, d)
		} else {
			plan.Inserts = append(plan.Inserts, d)
		}
	}
	return plan
}
