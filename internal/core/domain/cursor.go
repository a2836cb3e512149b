package domain

import "sort"

// Cursor is the last fully processed block for one chain.
type Cursor struct {
	ChainID     ChainID `db:"chain_id"     json:"chain_id"`
	BlockNumber uint64  `db:"block_number" json:"block_number"`
	Timestamp   int64   `db:"timestamp"    json:"timestamp"`
}

// CursorSet holds at most one cursor per chain.
type CursorSet []Cursor

// Find returns the cursor stored for chainID.
func (s CursorSet) Find(chainID ChainID) (Cursor, bool) {
	for _, c := range s {
		if c.ChainID == chainID {
			return c, true
		}
	}
	return Cursor{}, false
}

// Contains reports whether an entry equal on chain, block and timestamp exists.
func (s CursorSet) Contains(c Cursor) bool {
	for _, item := range s {
		if item == c {
			return true
		}
	}
	return false
}

// Sorted returns a copy ordered by chain id.
func (s CursorSet) Sorted() CursorSet {
	out := make(CursorSet, len(s))
	copy(out, s)
	sort.Slice(out, func(i, j int) bool { return out[i].ChainID < out[j].ChainID })
	return out
}

// BlockRange is the half-open window (FromExclusive, ToInclusive] of one chain
// that still has to be scanned for events.
type BlockRange struct {
	ChainID       ChainID
	FromExclusive uint64
	ToInclusive   uint64
}

// Empty reports whether the range contains no blocks.
func (r BlockRange) Empty() bool {
	return r.FromExclusive >= r.ToInclusive
}
