package remap

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
)

// Usage accumulates the set of codebook indices observed across batches.
// It is not safe for concurrent use.
type Usage struct {
	n    int
	seen *roaring.Bitmap
}

// NewUsage tracks indices of an n-entry codebook.
func NewUsage(n int) *Usage {
	return &Usage{n: n, seen: roaring.New()}
}

// Observe records indices. Every index must be in [0, n).
func (u *Usage) Observe(indices []int64) error {
	for _, idx := range indices {
		if idx < 0 || idx >= int64(u.n) {
			return fmt.Errorf("%w: full index %d not in [0,%d)", ErrIndexOutOfRange, idx, u.n)
		}
		u.seen.Add(uint32(idx))
	}
	return nil
}

// Count returns the number of distinct indices seen.
func (u *Usage) Count() int { return int(u.seen.GetCardinality()) }

// Used returns the sorted distinct indices seen.
func (u *Usage) Used() []int64 {
	out := make([]int64, 0, u.seen.GetCardinality())
	it := u.seen.Iterator()
	for it.HasNext() {
		out = append(out, int64(it.Next()))
	}
	return out
}

// Unused returns the sorted indices of [0, n) never seen.
func (u *Usage) Unused() []int64 {
	all := roaring.New()
	all.AddRange(0, uint64(u.n))
	all.AndNot(u.seen)
	out := make([]int64, 0, all.GetCardinality())
	it := all.Iterator()
	for it.HasNext() {
		out = append(out, int64(it.Next()))
	}
	return out
}

// UsedFromIndices derives a sorted, de-duplicated used set from observed
// assignments into an n-entry codebook.
func UsedFromIndices(indices []int64, n int) ([]int64, error) {
	u := NewUsage(n)
	if err := u.Observe(indices); err != nil {
		return nil, err
	}
	return u.Used(), nil
}
