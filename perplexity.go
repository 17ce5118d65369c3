package vqlayer

import (
	"maps"
	"math"
	"slices"
)

// MeasurePerplexity returns exp(H) of the empirical index distribution and
// the number of distinct indices used. Perplexity equals n when all n
// entries are used equally and 1 when a single entry is used.
//
// Indices at or beyond n (a remapped extra slot, a fixed unknown index) are
// counted in their own bins rather than rejected. Negative indices are not
// counted in any bin.
func MeasurePerplexity(indices []int64, n int) (perplexity float64, clusterUse int) {
	counts := make([]int, max(n, 0))
	var overflow map[int64]int
	var total float64
	for _, idx := range indices {
		switch {
		case idx < 0:
			continue
		case idx < int64(len(counts)):
			counts[idx]++
		default:
			if overflow == nil {
				overflow = make(map[int64]int)
			}
			overflow[idx]++
		}
		total++
	}
	if total == 0 {
		return 1, 0
	}

	var entropy float64
	add := func(c int) {
		if c == 0 {
			return
		}
		p := float64(c) / total
		entropy -= p * math.Log(p+1e-10)
		clusterUse++
	}
	for _, c := range counts {
		add(c)
	}
	for _, idx := range slices.Sorted(maps.Keys(overflow)) {
		add(overflow[idx])
	}
	return math.Exp(entropy), clusterUse
}
