package vqlayer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeasurePerplexity(t *testing.T) {
	tests := []struct {
		name       string
		indices    []int64
		n          int
		perplexity float64
		use        int
	}{
		{"SingleEntry", []int64{2, 2, 2, 2}, 4, 1, 1},
		{"Uniform", []int64{0, 1, 2, 3}, 4, 4, 4},
		{"TwoOfFour", []int64{0, 0, 3, 3}, 4, 2, 2},
		{"Skewed", []int64{0, 0, 0, 1}, 4, math.Exp(-(0.75*math.Log(0.75) + 0.25*math.Log(0.25))), 2},
		{"ExtraSlotBeyondN", []int64{0, 4}, 4, 2, 2},
		{"NegativeIgnored", []int64{-1, 1}, 4, 1, 1},
		{"FarBeyondN", []int64{0, math.MaxInt64, 1 << 40, 1 << 40}, 4, math.Exp(-(0.5*math.Log(0.5) + 2*0.25*math.Log(0.25))), 3},
		{"NoBinsButIndices", []int64{3, 3}, 0, 1, 1},
		{"Empty", nil, 4, 1, 0},
		{"NoBins", nil, 0, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, use := MeasurePerplexity(tt.indices, tt.n)
			assert.InDelta(t, tt.perplexity, p, 1e-6)
			assert.Equal(t, tt.use, use)
		})
	}
}

func TestMeasurePerplexity_Bounds(t *testing.T) {
	indices := []int64{0, 5, 5, 7, 1, 1, 1, 2, 6, 6}
	p, use := MeasurePerplexity(indices, 8)
	assert.GreaterOrEqual(t, p, 1.0)
	assert.LessOrEqual(t, p, float64(use)+1e-9)
	assert.Equal(t, 6, use)
}
