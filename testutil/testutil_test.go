package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRNG_Reset(t *testing.T) {
	rng := NewRNG(4711)
	a := rng.Intn(1 << 30)
	rng.Reset()
	assert.Equal(t, a, rng.Intn(1<<30))
	assert.Equal(t, int64(4711), rng.Seed())
}

func TestRNG_RandIsDeterministic(t *testing.T) {
	a := NewRNG(1).Rand().Int63()
	b := NewRNG(1).Rand().Int63()
	assert.Equal(t, a, b)
}

func TestFillUniform(t *testing.T) {
	rng := NewRNG(4711)
	v := make([]float32, 64)
	rng.FillUniform(v, -0.5, 0.5)
	for _, x := range v {
		assert.GreaterOrEqual(t, x, float32(-0.5))
		assert.Less(t, x, float32(0.5))
	}
}

func TestFeatureMap(t *testing.T) {
	z := NewRNG(4711).FeatureMap(2, 3, 4, 5)
	assert.Equal(t, []int{2, 3, 4, 5}, z.Shape())
	assert.Equal(t, 120, z.Len())
}

func TestClusteredPoints(t *testing.T) {
	pts := NewRNG(4711).ClusteredPoints(40, 8, 4, 0.01)
	require.Len(t, pts, 320)

	// Points of the same cluster are much closer than the spread of unit centroids.
	var d float32
	for j := 0; j < 8; j++ {
		diff := pts[j] - pts[4*8+j]
		d += diff * diff
	}
	assert.Less(t, d, float32(0.1))
}

func TestExactNearest(t *testing.T) {
	cb := GridCodebook()
	got := ExactNearest([]float32{1, 1, 9, 1, 4, 6, 5, 5}, cb, 2)
	// (5,5) is equidistant to all four entries: first index wins.
	assert.Equal(t, []int64{0, 1, 2, 0}, got)
}

func TestMSE(t *testing.T) {
	assert.InDelta(t, 1.0, MSE([]float32{1, 1}, []float32{0, 0}), 1e-12)
	assert.Zero(t, MSE(nil, nil))
}
