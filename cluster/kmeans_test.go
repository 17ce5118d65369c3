package cluster

import (
	"context"
	"math/rand"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blobs returns points scattered tightly around each center.
func blobs(rng *rand.Rand, centers [][]float32, perCenter int) []float32 {
	dim := len(centers[0])
	out := make([]float32, 0, len(centers)*perCenter*dim)
	for _, c := range centers {
		for i := 0; i < perCenter; i++ {
			for d := 0; d < dim; d++ {
				out = append(out, c[d]+float32(rng.NormFloat64()*0.05))
			}
		}
	}
	return out
}

func TestKMeans_SeparatedClusters(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	centers := [][]float32{{0}, {10}}
	data := blobs(rng, centers, 50)

	cfg := DefaultConfig()
	cfg.Rand = rand.New(rand.NewSource(1))
	km := &KMeans{Workers: 4}

	got, err := km.Cluster(context.Background(), data, 1, 2, cfg)
	require.NoError(t, err)
	require.Len(t, got, 2)

	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	assert.InDelta(t, 0, got[0], 0.1)
	assert.InDelta(t, 10, got[1], 0.1)
}

func TestKMeans_Deterministic(t *testing.T) {
	data := blobs(rand.New(rand.NewSource(3)), [][]float32{{1, 1, 1}, {-1, -1, -1}}, 40)

	run := func() []float32 {
		cfg := DefaultConfig()
		cfg.Rand = rand.New(rand.NewSource(42))
		out, err := (&KMeans{}).Cluster(context.Background(), data, 3, 2, cfg)
		require.NoError(t, err)
		return out
	}
	assert.Equal(t, run(), run())
}

func TestKMeans_InsufficientSamples(t *testing.T) {
	data := []float32{0, 0, 1, 1, 2, 2}
	_, err := (&KMeans{}).Cluster(context.Background(), data, 2, 4, Config{})
	assert.ErrorIs(t, err, ErrInsufficientSamples)

	cfg := Config{MinPointsPerCentroid: 2}
	_, err = (&KMeans{}).Cluster(context.Background(), data, 2, 2, cfg)
	assert.ErrorIs(t, err, ErrInsufficientSamples)
}

func TestKMeans_InvalidInput(t *testing.T) {
	km := &KMeans{}
	_, err := km.Cluster(context.Background(), []float32{1, 2, 3}, 2, 1, Config{})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = km.Cluster(context.Background(), []float32{1, 2}, 0, 1, Config{})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = km.Cluster(context.Background(), []float32{1, 2}, 2, 0, Config{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestKMeans_SubsamplesAboveMax(t *testing.T) {
	// 100 distinct 1-D points, at most 5 per centroid for k=2: the centroids
	// must come from a 10-point subsample, which is still inside the data range.
	data := make([]float32, 100)
	for i := range data {
		data[i] = float32(i)
	}
	cfg := Config{MaxPointsPerCentroid: 5, Rand: rand.New(rand.NewSource(9))}
	got, err := (&KMeans{}).Cluster(context.Background(), data, 1, 2, cfg)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, c := range got {
		assert.GreaterOrEqual(t, c, float32(0))
		assert.LessOrEqual(t, c, float32(99))
	}
}

func TestKMeans_KEqualsN(t *testing.T) {
	data := []float32{5, 1, 3}
	cfg := Config{Rand: rand.New(rand.NewSource(2))}
	got, err := (&KMeans{}).Cluster(context.Background(), data, 1, 3, cfg)
	require.NoError(t, err)
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	assert.Equal(t, []float32{1, 3, 5}, got)
}

func TestKMeans_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&KMeans{}).Cluster(ctx, []float32{0, 1, 2, 3}, 1, 2, Config{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClustererFunc(t *testing.T) {
	var called bool
	f := ClustererFunc(func(_ context.Context, data []float32, dim, k int, cfg Config) ([]float32, error) {
		called = true
		assert.Equal(t, 20, cfg.Iterations)
		return make([]float32, k*dim), nil
	})
	out, err := f.Cluster(context.Background(), []float32{1, 2}, 2, 1, DefaultConfig())
	require.NoError(t, err)
	assert.True(t, called)
	assert.Len(t, out, 2)
}

func TestCPUDevice(t *testing.T) {
	var d Device = CPU{}
	assert.True(t, strings.HasPrefix(d.Name(), "cpu/"))
	assert.NoError(t, d.EmptyCache())
}
