package cluster

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"time"

	"github.com/hupe1980/vqlayer/distance"
	"golang.org/x/sync/errgroup"
)

// KMeans is a CPU Lloyd's k-means Clusterer.
type KMeans struct {
	// Workers bounds the assignment fan-out. Zero uses GOMAXPROCS.
	Workers int
}

var _ Clusterer = (*KMeans)(nil)

// Cluster trains k centroids from data using Lloyd's algorithm.
func (km *KMeans) Cluster(ctx context.Context, data []float32, dim, k int, cfg Config) ([]float32, error) {
	if dim <= 0 || k <= 0 {
		return nil, fmt.Errorf("%w: dim=%d k=%d", ErrInvalidInput, dim, k)
	}
	if len(data)%dim != 0 {
		return nil, fmt.Errorf("%w: %d values are not a multiple of dim %d", ErrInvalidInput, len(data), dim)
	}
	cfg = cfg.withDefaults()
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	n := len(data) / dim
	if n < k*cfg.MinPointsPerCentroid {
		return nil, fmt.Errorf("%w: %d points for %d centroids (min %d per centroid)",
			ErrInsufficientSamples, n, k, cfg.MinPointsPerCentroid)
	}

	if maxPoints := int64(k) * int64(cfg.MaxPointsPerCentroid); int64(n) > maxPoints {
		data = subsample(data, dim, int(maxPoints), rng)
		n = int(maxPoints)
	}

	centroids := make([]float32, k*dim)

	// Initialize centroids randomly from data points
	perm := rng.Perm(n)
	for i := 0; i < k; i++ {
		copy(centroids[i*dim:(i+1)*dim], data[perm[i]*dim:(perm[i]+1)*dim])
	}

	assignments := make([]int, n)
	for i := range assignments {
		assignments[i] = -1
	}
	counts := make([]int, k)
	sums := make([]float64, k*dim)

	for iter := 0; iter < cfg.Iterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		changed, err := km.assign(ctx, data, dim, centroids, assignments)
		if err != nil {
			return nil, err
		}
		if !changed {
			break
		}

		// Update step
		clear(sums)
		clear(counts)
		for i := 0; i < n; i++ {
			c := assignments[i]
			vec := data[i*dim : (i+1)*dim]
			for d := 0; d < dim; d++ {
				sums[c*dim+d] += float64(vec[d])
			}
			counts[c]++
		}

		for j := 0; j < k; j++ {
			if counts[j] > 0 {
				scale := 1.0 / float64(counts[j])
				for d := 0; d < dim; d++ {
					centroids[j*dim+d] = float32(sums[j*dim+d] * scale)
				}
			} else {
				// Re-seed an empty cluster with a random point
				idx := rng.Intn(n)
				copy(centroids[j*dim:(j+1)*dim], data[idx*dim:(idx+1)*dim])
			}
		}
	}

	return centroids, nil
}

// assign sets every point's nearest centroid and reports whether any changed.
func (km *KMeans) assign(ctx context.Context, data []float32, dim int, centroids []float32, assignments []int) (bool, error) {
	n := len(assignments)
	k := len(centroids) / dim

	workers := km.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	chunk := (n + workers - 1) / workers
	if chunk < 256 {
		chunk = 256
	}

	changedChunks := make([]bool, (n+chunk-1)/chunk)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for c, start := 0, 0; start < n; c, start = c+1, start+chunk {
		end := min(start+chunk, n)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				best := nearest(data[i*dim:(i+1)*dim], centroids, dim, k)
				if assignments[i] != best {
					assignments[i] = best
					changedChunks[c] = true
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return false, err
	}

	for _, ch := range changedChunks {
		if ch {
			return true, nil
		}
	}
	return false, nil
}

func nearest(vec, centroids []float32, dim, k int) int {
	best := 0
	minDist := float32(math.MaxFloat32)
	for j := 0; j < k; j++ {
		d := distance.SquaredL2(vec, centroids[j*dim:(j+1)*dim])
		if d < minDist {
			minDist = d
			best = j
		}
	}
	return best
}

// subsample draws m rows uniformly without replacement.
func subsample(data []float32, dim, m int, rng *rand.Rand) []float32 {
	n := len(data) / dim
	perm := rng.Perm(n)[:m]
	out := make([]float32, m*dim)
	for i, p := range perm {
		copy(out[i*dim:(i+1)*dim], data[p*dim:(p+1)*dim])
	}
	return out
}
