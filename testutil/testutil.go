package testutil

import (
	"math"
	"math/rand"
	"sync"

	"github.com/hupe1980/vqlayer/distance"
	"github.com/hupe1980/vqlayer/tensor"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Rand returns an independent *rand.Rand seeded from this RNG, for APIs that
// take an explicit random source.
func (r *RNG) Rand() *rand.Rand {
	r.mu.Lock()
	defer r.mu.Unlock()
	return rand.New(rand.NewSource(r.rand.Int63()))
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// FillUniform fills dst with values in [minVal, maxVal).
func (r *RNG) FillUniform(dst []float32, minVal, maxVal float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	span := maxVal - minVal
	for i := range dst {
		dst[i] = minVal + r.rand.Float32()*span
	}
}

// FillGaussian fills dst with standard normal values.
func (r *RNG) FillGaussian(dst []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = float32(r.rand.NormFloat64())
	}
}

// FeatureMap returns a (b, c, h, w) tensor of standard normal values.
func (r *RNG) FeatureMap(b, c, h, w int) *tensor.Dense {
	t, err := tensor.NewDense(b, c, h, w)
	if err != nil {
		panic(err)
	}
	r.FillGaussian(t.Data())
	return t
}

// ClusteredPoints generates num points of dimension dim scattered around
// clusters Gaussian centroids with the given spread. Point i belongs to
// cluster i % clusters. The result is flat (num*dim).
func (r *RNG) ClusteredPoints(num, dim, clusters int, spread float32) []float32 {
	centroids := make([]float32, clusters*dim)
	r.FillGaussian(centroids)
	for c := 0; c < clusters; c++ {
		distance.NormalizeL2InPlace(centroids[c*dim : (c+1)*dim])
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]float32, num*dim)
	for i := range num {
		centroid := centroids[(i%clusters)*dim : (i%clusters+1)*dim]
		vec := out[i*dim : (i+1)*dim]
		for j := range dim {
			vec[j] = centroid[j] + float32(r.rand.NormFloat64())*spread
		}
	}
	return out
}

// GridCodebook returns the 4 x 2 codebook {(0,0), (10,0), (0,10), (10,10)}.
func GridCodebook() []float32 {
	return []float32{0, 0, 10, 0, 0, 10, 10, 10}
}

// ExactNearest returns, for every dim-sized row of points, the index of the
// closest entry of codebook by brute-force squared L2 (first index on ties).
func ExactNearest(points, codebook []float32, dim int) []int64 {
	n := len(codebook) / dim
	out := make([]int64, len(points)/dim)
	for i := range out {
		p := points[i*dim : (i+1)*dim]
		best := float32(math.MaxFloat32)
		for j := 0; j < n; j++ {
			if d := distance.SquaredL2(p, codebook[j*dim:(j+1)*dim]); d < best {
				best = d
				out[i] = int64(j)
			}
		}
	}
	return out
}

// MSE returns the mean squared difference of a and b in float64.
func MSE(a, b []float32) float64 {
	if len(a) == 0 {
		return 0
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum / float64(len(a))
}
