// Package codebook holds the learnable table of code vectors a quantizer
// snaps features to.
package codebook

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"slices"

	"github.com/hupe1980/vqlayer/distance"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrIndexOutOfRange is returned when an index is outside [0, Len()).
	ErrIndexOutOfRange = errors.New("codebook: index out of range")

	// ErrInvalidSize is returned for non-positive sizes or mismatched data.
	ErrInvalidSize = errors.New("codebook: invalid size")
)

// Init selects how a new codebook is filled.
type Init int

const (
	// InitUniform draws every coordinate uniformly from [-100/n, 100/n].
	InitUniform Init = iota
	// InitNormal draws every coordinate from the standard normal distribution.
	InitNormal
)

func (i Init) String() string {
	switch i {
	case InitUniform:
		return "uniform"
	case InitNormal:
		return "normal"
	default:
		return fmt.Sprintf("Init(%d)", int(i))
	}
}

// Codebook is an n x dim row-major table of float32 entries.
//
// Entries are mutable parameters; Weights exposes the backing slice to the
// optimizer. Index identities are stable for the lifetime of a Codebook.
type Codebook struct {
	n    int
	dim  int
	data []float32
}

// New allocates an n x dim codebook filled according to init.
func New(n, dim int, init Init, rng *rand.Rand) (*Codebook, error) {
	if n <= 0 || dim <= 0 {
		return nil, fmt.Errorf("%w: n=%d dim=%d", ErrInvalidSize, n, dim)
	}
	if rng == nil {
		return nil, errors.New("codebook: nil random source")
	}
	data := make([]float32, n*dim)
	switch init {
	case InitUniform:
		bound := 100.0 / float64(n)
		for i := range data {
			data[i] = float32(-bound + 2*bound*rng.Float64())
		}
	case InitNormal:
		for i := range data {
			data[i] = float32(rng.NormFloat64())
		}
	default:
		return nil, fmt.Errorf("codebook: unknown init %v", init)
	}
	return &Codebook{n: n, dim: dim, data: data}, nil
}

// FromCentroids wraps a copy of n*dim centroid values as a codebook.
func FromCentroids(centroids []float32, n, dim int) (*Codebook, error) {
	if n <= 0 || dim <= 0 || len(centroids) != n*dim {
		return nil, fmt.Errorf("%w: %d values for %d x %d", ErrInvalidSize, len(centroids), n, dim)
	}
	return &Codebook{n: n, dim: dim, data: slices.Clone(centroids)}, nil
}

// Len returns the number of entries.
func (c *Codebook) Len() int { return c.n }

// Dim returns the entry dimension.
func (c *Codebook) Dim() int { return c.dim }

// Weights returns the backing n*dim slice. Writes update the codebook.
func (c *Codebook) Weights() []float32 { return c.data }

// Clone returns a deep copy.
func (c *Codebook) Clone() *Codebook {
	return &Codebook{n: c.n, dim: c.dim, data: slices.Clone(c.data)}
}

// Entry returns a view of entry i.
func (c *Codebook) Entry(i int) ([]float32, error) {
	if i < 0 || i >= c.n {
		return nil, fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, i, c.n)
	}
	return c.data[i*c.dim : (i+1)*c.dim : (i+1)*c.dim], nil
}

// Lookup gathers the entries for indices into a new len(indices)*dim slice.
func (c *Codebook) Lookup(indices []int64) ([]float32, error) {
	out := make([]float32, len(indices)*c.dim)
	for i, idx := range indices {
		if idx < 0 || idx >= int64(c.n) {
			return nil, fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, idx, c.n)
		}
		copy(out[i*c.dim:(i+1)*c.dim], c.data[int(idx)*c.dim:(int(idx)+1)*c.dim])
	}
	return out, nil
}

// Nearest returns, for each dim-sized row of points, the index of the entry
// with the smallest squared Euclidean distance. Distances are expanded as
// ‖p‖² + ‖e‖² − 2·p·e; ties resolve to the lowest index.
func (c *Codebook) Nearest(points []float32) ([]int64, error) {
	if len(points)%c.dim != 0 {
		return nil, fmt.Errorf("%w: %d values are not a multiple of dim %d", ErrInvalidSize, len(points), c.dim)
	}
	m := len(points) / c.dim
	out := make([]int64, m)
	if m == 0 {
		return out, nil
	}

	p := mat.NewDense(m, c.dim, toFloat64(points))
	e := mat.NewDense(c.n, c.dim, toFloat64(c.data))

	var cross mat.Dense
	cross.Mul(p, e.T())

	entryNorms := make([]float64, c.n)
	for j := 0; j < c.n; j++ {
		entryNorms[j] = float64(distance.SquaredNorm(c.data[j*c.dim : (j+1)*c.dim]))
	}

	for i := 0; i < m; i++ {
		pn := float64(distance.SquaredNorm(points[i*c.dim : (i+1)*c.dim]))
		best := math.Inf(1)
		for j := 0; j < c.n; j++ {
			d := pn + entryNorms[j] - 2*cross.At(i, j)
			if d < best {
				best = d
				out[i] = int64(j)
			}
		}
	}
	return out, nil
}

func toFloat64(src []float32) []float64 {
	out := make([]float64, len(src))
	for i, v := range src {
		out[i] = float64(v)
	}
	return out
}
