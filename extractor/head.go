package extractor

import (
	"context"
	"fmt"

	"github.com/hupe1980/vqlayer/tensor"
	"gonum.org/v1/gonum/mat"
)

// LinearHead is a fully connected projection y = xWᵀ + b.
type LinearHead struct {
	w    *mat.Dense // out x in
	bias []float64
}

// NewLinearHead creates a head from row-major weights (out x in) and an
// optional bias of length out.
func NewLinearHead(weights []float32, in, out int, bias []float32) (*LinearHead, error) {
	if in <= 0 || out <= 0 || len(weights) != in*out {
		return nil, fmt.Errorf("%w: %d weights for a %d -> %d projection", tensor.ErrShape, len(weights), in, out)
	}
	if bias != nil && len(bias) != out {
		return nil, fmt.Errorf("%w: bias has %d values, want %d", tensor.ErrShape, len(bias), out)
	}
	w := make([]float64, len(weights))
	for i, v := range weights {
		w[i] = float64(v)
	}
	h := &LinearHead{w: mat.NewDense(out, in, w), bias: make([]float64, out)}
	for i, v := range bias {
		h.bias[i] = float64(v)
	}
	return h, nil
}

// Forward implements Head.
func (h *LinearHead) Forward(_ context.Context, pooled *tensor.Dense) (*tensor.Dense, error) {
	out, in := h.w.Dims()
	if pooled.Dims() != 2 || pooled.Dim(1) != in {
		return nil, fmt.Errorf("%w: head expects (B, %d), got %v", tensor.ErrShape, in, pooled.Shape())
	}
	rows := pooled.Dim(0)
	if rows == 0 {
		return tensor.NewDense(0, out)
	}

	x := make([]float64, pooled.Len())
	for i, v := range pooled.Data() {
		x[i] = float64(v)
	}
	var y mat.Dense
	y.Mul(mat.NewDense(rows, in, x), h.w.T())

	res := make([]float32, rows*out)
	for r := 0; r < rows; r++ {
		for c := 0; c < out; c++ {
			res[r*out+c] = float32(y.At(r, c) + h.bias[c])
		}
	}
	return tensor.FromSlice(res, rows, out)
}
