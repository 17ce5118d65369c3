package tensor

import (
	"fmt"
	"math"
)

// ToChannelsLast converts a (B, C, H, W) tensor to (B, H, W, C).
func ToChannelsLast[T Element](t *Tensor[T]) (*Tensor[T], error) {
	if t.Dims() != 4 {
		return nil, fmt.Errorf("%w: expected 4 axes (B, C, H, W), got %v", ErrShape, t.shape)
	}
	return t.Permute(0, 2, 3, 1)
}

// ToChannelsFirst converts a (B, H, W, C) tensor to (B, C, H, W).
func ToChannelsFirst[T Element](t *Tensor[T]) (*Tensor[T], error) {
	if t.Dims() != 4 {
		return nil, fmt.Errorf("%w: expected 4 axes (B, H, W, C), got %v", ErrShape, t.shape)
	}
	return t.Permute(0, 3, 1, 2)
}

// GlobalAvgPool averages every channel of a (B, C, H, W) map over H and W,
// returning (B, C).
func GlobalAvgPool(t *Dense) (*Dense, error) {
	return globalPool(t, func(plane []float32) float32 {
		var sum float64
		for _, v := range plane {
			sum += float64(v)
		}
		return float32(sum / float64(len(plane)))
	})
}

// GlobalMaxPool takes the maximum of every channel of a (B, C, H, W) map over
// H and W, returning (B, C).
func GlobalMaxPool(t *Dense) (*Dense, error) {
	return globalPool(t, func(plane []float32) float32 {
		m := float32(math.Inf(-1))
		for _, v := range plane {
			if v > m {
				m = v
			}
		}
		return m
	})
}

func globalPool(t *Dense, reduce func([]float32) float32) (*Dense, error) {
	if t.Dims() != 4 {
		return nil, fmt.Errorf("%w: pooling expects (B, C, H, W), got %v", ErrShape, t.shape)
	}
	b, c, h, w := t.shape[0], t.shape[1], t.shape[2], t.shape[3]
	if h*w == 0 {
		return nil, fmt.Errorf("%w: pooling over empty spatial extent %v", ErrShape, t.shape)
	}
	out := make([]float32, b*c)
	plane := h * w
	for i := range out {
		out[i] = reduce(t.data[i*plane : (i+1)*plane])
	}
	return &Dense{shape: []int{b, c}, data: out}, nil
}
