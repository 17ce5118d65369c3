// Package tensor provides the small dense tensor types the quantizer operates on.
//
// Tensors are row-major (C order) and own a flat backing slice. Reshape shares
// the backing slice; Permute always copies.
package tensor

import (
	"errors"
	"fmt"
	"slices"
)

// ErrShape is returned for invalid shapes, reshapes and permutations.
var ErrShape = errors.New("tensor: invalid shape")

// Element is the set of element types a Tensor can hold.
type Element interface {
	~float32 | ~int64
}

// Tensor is an n-dimensional row-major array.
type Tensor[T Element] struct {
	shape []int
	data  []T
}

// Dense is a float32 tensor (feature maps, quantized outputs, gradients).
type Dense = Tensor[float32]

// Index is an int64 tensor (codebook indices).
type Index = Tensor[int64]

// New allocates a zero-filled tensor with the given shape.
func New[T Element](shape ...int) (*Tensor[T], error) {
	n, err := numel(shape)
	if err != nil {
		return nil, err
	}
	return &Tensor[T]{shape: slices.Clone(shape), data: make([]T, n)}, nil
}

// FromSlice wraps data (without copying) as a tensor of the given shape.
func FromSlice[T Element](data []T, shape ...int) (*Tensor[T], error) {
	n, err := numel(shape)
	if err != nil {
		return nil, err
	}
	if n != len(data) {
		return nil, fmt.Errorf("%w: %d elements cannot have shape %v", ErrShape, len(data), shape)
	}
	return &Tensor[T]{shape: slices.Clone(shape), data: data}, nil
}

// NewDense allocates a zero-filled float32 tensor.
func NewDense(shape ...int) (*Dense, error) { return New[float32](shape...) }

// NewIndex allocates a zero-filled int64 tensor.
func NewIndex(shape ...int) (*Index, error) { return New[int64](shape...) }

// Shape returns a copy of the tensor shape.
func (t *Tensor[T]) Shape() []int { return slices.Clone(t.shape) }

// Dim returns the size of axis i.
func (t *Tensor[T]) Dim(i int) int { return t.shape[i] }

// Dims returns the number of axes.
func (t *Tensor[T]) Dims() int { return len(t.shape) }

// Len returns the number of elements.
func (t *Tensor[T]) Len() int { return len(t.data) }

// Data returns the backing slice. Mutations are visible to the tensor.
func (t *Tensor[T]) Data() []T { return t.data }

// Clone returns a deep copy.
func (t *Tensor[T]) Clone() *Tensor[T] {
	return &Tensor[T]{shape: slices.Clone(t.shape), data: slices.Clone(t.data)}
}

// At returns the element at the given coordinates.
// It panics if the coordinates are out of range, like a slice access.
func (t *Tensor[T]) At(idx ...int) T {
	return t.data[t.offset(idx)]
}

// Set stores v at the given coordinates.
func (t *Tensor[T]) Set(v T, idx ...int) {
	t.data[t.offset(idx)] = v
}

func (t *Tensor[T]) offset(idx []int) int {
	if len(idx) != len(t.shape) {
		panic(fmt.Sprintf("tensor: %d coordinates for %d axes", len(idx), len(t.shape)))
	}
	off := 0
	for i, v := range idx {
		if v < 0 || v >= t.shape[i] {
			panic(fmt.Sprintf("tensor: coordinate %d out of range [0,%d) on axis %d", v, t.shape[i], i))
		}
		off = off*t.shape[i] + v
	}
	return off
}

// Reshape returns a view with a new shape sharing the same data.
// At most one axis may be -1; its size is inferred.
func (t *Tensor[T]) Reshape(shape ...int) (*Tensor[T], error) {
	resolved := slices.Clone(shape)
	infer := -1
	known := 1
	for i, s := range resolved {
		switch {
		case s == -1:
			if infer >= 0 {
				return nil, fmt.Errorf("%w: more than one inferred axis in %v", ErrShape, shape)
			}
			infer = i
		case s < 0:
			return nil, fmt.Errorf("%w: negative axis in %v", ErrShape, shape)
		default:
			known *= s
		}
	}
	if infer >= 0 {
		if known == 0 || len(t.data)%known != 0 {
			return nil, fmt.Errorf("%w: cannot reshape %v into %v", ErrShape, t.shape, shape)
		}
		resolved[infer] = len(t.data) / known
	} else if known != len(t.data) {
		return nil, fmt.Errorf("%w: cannot reshape %v into %v", ErrShape, t.shape, shape)
	}
	return &Tensor[T]{shape: resolved, data: t.data}, nil
}

// Permute returns a copy with axes reordered: output axis i is input axis axes[i].
func (t *Tensor[T]) Permute(axes ...int) (*Tensor[T], error) {
	n := len(t.shape)
	if len(axes) != n {
		return nil, fmt.Errorf("%w: permutation %v for %d axes", ErrShape, axes, n)
	}
	seen := make([]bool, n)
	outShape := make([]int, n)
	for i, a := range axes {
		if a < 0 || a >= n || seen[a] {
			return nil, fmt.Errorf("%w: invalid permutation %v", ErrShape, axes)
		}
		seen[a] = true
		outShape[i] = t.shape[a]
	}

	inStrides := strides(t.shape)
	step := make([]int, n)
	for i, a := range axes {
		step[i] = inStrides[a]
	}

	out := make([]T, len(t.data))
	coord := make([]int, n)
	src := 0
	for o := range out {
		out[o] = t.data[src]
		for i := n - 1; i >= 0; i-- {
			coord[i]++
			src += step[i]
			if coord[i] < outShape[i] {
				break
			}
			src -= coord[i] * step[i]
			coord[i] = 0
		}
	}
	return &Tensor[T]{shape: outShape, data: out}, nil
}

func strides(shape []int) []int {
	s := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		s[i] = acc
		acc *= shape[i]
	}
	return s
}

func numel(shape []int) (int, error) {
	n := 1
	for _, s := range shape {
		if s < 0 {
			return 0, fmt.Errorf("%w: negative axis in %v", ErrShape, shape)
		}
		n *= s
	}
	return n, nil
}
