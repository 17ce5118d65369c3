package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromSlice_ShapeMismatch(t *testing.T) {
	_, err := FromSlice([]float32{1, 2, 3}, 2, 2)
	assert.ErrorIs(t, err, ErrShape)

	_, err = New[int64](2, -1)
	assert.ErrorIs(t, err, ErrShape)
}

func TestReshape(t *testing.T) {
	x, err := FromSlice([]int64{0, 1, 2, 3, 4, 5}, 2, 3)
	require.NoError(t, err)

	y, err := x.Reshape(3, -1)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2}, y.Shape())

	// Reshape shares storage.
	y.Data()[0] = 42
	assert.Equal(t, int64(42), x.At(0, 0))

	_, err = x.Reshape(4, -1)
	assert.ErrorIs(t, err, ErrShape)
	_, err = x.Reshape(-1, -1)
	assert.ErrorIs(t, err, ErrShape)
	_, err = x.Reshape(5)
	assert.ErrorIs(t, err, ErrShape)
}

func TestPermute(t *testing.T) {
	// (B=1, C=2, H=2, W=3)
	data := make([]float32, 12)
	for i := range data {
		data[i] = float32(i)
	}
	x, err := FromSlice(data, 1, 2, 2, 3)
	require.NoError(t, err)

	y, err := ToChannelsLast(x)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 2}, y.Shape())

	for h := 0; h < 2; h++ {
		for w := 0; w < 3; w++ {
			for c := 0; c < 2; c++ {
				assert.Equal(t, x.At(0, c, h, w), y.At(0, h, w, c))
			}
		}
	}

	back, err := ToChannelsFirst(y)
	require.NoError(t, err)
	assert.Equal(t, x.Shape(), back.Shape())
	assert.Equal(t, x.Data(), back.Data())

	_, err = x.Permute(0, 1, 1, 2)
	assert.ErrorIs(t, err, ErrShape)
	_, err = x.Permute(0, 1)
	assert.ErrorIs(t, err, ErrShape)
}

func TestGlobalPool(t *testing.T) {
	x, err := FromSlice([]float32{
		1, 2, 3, 4, // b0 c0
		-1, -2, -3, -8, // b0 c1
	}, 1, 2, 2, 2)
	require.NoError(t, err)

	avg, err := GlobalAvgPool(x)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, avg.Shape())
	assert.InDeltaSlice(t, []float32{2.5, -3.5}, avg.Data(), 1e-6)

	mx, err := GlobalMaxPool(x)
	require.NoError(t, err)
	assert.Equal(t, []float32{4, -1}, mx.Data())

	flat, err := FromSlice([]float32{1, 2}, 2)
	require.NoError(t, err)
	_, err = GlobalAvgPool(flat)
	assert.ErrorIs(t, err, ErrShape)
}

func TestAtSetPanicsOutOfRange(t *testing.T) {
	x, err := NewDense(2, 2)
	require.NoError(t, err)
	x.Set(3, 1, 1)
	assert.Equal(t, float32(3), x.At(1, 1))
	assert.Panics(t, func() { x.At(2, 0) })
	assert.Panics(t, func() { x.At(0) })
}
