package arrayio

import (
	"bytes"
	"testing"

	"github.com/sbinet/npyio/npy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInt64RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	used := []int64{3, 7, 11, 0, 42}
	require.NoError(t, WriteInt64(&buf, used))

	got, shape, err := ReadInt64(&buf)
	require.NoError(t, err)
	assert.Equal(t, []int{5}, shape)
	assert.Equal(t, used, got)
}

func TestFloat32MatrixRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	data := []float32{1, 2, 3, 4, 5, 0.25}
	require.NoError(t, WriteFloat32(&buf, data, 2, 3))

	got, shape, err := ReadFloat32(&buf)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, shape)
	assert.Equal(t, data, got)
}

func TestReadInt64_Widens(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, npy.Write(&buf, []int32{5, -1, 9}))

	got, shape, err := ReadInt64(&buf)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, shape)
	assert.Equal(t, []int64{5, -1, 9}, got)
}

func TestReadFloat32_F4Vector(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, npy.Write(&buf, []float32{0.5, -2}))

	got, shape, err := ReadFloat32(&buf)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, shape)
	assert.Equal(t, []float32{0.5, -2}, got)
}

func TestReadErrors(t *testing.T) {
	t.Run("NotNumpy", func(t *testing.T) {
		_, _, err := ReadInt64(bytes.NewReader([]byte("NOTNUMPYDATA")))
		assert.ErrorIs(t, err, ErrFormat)
	})

	t.Run("FloatAsInt", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteFloat32(&buf, []float32{1}, 1, 1))
		_, _, err := ReadInt64(&buf)
		assert.ErrorIs(t, err, ErrFormat)
	})

	t.Run("IntAsFloat", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteInt64(&buf, []int64{1}))
		_, _, err := ReadFloat32(&buf)
		assert.ErrorIs(t, err, ErrFormat)
	})

	t.Run("ShapeMismatchOnWrite", func(t *testing.T) {
		var buf bytes.Buffer
		assert.ErrorIs(t, WriteFloat32(&buf, []float32{1, 2, 3}, 2, 2), ErrFormat)
		assert.ErrorIs(t, WriteFloat32(&buf, nil, 0, 2), ErrFormat)
	})
}

func TestFinish_FortranOrder(t *testing.T) {
	nr := &npy.Reader{}
	nr.Header.Descr.Fortran = true
	nr.Header.Descr.Shape = []int{2, 3}

	// Logical matrix [[1, 2, 3], [4, 5, 6]] stored column-major.
	got, shape, err := finish(nr, []int64{1, 4, 2, 5, 3, 6})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, shape)
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6}, got)

	nr.Header.Descr.Shape = []int{1, 2, 3}
	_, _, err = finish(nr, make([]int64, 6))
	assert.ErrorIs(t, err, ErrFormat)
}
