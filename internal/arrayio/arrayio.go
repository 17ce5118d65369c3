// Package arrayio moves NumPy .npy arrays in and out of the flat row-major
// slices used across vqlayer.
//
// Encoding is delegated to npyio. This package only widens or narrows the
// stored dtype to int64 or float32 and restores row-major order for
// Fortran-ordered matrices.
package arrayio

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sbinet/npyio/npy"
	"gonum.org/v1/gonum/mat"
)

// ErrFormat is returned for arrays whose dtype or layout cannot be converted.
var ErrFormat = errors.New("arrayio: unsupported array")

type number interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32 | ~float64
}

// ReadInt64 reads an integer array of any shape and widens it to int64.
func ReadInt64(r io.Reader) ([]int64, []int, error) {
	nr, err := npy.NewReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	var out []int64
	switch dtypeKind(nr) {
	case "i1":
		out, err = readAs[int8, int64](nr)
	case "i2":
		out, err = readAs[int16, int64](nr)
	case "i4":
		out, err = readAs[int32, int64](nr)
	case "i8":
		out, err = readAs[int64, int64](nr)
	case "u1":
		out, err = readAs[uint8, int64](nr)
	case "u2":
		out, err = readAs[uint16, int64](nr)
	case "u4":
		out, err = readAs[uint32, int64](nr)
	default:
		return nil, nil, fmt.Errorf("%w: expected integer dtype, got %q", ErrFormat, nr.Header.Descr.Type)
	}
	if err != nil {
		return nil, nil, err
	}
	return finish(nr, out)
}

// ReadFloat32 reads a float array (f4 or f8) of any shape and narrows it to
// float32.
func ReadFloat32(r io.Reader) ([]float32, []int, error) {
	nr, err := npy.NewReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	var out []float32
	switch dtypeKind(nr) {
	case "f4":
		out, err = readAs[float32, float32](nr)
	case "f8":
		out, err = readAs[float64, float32](nr)
	default:
		return nil, nil, fmt.Errorf("%w: expected float dtype, got %q", ErrFormat, nr.Header.Descr.Type)
	}
	if err != nil {
		return nil, nil, err
	}
	return finish(nr, out)
}

// WriteInt64 writes data as a 1-D '<i8' array.
func WriteInt64(w io.Writer, data []int64) error {
	return npy.Write(w, data)
}

// WriteFloat32 writes a rows x cols row-major matrix. npyio stores matrices
// as '<f8'; ReadFloat32 narrows them back.
func WriteFloat32(w io.Writer, data []float32, rows, cols int) error {
	if rows <= 0 || cols <= 0 || rows*cols != len(data) {
		return fmt.Errorf("%w: %d elements cannot have shape (%d, %d)", ErrFormat, len(data), rows, cols)
	}
	wide := make([]float64, len(data))
	for i, v := range data {
		wide[i] = float64(v)
	}
	return npy.Write(w, mat.NewDense(rows, cols, wide))
}

// dtypeKind strips the byte-order prefix from the stored dtype ("<i8" -> "i8").
func dtypeKind(nr *npy.Reader) string {
	return strings.TrimLeft(nr.Header.Descr.Type, "<>|=")
}

func readAs[S, D number](nr *npy.Reader) ([]D, error) {
	var raw []S
	if err := nr.Read(&raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	return convert[D](raw), nil
}

func convert[D, S number](src []S) []D {
	out := make([]D, len(src))
	for i, v := range src {
		out[i] = D(v)
	}
	return out
}

func finish[T any](nr *npy.Reader, data []T) ([]T, []int, error) {
	shape := append([]int(nil), nr.Header.Descr.Shape...)
	n := 1
	for _, s := range shape {
		n *= s
	}
	if n != len(data) {
		return nil, nil, fmt.Errorf("%w: shape %v holds %d elements, read %d", ErrFormat, shape, n, len(data))
	}
	if !nr.Header.Descr.Fortran || len(shape) < 2 {
		return data, shape, nil
	}
	if len(shape) > 2 {
		return nil, nil, fmt.Errorf("%w: fortran order with %d axes", ErrFormat, len(shape))
	}
	rows, cols := shape[0], shape[1]
	out := make([]T, len(data))
	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			out[r*cols+c] = data[c*rows+r]
		}
	}
	return out, shape, nil
}
