package vqlayer

import (
	"errors"
	"fmt"

	"github.com/hupe1980/vqlayer/codebook"
	"github.com/hupe1980/vqlayer/remap"
	"github.com/hupe1980/vqlayer/tensor"
)

var (
	// ErrInvalidConfig is returned for invalid constructor arguments or Config values.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnsupportedOption is returned when a Gumbel-compatibility forward
	// option is set to anything but its neutral value.
	ErrUnsupportedOption = errors.New("option only exists for Gumbel quantizer interface compatibility")

	// ErrNotInitialized is returned when a zero-value quantizer is used.
	ErrNotInitialized = errors.New("quantizer not initialized")
)

// ErrShape indicates a tensor whose shape does not fit the operation.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrShape struct {
	Op    string
	Want  string
	Got   []int
	cause error
}

func (e *ErrShape) Error() string {
	return fmt.Sprintf("%s: expected shape %s, got %v", e.Op, e.Want, e.Got)
}

func (e *ErrShape) Unwrap() error { return e.cause }

// ErrDimensionMismatch indicates a channel/feature dimensionality mismatch.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

func invalidConfig(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// translateError lifts sub-package shape errors into *ErrShape so callers
// can match one type regardless of which layer rejected the input.
func translateError(op string, shape []int, err error) error {
	if err == nil {
		return nil
	}
	var es *ErrShape
	if errors.As(err, &es) {
		return err
	}
	if errors.Is(err, remap.ErrShape) {
		return &ErrShape{Op: op, Want: "(batch, ...) with at least 2 axes", Got: shape, cause: err}
	}
	if errors.Is(err, tensor.ErrShape) || errors.Is(err, codebook.ErrInvalidSize) {
		return &ErrShape{Op: op, Want: "a shape matching the codebook", Got: shape, cause: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
