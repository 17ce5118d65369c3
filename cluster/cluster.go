package cluster

import (
	"context"
	"errors"
	"math/rand"
)

var (
	// ErrInsufficientSamples is returned when there are fewer samples than
	// k * MinPointsPerCentroid.
	ErrInsufficientSamples = errors.New("cluster: insufficient samples")

	// ErrInvalidInput is returned for malformed data, dimensions or k.
	ErrInvalidInput = errors.New("cluster: invalid input")
)

// Config controls a clustering run.
type Config struct {
	// Iterations is the number of Lloyd iterations. Default: 20.
	Iterations int

	// MinPointsPerCentroid is the minimum sample count per centroid. Default: 1.
	MinPointsPerCentroid int

	// MaxPointsPerCentroid caps the sample count per centroid; larger inputs
	// are subsampled. Default: 1e9.
	MaxPointsPerCentroid int

	// Rand drives initialisation, subsampling and empty-cluster reseeding.
	// A nil Rand uses a time-seeded source.
	Rand *rand.Rand
}

// DefaultConfig returns the settings used for codebook initialisation.
func DefaultConfig() Config {
	return Config{
		Iterations:           20,
		MinPointsPerCentroid: 1,
		MaxPointsPerCentroid: 1_000_000_000,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Iterations <= 0 {
		c.Iterations = d.Iterations
	}
	if c.MinPointsPerCentroid <= 0 {
		c.MinPointsPerCentroid = d.MinPointsPerCentroid
	}
	if c.MaxPointsPerCentroid <= 0 {
		c.MaxPointsPerCentroid = d.MaxPointsPerCentroid
	}
	return c
}

// Clusterer computes k centroids from data laid out as n rows of dim floats.
// The result has length k*dim.
type Clusterer interface {
	Cluster(ctx context.Context, data []float32, dim, k int, cfg Config) ([]float32, error)
}

// ClustererFunc adapts a function to the Clusterer interface.
type ClustererFunc func(ctx context.Context, data []float32, dim, k int, cfg Config) ([]float32, error)

// Cluster calls f.
func (f ClustererFunc) Cluster(ctx context.Context, data []float32, dim, k int, cfg Config) ([]float32, error) {
	return f(ctx, data, dim, k, cfg)
}
