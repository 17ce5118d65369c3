package codebook

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/hupe1980/vqlayer/cluster"
)

// DefaultSampleCap is the maximum number of features drawn for clustering.
const DefaultSampleCap = 100000

// InitOptions configures NewFromClustering.
type InitOptions struct {
	// SampleCap bounds the random sample. Zero uses DefaultSampleCap.
	SampleCap int

	// Clusterer computes the centroids. Nil uses cluster.KMeans.
	Clusterer cluster.Clusterer

	// Device has its cache emptied around the clustering run. Nil uses cluster.CPU.
	Device cluster.Device

	// Rand drives sampling and clustering. Required.
	Rand *rand.Rand
}

// NewFromClustering builds an n-entry codebook from the k-means centroids of
// a random sample of features, laid out as rows of dim floats.
//
// The sample is min(rows, SampleCap) rows drawn uniformly without
// replacement. The device cache is emptied before clustering and again on
// every exit path. Clustering errors are returned wrapped, without retry.
func NewFromClustering(ctx context.Context, features []float32, dim, n int, opts InitOptions) (cb *Codebook, err error) {
	if n <= 0 || dim <= 0 {
		return nil, fmt.Errorf("%w: n=%d dim=%d", ErrInvalidSize, n, dim)
	}
	if len(features)%dim != 0 {
		return nil, fmt.Errorf("%w: %d feature values are not a multiple of dim %d", ErrInvalidSize, len(features), dim)
	}
	if opts.Rand == nil {
		return nil, errors.New("codebook: nil random source")
	}
	if opts.SampleCap <= 0 {
		opts.SampleCap = DefaultSampleCap
	}
	if opts.Clusterer == nil {
		opts.Clusterer = &cluster.KMeans{}
	}
	if opts.Device == nil {
		opts.Device = cluster.CPU{}
	}

	sample := Sample(features, dim, opts.SampleCap, opts.Rand)

	if err := opts.Device.EmptyCache(); err != nil {
		return nil, fmt.Errorf("codebook: empty %s cache: %w", opts.Device.Name(), err)
	}
	defer func() {
		if cerr := opts.Device.EmptyCache(); cerr != nil && err == nil {
			cb, err = nil, fmt.Errorf("codebook: empty %s cache: %w", opts.Device.Name(), cerr)
		}
	}()

	cfg := cluster.DefaultConfig()
	cfg.Rand = opts.Rand
	centroids, err := opts.Clusterer.Cluster(ctx, sample, dim, n, cfg)
	if err != nil {
		return nil, fmt.Errorf("codebook: cluster %d samples into %d entries: %w", len(sample)/dim, n, err)
	}
	return FromCentroids(centroids, n, dim)
}

// Sample draws min(rows, limit) rows of dim floats uniformly without
// replacement. When no rows are dropped the input order is kept.
func Sample(features []float32, dim, limit int, rng *rand.Rand) []float32 {
	rows := len(features) / dim
	if rows <= limit {
		return features
	}
	perm := rng.Perm(rows)[:limit]
	out := make([]float32, limit*dim)
	for i, p := range perm {
		copy(out[i*dim:(i+1)*dim], features[p*dim:(p+1)*dim])
	}
	return out
}
