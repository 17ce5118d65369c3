package extractor

import (
	"context"
	"fmt"

	"github.com/hupe1980/vqlayer/tensor"
)

// CollectFeatures runs every batch through the backbone with quantization
// bypassed and returns the quantizer's point set for all of them, one row per
// point (per segment for a multi-head quantizer).
func (n *Network) CollectFeatures(ctx context.Context, batches []*tensor.Dense) (*tensor.Dense, error) {
	if n.quantizer == nil {
		return nil, ErrNoQuantizer
	}
	var (
		data []float32
		dim  int
	)
	for i, x := range batches {
		f, err := n.features(ctx, x)
		if err != nil {
			return nil, fmt.Errorf("extractor: batch %d: %w", i, err)
		}
		pts, err := n.quantizer.Points(f)
		if err != nil {
			return nil, fmt.Errorf("extractor: batch %d: %w", i, err)
		}
		dim = pts.Dim(1)
		data = append(data, pts.Data()...)
	}
	if dim == 0 {
		return nil, fmt.Errorf("%w: no features collected", tensor.ErrShape)
	}
	return tensor.FromSlice(data, len(data)/dim, dim)
}

// InitCodebook collects features from batches and re-initializes the
// quantizer's codebook by clustering at most sampleCap of them.
func (n *Network) InitCodebook(ctx context.Context, batches []*tensor.Dense, sampleCap int) error {
	features, err := n.CollectFeatures(ctx, batches)
	if err != nil {
		return err
	}
	n.logger.InfoContext(ctx, "initializing codebook from collected features",
		"n_feat", features.Dim(0),
		"dim", features.Dim(1),
	)
	return n.quantizer.InitCodebookByClustering(ctx, features, sampleCap)
}
