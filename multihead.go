package vqlayer

import (
	"context"

	"github.com/hupe1980/vqlayer/codebook"
	"github.com/hupe1980/vqlayer/remap"
	"github.com/hupe1980/vqlayer/tensor"
)

// MultiHeadVectorQuantizer splits every e_dim feature vector into k_e
// contiguous segments and quantizes each against one shared codebook of
// e_dim/k_e-dimensional entries.
type MultiHeadVectorQuantizer struct {
	q *quantizer
}

// NewMultiHeadVectorQuantizer creates a quantizer with nE shared entries and
// kE heads. eDim must be divisible by kE.
func NewMultiHeadVectorQuantizer(nE, kE, eDim int, beta float64, optFns ...Option) (*MultiHeadVectorQuantizer, error) {
	q, err := newQuantizer("MultiHeadVectorQuantizer", nE, kE, eDim, beta, optFns)
	if err != nil {
		return nil, err
	}
	return &MultiHeadVectorQuantizer{q: q}, nil
}

// Heads returns k_e.
func (mq *MultiHeadVectorQuantizer) Heads() int { return mq.q.kE }

// SegmentDim returns e_dim/k_e, the codebook entry dimension.
func (mq *MultiHeadVectorQuantizer) SegmentDim() int { return mq.q.segDim }

// Forward quantizes z, a (B, e_dim, H, W) feature map. Result.Indices holds
// k_e indices per location.
func (mq *MultiHeadVectorQuantizer) Forward(ctx context.Context, z *tensor.Dense, opts ...ForwardOption) (*Result, error) {
	return mq.impl().forward(ctx, z, opts)
}

// ForwardValues is Forward unpacked: quantized map, loss, perplexity,
// cluster use and indices.
func (mq *MultiHeadVectorQuantizer) ForwardValues(ctx context.Context, z *tensor.Dense, opts ...ForwardOption) (*tensor.Dense, float64, float64, int, *tensor.Index, error) {
	res, err := mq.Forward(ctx, z, opts...)
	if err != nil {
		return nil, 0, 0, 0, nil, err
	}
	return res.Quantized, res.Loss, res.Perplexity, res.ClusterUse, res.Indices, nil
}

// Backward returns straight-through gradients for a Forward result.
func (mq *MultiHeadVectorQuantizer) Backward(res *Result, gradOut *tensor.Dense) (*Gradients, error) {
	return mq.impl().backward(res, gradOut)
}

// CodebookEntry gathers the entries for indices (B·H·W·k_e of them) and
// returns them as (B, C, H, W). shape is (B, H, W, C) with C = e_dim.
func (mq *MultiHeadVectorQuantizer) CodebookEntry(indices *tensor.Index, shape [4]int) (*tensor.Dense, error) {
	return mq.impl().codebookEntry(indices, shape)
}

// InitCodebookByClustering replaces the codebook with k-means centroids of
// features, a (n_samples, e_dim/k_e) segment set (see Points).
func (mq *MultiHeadVectorQuantizer) InitCodebookByClustering(ctx context.Context, features *tensor.Dense, sampleCap int) error {
	return mq.impl().initByClustering(ctx, features, sampleCap)
}

// Points returns z as the (B·H·W·k_e, e_dim/k_e) segment set.
func (mq *MultiHeadVectorQuantizer) Points(z *tensor.Dense) (*tensor.Dense, error) {
	return mq.impl().points(z)
}

// Codebook returns the current codebook.
func (mq *MultiHeadVectorQuantizer) Codebook() *codebook.Codebook {
	if mq.impl() == nil {
		return nil
	}
	return mq.q.codebook
}

// SetCodebook swaps in cb, which must be n_e x e_dim/k_e.
func (mq *MultiHeadVectorQuantizer) SetCodebook(cb *codebook.Codebook) error {
	return mq.impl().setCodebook(cb)
}

// Remapper returns the configured remapper or nil.
func (mq *MultiHeadVectorQuantizer) Remapper() *remap.Remapper {
	if mq.impl() == nil {
		return nil
	}
	return mq.q.remapper
}

func (mq *MultiHeadVectorQuantizer) impl() *quantizer {
	if mq == nil {
		return nil
	}
	return mq.q
}
