package vqlayer

import (
	"context"

	"github.com/hupe1980/vqlayer/codebook"
	"github.com/hupe1980/vqlayer/remap"
	"github.com/hupe1980/vqlayer/tensor"
)

// Quantizer is implemented by VectorQuantizer and MultiHeadVectorQuantizer.
type Quantizer interface {
	Forward(ctx context.Context, z *tensor.Dense, opts ...ForwardOption) (*Result, error)
	Backward(res *Result, gradOut *tensor.Dense) (*Gradients, error)
	CodebookEntry(indices *tensor.Index, shape [4]int) (*tensor.Dense, error)
	InitCodebookByClustering(ctx context.Context, features *tensor.Dense, sampleCap int) error
	Points(z *tensor.Dense) (*tensor.Dense, error)
	Codebook() *codebook.Codebook
	SetCodebook(cb *codebook.Codebook) error
	Remapper() *remap.Remapper
}

var (
	_ Quantizer = (*VectorQuantizer)(nil)
	_ Quantizer = (*MultiHeadVectorQuantizer)(nil)
)

// VectorQuantizer snaps every e_dim feature vector of a (B, e_dim, H, W) map
// to its nearest codebook entry.
type VectorQuantizer struct {
	q *quantizer
}

// NewVectorQuantizer creates a quantizer with nE entries of dimension eDim.
// beta weights one of the two loss terms (see WithLegacy).
func NewVectorQuantizer(nE, eDim int, beta float64, optFns ...Option) (*VectorQuantizer, error) {
	q, err := newQuantizer("VectorQuantizer", nE, 1, eDim, beta, optFns)
	if err != nil {
		return nil, err
	}
	return &VectorQuantizer{q: q}, nil
}

// Forward quantizes z, a (B, e_dim, H, W) feature map.
//
// The returned Result carries the quantized map (values equal to the
// selected entries), the loss, usage statistics and the index tensor.
func (vq *VectorQuantizer) Forward(ctx context.Context, z *tensor.Dense, opts ...ForwardOption) (*Result, error) {
	return vq.impl().forward(ctx, z, opts)
}

// ForwardValues is Forward without indices: quantized map, loss, perplexity
// and cluster use.
func (vq *VectorQuantizer) ForwardValues(ctx context.Context, z *tensor.Dense, opts ...ForwardOption) (*tensor.Dense, float64, float64, int, error) {
	res, err := vq.Forward(ctx, z, opts...)
	if err != nil {
		return nil, 0, 0, 0, err
	}
	return res.Quantized, res.Loss, res.Perplexity, res.ClusterUse, nil
}

// Backward returns straight-through gradients for a Forward result.
func (vq *VectorQuantizer) Backward(res *Result, gradOut *tensor.Dense) (*Gradients, error) {
	return vq.impl().backward(res, gradOut)
}

// CodebookEntry gathers the entries for indices (reduced indices when a
// remapper is set) and returns them as (B, C, H, W). shape is (B, H, W, C).
func (vq *VectorQuantizer) CodebookEntry(indices *tensor.Index, shape [4]int) (*tensor.Dense, error) {
	return vq.impl().codebookEntry(indices, shape)
}

// InitCodebookByClustering replaces the codebook with the centroids of a
// k-means run over at most sampleCap rows of features (n_samples, e_dim).
// sampleCap <= 0 uses codebook.DefaultSampleCap.
func (vq *VectorQuantizer) InitCodebookByClustering(ctx context.Context, features *tensor.Dense, sampleCap int) error {
	return vq.impl().initByClustering(ctx, features, sampleCap)
}

// Points returns z as the (B·H·W, e_dim) point set the quantizer operates on.
func (vq *VectorQuantizer) Points(z *tensor.Dense) (*tensor.Dense, error) {
	return vq.impl().points(z)
}

// Codebook returns the current codebook.
func (vq *VectorQuantizer) Codebook() *codebook.Codebook {
	if vq.impl() == nil {
		return nil
	}
	return vq.q.codebook
}

// SetCodebook swaps in cb, which must be n_e x e_dim.
func (vq *VectorQuantizer) SetCodebook(cb *codebook.Codebook) error {
	return vq.impl().setCodebook(cb)
}

// Remapper returns the configured remapper or nil.
func (vq *VectorQuantizer) Remapper() *remap.Remapper {
	if vq.impl() == nil {
		return nil
	}
	return vq.q.remapper
}

// Beta returns the loss weight.
func (vq *VectorQuantizer) Beta() float64 { return vq.q.beta }

// Legacy reports whether the historical loss weighting is used.
func (vq *VectorQuantizer) Legacy() bool { return vq.q.legacy }

func (vq *VectorQuantizer) impl() *quantizer {
	if vq == nil {
		return nil
	}
	return vq.q
}
