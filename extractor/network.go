package extractor

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/vqlayer"
	"github.com/hupe1980/vqlayer/distance"
	"github.com/hupe1980/vqlayer/tensor"
)

// ErrNoQuantizer is returned by operations that need a quantizer when the
// Network was built without one.
var ErrNoQuantizer = errors.New("extractor: network has no quantizer")

// Backbone maps an input batch to a (B, C, H, W) feature map.
type Backbone interface {
	Forward(ctx context.Context, x *tensor.Dense) (*tensor.Dense, error)
}

// BackboneFunc adapts a function to the Backbone interface.
type BackboneFunc func(ctx context.Context, x *tensor.Dense) (*tensor.Dense, error)

// Forward calls f.
func (f BackboneFunc) Forward(ctx context.Context, x *tensor.Dense) (*tensor.Dense, error) {
	return f(ctx, x)
}

// Head maps pooled (B, C) features to (B, embed_dim) embeddings.
type Head interface {
	Forward(ctx context.Context, pooled *tensor.Dense) (*tensor.Dense, error)
}

// ForwardOptions control a single Network.Forward call.
type ForwardOptions struct {
	// Quantize runs the quantizer. false bypasses it and VQLoss is 0.
	Quantize bool

	// Warmup marks a pass whose outputs are not trained through. It does
	// not change any value.
	Warmup bool
}

// Output holds everything a forward pass produces.
type Output struct {
	// Embeds is the (B, embed_dim) head output.
	Embeds *tensor.Dense

	// AvgFeatures is the pooled (B, C) input of the head.
	AvgFeatures *tensor.Dense

	// Features is the (B, C, H, W) map after quantization (or the backbone
	// output when quantization is bypassed).
	Features *tensor.Dense

	// ExtraEmbeds is the (B, C, H, W) backbone output before quantization.
	ExtraEmbeds *tensor.Dense

	VQLoss float64

	// VQ is the quantizer result, nil when quantization did not run.
	VQ *vqlayer.Result
}

// Network is a backbone with an optional quantization bottleneck.
type Network struct {
	backbone   Backbone
	quantizer  vqlayer.Quantizer
	head       Head
	doublePool bool
	normalize  bool
	logger     *vqlayer.Logger
}

// New creates a Network around backbone.
func New(backbone Backbone, optFns ...Option) (*Network, error) {
	if backbone == nil {
		return nil, fmt.Errorf("%w: nil backbone", vqlayer.ErrInvalidConfig)
	}
	o := applyOptions(optFns)
	n := &Network{
		backbone:   backbone,
		quantizer:  o.quantizer,
		head:       o.head,
		doublePool: o.doublePool,
		normalize:  o.normalize,
		logger:     o.logger,
	}
	n.logger.Info("extractor initialized",
		"quantizer", n.quantizer != nil,
		"head", n.head != nil,
		"double_pool", n.doublePool,
		"normalize", n.normalize,
	)
	return n, nil
}

// Quantizer returns the configured quantizer or nil.
func (n *Network) Quantizer() vqlayer.Quantizer { return n.quantizer }

// Forward runs the network on x.
func (n *Network) Forward(ctx context.Context, x *tensor.Dense, opts ForwardOptions) (*Output, error) {
	prepool, err := n.features(ctx, x)
	if err != nil {
		return nil, err
	}

	out := &Output{ExtraEmbeds: prepool, Features: prepool}
	if opts.Quantize && n.quantizer != nil {
		res, err := n.quantizer.Forward(ctx, prepool)
		if err != nil {
			return nil, fmt.Errorf("extractor: quantize: %w", err)
		}
		out.Features = res.Quantized
		out.VQLoss = res.Loss
		out.VQ = res
	}

	pooled, err := n.pool(out.Features)
	if err != nil {
		return nil, err
	}
	out.AvgFeatures = pooled

	embeds := pooled.Clone()
	if n.head != nil {
		if embeds, err = n.head.Forward(ctx, pooled); err != nil {
			return nil, fmt.Errorf("extractor: head: %w", err)
		}
		if embeds.Dims() != 2 || embeds.Dim(0) != pooled.Dim(0) {
			return nil, fmt.Errorf("%w: head returned %v for %d rows", tensor.ErrShape, embeds.Shape(), pooled.Dim(0))
		}
	}
	if n.normalize {
		normalizeRows(embeds)
	}
	out.Embeds = embeds

	n.logger.DebugContext(ctx, "extractor forward",
		"batch", prepool.Dim(0),
		"quantized", out.VQ != nil,
		"warmup", opts.Warmup,
		"vq_loss", out.VQLoss,
	)
	return out, nil
}

func (n *Network) features(ctx context.Context, x *tensor.Dense) (*tensor.Dense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := n.backbone.Forward(ctx, x)
	if err != nil {
		return nil, fmt.Errorf("extractor: backbone: %w", err)
	}
	if f == nil || f.Dims() != 4 {
		var got []int
		if f != nil {
			got = f.Shape()
		}
		return nil, &vqlayer.ErrShape{Op: "backbone", Want: "(B, C, H, W)", Got: got}
	}
	return f, nil
}

// pool is adaptive average pooling to 1x1, plus adaptive max pooling when
// double pooling is enabled.
func (n *Network) pool(f *tensor.Dense) (*tensor.Dense, error) {
	avg, err := tensor.GlobalAvgPool(f)
	if err != nil {
		return nil, err
	}
	if !n.doublePool {
		return avg, nil
	}
	mx, err := tensor.GlobalMaxPool(f)
	if err != nil {
		return nil, err
	}
	a, m := avg.Data(), mx.Data()
	for i := range a {
		a[i] += m[i]
	}
	return avg, nil
}

func normalizeRows(t *tensor.Dense) {
	cols := t.Dim(1)
	data := t.Data()
	for r := 0; r < t.Dim(0); r++ {
		distance.NormalizeL2InPlace(data[r*cols : (r+1)*cols])
	}
}
