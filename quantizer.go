package vqlayer

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/hupe1980/vqlayer/cluster"
	"github.com/hupe1980/vqlayer/codebook"
	"github.com/hupe1980/vqlayer/remap"
	"github.com/hupe1980/vqlayer/tensor"
)

// Result is the outcome of a forward pass.
type Result struct {
	// Quantized is the (B, C, H, W) output. Its values are exactly the
	// selected codebook entries; Backward routes gradients straight through
	// to the input.
	Quantized *tensor.Dense

	// Loss is the codebook plus commitment loss.
	Loss float64

	// Perplexity and ClusterUse describe how evenly the codebook is used.
	Perplexity float64
	ClusterUse int

	// Indices are the selected entries, in the reduced space when a remapper
	// is configured. Shape (B·H·W, k_e), or (B, H, W·k_e) with sane index shape.
	Indices *tensor.Index

	// state for Backward
	cb    *codebook.Codebook
	z     []float32 // NHWC, flattened
	zq    []float32 // NHWC, flattened
	full  []int64   // full-space index per segment
	shape [4]int    // B, C, H, W
}

// Gradients holds the straight-through gradients of a forward pass.
type Gradients struct {
	// Input is dLoss/dz in (B, C, H, W).
	Input *tensor.Dense

	// Codebook is dLoss/dE, laid out like codebook.Weights().
	Codebook []float32
}

// quantizer is the implementation shared by the single- and multi-head variants.
// A single-head quantizer is the k_e = 1 case.
type quantizer struct {
	nE     int
	eDim   int
	kE     int
	segDim int
	beta   float64

	legacy         bool
	saneIndexShape bool
	init           codebook.Init

	codebook  *codebook.Codebook
	remapper  *remap.Remapper
	rand      *rand.Rand
	clusterer cluster.Clusterer
	device    cluster.Device
	metrics   MetricsCollector
	logger    *Logger
}

func newQuantizer(name string, nE, kE, eDim int, beta float64, optFns []Option) (*quantizer, error) {
	if nE <= 0 {
		return nil, invalidConfig("n_e must be positive, got %d", nE)
	}
	if eDim <= 0 {
		return nil, invalidConfig("e_dim must be positive, got %d", eDim)
	}
	if kE <= 0 {
		return nil, invalidConfig("k_e must be positive, got %d", kE)
	}
	if eDim%kE != 0 {
		return nil, invalidConfig("e_dim %d is not divisible by k_e %d", eDim, kE)
	}
	if beta < 0 || math.IsNaN(beta) || math.IsInf(beta, 0) {
		return nil, invalidConfig("beta must be a finite non-negative number, got %v", beta)
	}

	o := applyOptions(optFns)
	q := &quantizer{
		nE:             nE,
		eDim:           eDim,
		kE:             kE,
		segDim:         eDim / kE,
		beta:           beta,
		legacy:         o.legacy,
		saneIndexShape: o.saneIndexShape,
		init:           o.init,
		remapper:       o.remapper,
		rand:           o.rand,
		clusterer:      o.clusterer,
		device:         o.device,
		metrics:        o.metricsCollector,
		logger:         o.logger.WithVariant(name),
	}

	if o.codebook != nil {
		if err := q.checkCodebook(o.codebook); err != nil {
			return nil, err
		}
		q.codebook = o.codebook
	} else {
		cb, err := codebook.New(nE, q.segDim, o.init, q.rand)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		q.codebook = cb
	}

	if q.remapper != nil {
		for _, u := range q.remapper.Used() {
			if u < 0 || u >= int64(nE) {
				return nil, invalidConfig("used index %d not in [0,%d)", u, nE)
			}
		}
		if unk := q.remapper.UnknownIndex(); q.remapper.Policy() != remap.UnknownRandom() && (unk < 0 || unk > int64(nE)) {
			return nil, invalidConfig("unknown index %d not in [0,%d]", unk, nE)
		}
	}

	ctx := context.Background()
	q.logger.LogConfig(ctx, nE, eDim, kE, q.segDim, o.init.String(), beta, o.legacy)
	if q.remapper != nil {
		q.logger.LogRemap(ctx, nE, q.remapper.ReEmbed(), q.remapper.Policy().String())
	}
	return q, nil
}

func (q *quantizer) checkCodebook(cb *codebook.Codebook) error {
	if cb.Len() != q.nE || cb.Dim() != q.segDim {
		return invalidConfig("codebook is %d x %d, want %d x %d", cb.Len(), cb.Dim(), q.nE, q.segDim)
	}
	return nil
}

func (q *quantizer) ready() error {
	if q == nil || q.codebook == nil {
		return ErrNotInitialized
	}
	return nil
}

// weights returns the (commitment, codebook) loss weights.
func (q *quantizer) weights() (float64, float64) {
	if q.legacy {
		return 1, q.beta
	}
	return q.beta, 1
}

// points flattens a (B, C, H, W) map into (B·H·W·k_e, e_dim/k_e) segments.
func (q *quantizer) points(z *tensor.Dense) (*tensor.Dense, error) {
	if err := q.ready(); err != nil {
		return nil, err
	}
	if z == nil || z.Dims() != 4 {
		var got []int
		if z != nil {
			got = z.Shape()
		}
		return nil, &ErrShape{Op: "points", Want: "(B, C, H, W)", Got: got}
	}
	if z.Dim(1) != q.eDim {
		return nil, &ErrDimensionMismatch{Expected: q.eDim, Actual: z.Dim(1)}
	}
	nhwc, err := tensor.ToChannelsLast(z)
	if err != nil {
		return nil, translateError("points", z.Shape(), err)
	}
	return nhwc.Reshape(-1, q.segDim)
}

func (q *quantizer) forward(ctx context.Context, z *tensor.Dense, optFns []ForwardOption) (res *Result, err error) {
	start := time.Now()
	defer func() {
		var stats ForwardStats
		if res != nil {
			stats = ForwardStats{
				Points:     len(res.full),
				Loss:       res.Loss,
				Perplexity: res.Perplexity,
				ClusterUse: res.ClusterUse,
			}
		}
		if q != nil && q.metrics != nil {
			q.metrics.RecordForward(stats, time.Since(start), err)
			q.logger.LogForward(ctx, stats, err)
		}
	}()

	if err := q.ready(); err != nil {
		return nil, err
	}
	if err := validateForwardOptions(optFns); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pts, err := q.points(z)
	if err != nil {
		return nil, err
	}
	b, c, h, w := z.Dim(0), z.Dim(1), z.Dim(2), z.Dim(3)

	cb := q.codebook
	full, err := cb.Nearest(pts.Data())
	if err != nil {
		return nil, translateError("forward", z.Shape(), err)
	}
	zq, err := cb.Lookup(full)
	if err != nil {
		return nil, fmt.Errorf("forward: %w", err)
	}

	zData := pts.Data()
	mse := meanSquaredError(zq, zData)
	wCommit, wCodebook := q.weights()
	loss := wCommit*mse + wCodebook*mse

	nhwc, err := tensor.FromSlice(zq, b, h, w, c)
	if err != nil {
		return nil, translateError("forward", z.Shape(), err)
	}
	quantized, err := tensor.ToChannelsFirst(nhwc)
	if err != nil {
		return nil, translateError("forward", z.Shape(), err)
	}

	reported, err := q.report(full, b, h, w)
	if err != nil {
		return nil, err
	}
	perplexity, clusterUse := MeasurePerplexity(reported.Data(), q.nE)

	return &Result{
		Quantized:  quantized,
		Loss:       loss,
		Perplexity: perplexity,
		ClusterUse: clusterUse,
		Indices:    reported,
		cb:         cb,
		z:          zData,
		zq:         zq,
		full:       full,
		shape:      [4]int{b, c, h, w},
	}, nil
}

// report converts full indices into the caller-facing index tensor.
func (q *quantizer) report(full []int64, b, h, w int) (*tensor.Index, error) {
	idx, err := tensor.FromSlice(append([]int64(nil), full...), b*h*w, q.kE)
	if err != nil {
		return nil, translateError("forward", []int{b, h, w}, err)
	}
	if q.remapper != nil && b > 0 {
		batched, err := idx.Reshape(b, -1)
		if err != nil {
			return nil, translateError("remap", idx.Shape(), err)
		}
		used, err := q.remapper.ToUsed(batched)
		if err != nil {
			return nil, translateError("remap", batched.Shape(), err)
		}
		if idx, err = used.Reshape(b*h*w, q.kE); err != nil {
			return nil, translateError("remap", used.Shape(), err)
		}
	}
	if q.saneIndexShape {
		return idx.Reshape(b, h, w*q.kE)
	}
	return idx, nil
}

// backward computes straight-through gradients for res given dLoss/dOutput.
// gradOut may be nil when the loss is the only objective.
func (q *quantizer) backward(res *Result, gradOut *tensor.Dense) (*Gradients, error) {
	if err := q.ready(); err != nil {
		return nil, err
	}
	if res == nil || res.cb == nil {
		return nil, fmt.Errorf("backward: %w: result does not come from Forward", ErrInvalidConfig)
	}
	b, c, h, w := res.shape[0], res.shape[1], res.shape[2], res.shape[3]

	dz := make([]float32, len(res.z))
	if gradOut != nil {
		gs := gradOut.Shape()
		if len(gs) != 4 || gs[0] != b || gs[1] != c || gs[2] != h || gs[3] != w {
			return nil, &ErrShape{Op: "backward", Want: fmt.Sprintf("(%d, %d, %d, %d)", b, c, h, w), Got: gs}
		}
		g, err := tensor.ToChannelsLast(gradOut)
		if err != nil {
			return nil, translateError("backward", gs, err)
		}
		copy(dz, g.Data())
	}

	n := float64(len(res.z))
	wCommit, wCodebook := q.weights()
	dE := make([]float32, len(res.cb.Weights()))
	seg := res.cb.Dim()
	if n > 0 {
		commit := 2 * wCommit / n
		book := 2 * wCodebook / n
		for i, j := range res.full {
			off := i * seg
			row := dE[int(j)*seg : (int(j)+1)*seg]
			for d := 0; d < seg; d++ {
				diff := float64(res.z[off+d]) - float64(res.zq[off+d])
				dz[off+d] += float32(commit * diff)
				row[d] -= float32(book * diff)
			}
		}
	}

	nhwc, err := tensor.FromSlice(dz, b, h, w, c)
	if err != nil {
		return nil, translateError("backward", res.shape[:], err)
	}
	input, err := tensor.ToChannelsFirst(nhwc)
	if err != nil {
		return nil, translateError("backward", res.shape[:], err)
	}
	return &Gradients{Input: input, Codebook: dE}, nil
}

// codebookEntry maps indices (reduced when remapping) back to a (B, C, H, W)
// tensor. shape is (B, H, W, C).
func (q *quantizer) codebookEntry(indices *tensor.Index, shape [4]int) (*tensor.Dense, error) {
	if err := q.ready(); err != nil {
		return nil, err
	}
	if indices == nil {
		return nil, &ErrShape{Op: "codebook entry", Want: "an index tensor"}
	}
	flat := indices.Data()
	if q.remapper != nil {
		batched, err := indices.Reshape(shape[0], -1)
		if err != nil {
			return nil, translateError("codebook entry", indices.Shape(), err)
		}
		full, err := q.remapper.ToFull(batched)
		if err != nil {
			return nil, translateError("codebook entry", batched.Shape(), err)
		}
		flat = full.Data()
	}

	zq, err := q.codebook.Lookup(flat)
	if err != nil {
		return nil, fmt.Errorf("codebook entry: %w", err)
	}
	nhwc, err := tensor.FromSlice(zq, shape[:]...)
	if err != nil {
		return nil, translateError("codebook entry", shape[:], err)
	}
	return tensor.ToChannelsFirst(nhwc)
}

// initByClustering replaces the codebook with k-means centroids of features,
// a (n_samples, e_dim/k_e) tensor.
func (q *quantizer) initByClustering(ctx context.Context, features *tensor.Dense, sampleCap int) (err error) {
	if err := q.ready(); err != nil {
		return err
	}
	if features == nil || features.Dims() != 2 {
		var got []int
		if features != nil {
			got = features.Shape()
		}
		return &ErrShape{Op: "init codebook", Want: "(n_samples, dim)", Got: got}
	}
	if features.Dim(1) != q.segDim {
		return &ErrDimensionMismatch{Expected: q.segDim, Actual: features.Dim(1)}
	}

	samples := min(features.Dim(0), capOrDefault(sampleCap))
	start := time.Now()
	defer func() {
		q.metrics.RecordCodebookInit(q.nE, samples, time.Since(start), err)
		q.logger.LogCodebookInit(ctx, q.nE, samples, q.device.Name(), err)
	}()

	cb, err := codebook.NewFromClustering(ctx, features.Data(), q.segDim, q.nE, codebook.InitOptions{
		SampleCap: sampleCap,
		Clusterer: q.clusterer,
		Device:    q.device,
		Rand:      q.rand,
	})
	if err != nil {
		return err
	}
	q.codebook = cb
	return nil
}

func capOrDefault(sampleCap int) int {
	if sampleCap <= 0 {
		return codebook.DefaultSampleCap
	}
	return sampleCap
}

func (q *quantizer) setCodebook(cb *codebook.Codebook) error {
	if q == nil {
		return ErrNotInitialized
	}
	if cb == nil {
		return invalidConfig("nil codebook")
	}
	if err := q.checkCodebook(cb); err != nil {
		return err
	}
	q.codebook = cb
	return nil
}

func meanSquaredError(a, b []float32) float64 {
	if len(a) == 0 {
		return 0
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum / float64(len(a))
}
