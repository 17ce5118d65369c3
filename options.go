package vqlayer

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/hupe1980/vqlayer/cluster"
	"github.com/hupe1980/vqlayer/codebook"
	"github.com/hupe1980/vqlayer/remap"
)

type options struct {
	legacy           bool
	saneIndexShape   bool
	init             codebook.Init
	codebook         *codebook.Codebook
	remapper         *remap.Remapper
	rand             *rand.Rand
	clusterer        cluster.Clusterer
	device           cluster.Device
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures quantizer construction.
type Option func(*options)

// WithLegacy selects which loss term beta weights. The default (true) keeps
// the historical weighting, beta·mse(zq, sg(z)); false moves beta to the
// commitment term, beta·mse(sg(zq), z).
func WithLegacy(legacy bool) Option {
	return func(o *options) {
		o.legacy = legacy
	}
}

// WithSaneIndexShape reports indices as (B, H, W·k_e) instead of a flat
// (B·H·W, k_e) column.
func WithSaneIndexShape(sane bool) Option {
	return func(o *options) {
		o.saneIndexShape = sane
	}
}

// WithInit selects how the initial codebook is filled. Default: codebook.InitUniform.
func WithInit(init codebook.Init) Option {
	return func(o *options) {
		o.init = init
	}
}

// WithCodebook uses cb instead of a freshly initialised codebook. Its size
// must match the quantizer.
func WithCodebook(cb *codebook.Codebook) Option {
	return func(o *options) {
		o.codebook = cb
	}
}

// WithRemapper reports indices in the reduced space of r.
//
// Example:
//
//	r, _ := remap.Load(ctx, store, "used.npy", remap.UnknownExtra(), nil)
//	q, _ := vqlayer.NewVectorQuantizer(1000, 1024, 0.25, vqlayer.WithRemapper(r))
func WithRemapper(r *remap.Remapper) Option {
	return func(o *options) {
		o.remapper = r
	}
}

// WithRand sets the random source for codebook initialisation and
// clustering. Defaults to a time-seeded source.
func WithRand(rng *rand.Rand) Option {
	return func(o *options) {
		o.rand = rng
	}
}

// WithClusterer plugs in the clustering service used by
// InitCodebookByClustering. Default: &cluster.KMeans{}.
func WithClusterer(c cluster.Clusterer) Option {
	return func(o *options) {
		o.clusterer = c
	}
}

// WithDevice sets the device whose cache is emptied around clustering.
// Default: cluster.CPU{}.
func WithDevice(d cluster.Device) Option {
	return func(o *options) {
		o.device = d
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &vqlayer.BasicMetricsCollector{}
//	q, _ := vqlayer.NewVectorQuantizer(512, 64, 0.25, vqlayer.WithMetricsCollector(metrics))
//	// ... run forwards ...
//	stats := metrics.GetStats()
//	fmt.Printf("Forwards: %d, last perplexity: %.2f\n", stats.ForwardCount, stats.LastPerplexity)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := vqlayer.NewJSONLogger(slog.LevelInfo)
//	q, _ := vqlayer.NewVectorQuantizer(512, 64, 0.25, vqlayer.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		legacy:           true,
		init:             codebook.InitUniform,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	if o.rand == nil {
		o.rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if o.clusterer == nil {
		o.clusterer = &cluster.KMeans{}
	}
	if o.device == nil {
		o.device = cluster.CPU{}
	}
	return o
}

// ForwardOption exists only for drop-in compatibility with Gumbel-softmax
// quantizers. Every option must keep its neutral value; anything else makes
// Forward fail with ErrUnsupportedOption.
type ForwardOption func(*forwardOptions)

type forwardOptions struct {
	temperature   *float64
	rescaleLogits bool
	returnLogits  bool
}

// WithTemperature accepts only 1.0.
func WithTemperature(t float64) ForwardOption {
	return func(o *forwardOptions) {
		o.temperature = &t
	}
}

// WithRescaleLogits accepts only false.
func WithRescaleLogits(rescale bool) ForwardOption {
	return func(o *forwardOptions) {
		o.rescaleLogits = rescale
	}
}

// WithReturnLogits accepts only false.
func WithReturnLogits(ret bool) ForwardOption {
	return func(o *forwardOptions) {
		o.returnLogits = ret
	}
}

func validateForwardOptions(optFns []ForwardOption) error {
	var o forwardOptions
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.temperature != nil && *o.temperature != 1.0 {
		return fmt.Errorf("%w: temperature %v", ErrUnsupportedOption, *o.temperature)
	}
	if o.rescaleLogits {
		return fmt.Errorf("%w: rescale_logits", ErrUnsupportedOption)
	}
	if o.returnLogits {
		return fmt.Errorf("%w: return_logits", ErrUnsupportedOption)
	}
	return nil
}
