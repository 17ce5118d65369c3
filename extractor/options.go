package extractor

import "github.com/hupe1980/vqlayer"

type options struct {
	quantizer  vqlayer.Quantizer
	head       Head
	doublePool bool
	normalize  bool
	logger     *vqlayer.Logger
}

// Option configures a Network.
type Option func(*options)

// WithQuantizer inserts q between the backbone and the pooling.
func WithQuantizer(q vqlayer.Quantizer) Option {
	return func(o *options) {
		o.quantizer = q
	}
}

// WithHead sets the projection applied to pooled features. Without a head
// the pooled features are the embeddings.
func WithHead(h Head) Option {
	return func(o *options) {
		o.head = h
	}
}

// WithDoublePool adds global max pooling to the global average pooling.
func WithDoublePool(enabled bool) Option {
	return func(o *options) {
		o.doublePool = enabled
	}
}

// WithNormalize L2-normalizes every embedding.
func WithNormalize(enabled bool) Option {
	return func(o *options) {
		o.normalize = enabled
	}
}

// WithLogger sets the logger. Pass nil to disable logging.
func WithLogger(l *vqlayer.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func applyOptions(optFns []Option) options {
	var o options
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.logger == nil {
		o.logger = vqlayer.NoopLogger()
	}
	o.logger = o.logger.WithVariant("extractor")
	return o
}
