package vqlayer

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with quantizer-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithVariant adds the quantizer variant name to the logger.
func (l *Logger) WithVariant(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("quantizer", name),
	}
}

// WithDimension adds a dimension field to the logger.
func (l *Logger) WithDimension(dim int) *Logger {
	return &Logger{
		Logger: l.Logger.With("dimension", dim),
	}
}

// LogConfig logs the quantizer configuration at construction.
func (l *Logger) LogConfig(ctx context.Context, nE, eDim, kE, segDim int, init string, beta float64, legacy bool) {
	l.InfoContext(ctx, "quantizer initialized",
		"n_e", nE,
		"e_dim", eDim,
		"k_e", kE,
		"e_dim_seg", segDim,
		"e_init", init,
		"beta", beta,
		"legacy", legacy,
	)
}

// LogRemap logs the remapping configuration.
func (l *Logger) LogRemap(ctx context.Context, nE, reEmbed int, unknown string) {
	l.InfoContext(ctx, "remapping indices",
		"n_e", nE,
		"re_embed", reEmbed,
		"unknown_index", unknown,
	)
}

// LogForward logs a forward pass.
func (l *Logger) LogForward(ctx context.Context, stats ForwardStats, err error) {
	if err != nil {
		l.ErrorContext(ctx, "forward failed",
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "forward completed",
			"points", stats.Points,
			"loss", stats.Loss,
			"perplexity", stats.Perplexity,
			"cluster_use", stats.ClusterUse,
		)
	}
}

// LogCodebookInit logs a clustering-based codebook initialization.
func (l *Logger) LogCodebookInit(ctx context.Context, entries, samples int, device string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "codebook clustering failed",
			"n_centroids", entries,
			"n_feat", samples,
			"device", device,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "codebook initialized by clustering",
			"n_centroids", entries,
			"n_feat", samples,
			"device", device,
		)
	}
}
