package vqlayer

import (
	"math"
	"sync/atomic"
	"time"
)

// ForwardStats summarises one forward pass.
type ForwardStats struct {
	// Points is the number of quantized vectors (locations x heads).
	Points     int
	Loss       float64
	Perplexity float64
	ClusterUse int
}

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus
// (see the metrics package).
type MetricsCollector interface {
	// RecordForward is called after each forward pass.
	// err is nil if successful, in which case stats is populated.
	RecordForward(stats ForwardStats, duration time.Duration, err error)

	// RecordCodebookInit is called after each clustering-based codebook
	// initialization with the number of entries and sampled features.
	RecordCodebookInit(entries, samples int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordForward(ForwardStats, time.Duration, error)   {}
func (NoopMetricsCollector) RecordCodebookInit(int, int, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	ForwardCount      atomic.Int64
	ForwardErrors     atomic.Int64
	ForwardTotalNanos atomic.Int64
	PointsQuantized   atomic.Int64
	lastPerplexity    atomic.Uint64
	LastClusterUse    atomic.Int64
	InitCount         atomic.Int64
	InitErrors        atomic.Int64
}

// RecordForward implements MetricsCollector.
func (b *BasicMetricsCollector) RecordForward(stats ForwardStats, duration time.Duration, err error) {
	b.ForwardCount.Add(1)
	b.ForwardTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.ForwardErrors.Add(1)
		return
	}
	b.PointsQuantized.Add(int64(stats.Points))
	b.lastPerplexity.Store(math.Float64bits(stats.Perplexity))
	b.LastClusterUse.Store(int64(stats.ClusterUse))
}

// RecordCodebookInit implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCodebookInit(entries, samples int, duration time.Duration, err error) {
	b.InitCount.Add(1)
	if err != nil {
		b.InitErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		ForwardCount:    b.ForwardCount.Load(),
		ForwardErrors:   b.ForwardErrors.Load(),
		ForwardAvgNanos: b.getAvgForwardNanos(),
		PointsQuantized: b.PointsQuantized.Load(),
		LastPerplexity:  math.Float64frombits(b.lastPerplexity.Load()),
		LastClusterUse:  b.LastClusterUse.Load(),
		InitCount:       b.InitCount.Load(),
		InitErrors:      b.InitErrors.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgForwardNanos() int64 {
	count := b.ForwardCount.Load()
	if count == 0 {
		return 0
	}
	return b.ForwardTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	ForwardCount    int64
	ForwardErrors   int64
	ForwardAvgNanos int64
	PointsQuantized int64
	LastPerplexity  float64
	LastClusterUse  int64
	InitCount       int64
	InitErrors      int64
}
