// Package metrics exports quantizer metrics to Prometheus.
package metrics

import (
	"time"

	"github.com/hupe1980/vqlayer"
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements vqlayer.MetricsCollector.
type PrometheusCollector struct {
	opLatency   *prometheus.HistogramVec
	loss        prometheus.Histogram
	perplexity  prometheus.Gauge
	clusterUse  prometheus.Gauge
	points      prometheus.Counter
	initSamples prometheus.Gauge
}

var _ vqlayer.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheusCollector creates the collector's metrics under namespace
// (e.g. "vqlayer") and registers them with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func NewPrometheusCollector(namespace string, reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &PrometheusCollector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_latency_seconds",
			Help:      "Latency of quantizer operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "status"}),
		loss: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "loss",
			Help:      "Codebook plus commitment loss per forward pass",
			Buckets:   prometheus.ExponentialBuckets(1e-4, 4, 12),
		}),
		perplexity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "perplexity",
			Help:      "Codebook perplexity of the last forward pass",
		}),
		clusterUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cluster_use",
			Help:      "Distinct codebook entries used by the last forward pass",
		}),
		points: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_quantized_total",
			Help:      "Total vectors snapped to a codebook entry",
		}),
		initSamples: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "codebook_init_samples",
			Help:      "Feature samples used by the last clustering initialization",
		}),
	}

	for _, m := range []prometheus.Collector{c.opLatency, c.loss, c.perplexity, c.clusterUse, c.points, c.initSamples} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// RecordForward implements vqlayer.MetricsCollector.
func (c *PrometheusCollector) RecordForward(stats vqlayer.ForwardStats, d time.Duration, err error) {
	c.opLatency.WithLabelValues("forward", status(err)).Observe(d.Seconds())
	if err != nil {
		return
	}
	c.loss.Observe(stats.Loss)
	c.perplexity.Set(stats.Perplexity)
	c.clusterUse.Set(float64(stats.ClusterUse))
	c.points.Add(float64(stats.Points))
}

// RecordCodebookInit implements vqlayer.MetricsCollector.
func (c *PrometheusCollector) RecordCodebookInit(entries, samples int, d time.Duration, err error) {
	c.opLatency.WithLabelValues("codebook_init", status(err)).Observe(d.Seconds())
	if err == nil {
		c.initSamples.Set(float64(samples))
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
