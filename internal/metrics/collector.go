// Package metrics exposes Prometheus instrumentation for filesystem
// operations. Each Collector owns a private registry so multiple filesystems
// in one process never collide on metric registration.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records per-operation counts, failures, and latency.
type Collector struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	failures   *prometheus.CounterVec
	durations  *prometheus.HistogramVec
}

// New creates a collector with its own registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "s3vfs",
			Name:      "operations_total",
			Help:      "Filesystem operations attempted, by operation name.",
		}, []string{"operation"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "s3vfs",
			Name:      "operation_failures_total",
			Help:      "Filesystem operations that returned an error, by operation and error code.",
		}, []string{"operation", "code"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "s3vfs",
			Name:      "operation_duration_seconds",
			Help:      "Filesystem operation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"operation"}),
	}
	c.registry.MustRegister(c.operations, c.failures, c.durations)
	return c
}

// Nop returns a collector that records nothing. It is safe to call
// RecordOperation on it.
func Nop() *Collector {
	return nil
}

// RecordOperation records one completed operation. A non-empty code marks
// the operation as failed with that error code.
func (c *Collector) RecordOperation(op string, elapsed time.Duration, code string) {
	if c == nil {
		return
	}
	c.operations.WithLabelValues(op).Inc()
	c.durations.WithLabelValues(op).Observe(elapsed.Seconds())
	if code != "" {
		c.failures.WithLabelValues(op, code).Inc()
	}
}

// Handler serves the collector's registry in Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the collector's registry, for tests and for embedding the
// metrics into an existing exposition endpoint.
func (c *Collector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return prometheus.NewRegistry()
	}
	return c.registry
}
