// Package metrics exposes run-level prometheus collectors and the HTTP
// handler the ops server mounts at /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/matrixci/matrixci/internal/result"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "matrixci"

// Collector bundles the run metrics. One Collector is created per application
// instance with its own registry, so parallel test apps never collide on
// duplicate registration.
type Collector struct {
	registry     *prometheus.Registry
	jobsTotal    *prometheus.CounterVec
	jobsInFlight prometheus.Gauge
	runDuration  prometheus.Histogram
}

// New creates a Collector backed by a fresh prometheus registry.
func New() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		jobsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Number of jobs that reached a terminal status, by status.",
		}, []string{"status"}),
		jobsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_in_flight",
			Help:      "Number of job bodies currently executing.",
		}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of whole pipeline runs.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 14),
		}),
	}
}

// JobStarted marks one job body as executing.
func (c *Collector) JobStarted() {
	c.jobsInFlight.Inc()
}

// JobFinished records a job's terminal status and, for jobs that actually
// ran, marks the body as no longer executing.
func (c *Collector) JobFinished(status result.Status, ran bool) {
	c.jobsTotal.WithLabelValues(status.String()).Inc()
	if ran {
		c.jobsInFlight.Dec()
	}
}

// RunFinished records the duration of a completed run.
func (c *Collector) RunFinished(d time.Duration) {
	c.runDuration.Observe(d.Seconds())
}

// Handler returns the HTTP handler serving this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
