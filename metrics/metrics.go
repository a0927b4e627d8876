// Package metrics exposes Prometheus instrumentation for the bridge
// runtime. The collectors implement bridge.Observer, so wiring is one
// field in bridge.Config.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"llmbridge/bridge"
)

// Metrics holds the bridge collectors. Construct with New; each instance
// registers its collectors on its own registerer, so two runtimes in one
// process cannot collide.
type Metrics struct {
	activeGenerations  prometheus.Gauge
	generationsTotal   *prometheus.CounterVec
	generationDuration prometheus.Histogram
	queuedRequests     prometheus.Gauge
}

var _ bridge.Observer = (*Metrics)(nil)

// New creates and registers the bridge collectors on reg. Pass
// prometheus.DefaultRegisterer for the usual process-global registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		activeGenerations: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "llmbridge",
			Name:      "active_generations",
			Help:      "Number of generation requests currently executing.",
		}),
		generationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "llmbridge",
			Name:      "generations_total",
			Help:      "Completed generation requests by outcome.",
		}, []string{"outcome"}),
		generationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "llmbridge",
			Name:      "generation_duration_seconds",
			Help:      "Wall-clock duration of engine generation calls.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		queuedRequests: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "llmbridge",
			Name:      "queued_requests",
			Help:      "Async requests waiting for a worker.",
		}),
	}
}

// GenerationStarted implements bridge.Observer.
func (m *Metrics) GenerationStarted() {
	m.activeGenerations.Inc()
}

// GenerationCompleted implements bridge.Observer.
func (m *Metrics) GenerationCompleted(success bool, duration time.Duration) {
	m.activeGenerations.Dec()
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.generationsTotal.WithLabelValues(outcome).Inc()
	m.generationDuration.Observe(duration.Seconds())
}

// SetQueueDepth records the current worker pool queue depth. The bridge
// does not push this; callers sample it, e.g. on a ticker.
func (m *Metrics) SetQueueDepth(depth int) {
	m.queuedRequests.Set(float64(depth))
}
