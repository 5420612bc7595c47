// Package metrics exposes Prometheus instrumentation for registry calls and batches.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Registry requests by result kind: ok, blocked, invalid_reply, parse_error, transport
	RegistryRequests *prometheus.CounterVec

	RegistryLatency prometheus.Histogram

	// Batch terminations by outcome
	BatchOutcomes *prometheus.CounterVec

	Retries prometheus.Counter
}

// New creates a Metrics instance registered on its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RegistryRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "euvat_registry_requests_total",
			Help: "Total VIES checkVat requests by result kind",
		}, []string{"kind"}),

		RegistryLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "euvat_registry_request_duration_seconds",
			Help:    "Duration of VIES checkVat requests",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		BatchOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "euvat_batch_outcomes_total",
			Help: "Total batch terminations by outcome",
		}, []string{"outcome"}),

		Retries: factory.NewCounter(prometheus.CounterOpts{
			Name: "euvat_registry_retries_total",
			Help: "Total registry retries scheduled after transient failures",
		}),
	}
}

// ObserveRegistryRequest records one registry call.
func (m *Metrics) ObserveRegistryRequest(kind string, d time.Duration) {
	if m != nil {
		m.RegistryRequests.WithLabelValues(kind).Inc()
		m.RegistryLatency.Observe(d.Seconds())
	}
}

// IncrementBatchOutcome counts a terminated batch.
func (m *Metrics) IncrementBatchOutcome(outcome string) {
	if m != nil {
		m.BatchOutcomes.WithLabelValues(outcome).Inc()
	}
}

// IncrementRetries counts a scheduled retry.
func (m *Metrics) IncrementRetries() {
	if m != nil {
		m.Retries.Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
