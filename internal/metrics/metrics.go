// Package metrics exposes Prometheus instrumentation for feast computation
// and the feast archive.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Computation outcomes.
const (
	OutcomeOK             = "ok"
	OutcomeUnavailable    = "unavailable"
	OutcomeExhausted      = "search_exhausted"
	OutcomeInvalidRequest = "invalid"
	OutcomeError          = "error"
)

// Metrics provides observability for feast computation and archiving.
type Metrics struct {
	// Year computations by outcome
	Computations *prometheus.CounterVec

	// Time to compute a single year, including ephemeris lookups
	ComputeLatency prometheus.Histogram

	// Archive lookups by result: "hit" or "miss"
	ArchiveLookups *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates a Metrics instance registered with the default registry.
func New() *Metrics {
	return newMetrics(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

// NewWithRegistry registers the metrics with reg instead of the default
// registry. Tests use it to avoid duplicate registration.
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	return newMetrics(reg, reg)
}

func newMetrics(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Computations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "feast_calendar_computations_total",
			Help: "Total feast year computations by outcome",
		}, []string{"outcome"}),

		ComputeLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "feast_calendar_compute_duration_seconds",
			Help:    "Duration of a single feast year computation",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),

		ArchiveLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "feast_calendar_archive_lookups_total",
			Help: "Archive lookups by result",
		}, []string{"result"}), // result: "hit", "miss"

		gatherer: gatherer,
	}
}

// IncrementComputation records the outcome of a year computation.
func (m *Metrics) IncrementComputation(outcome string) {
	if m != nil {
		m.Computations.WithLabelValues(outcome).Inc()
	}
}

// ObserveComputeLatency records how long a year computation took.
func (m *Metrics) ObserveComputeLatency(d time.Duration) {
	if m != nil {
		m.ComputeLatency.Observe(d.Seconds())
	}
}

// RecordArchiveLookup records whether a year was served from the archive.
func (m *Metrics) RecordArchiveLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.ArchiveLookups.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus exposition format. A nil
// Metrics serves the default registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
