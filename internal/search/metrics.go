package search

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricSearchDuration = "search_request_duration_seconds"
	MetricSearchResults  = "search_results_total"
)

// Metrics contains Prometheus metrics for the search engine.
// All operations are thread-safe.
type Metrics struct {
	duration prometheus.Histogram
	results  *prometheus.CounterVec
}

// NewMetrics creates and returns a new Metrics instance with all collectors
// initialized. The metrics are not registered; call Register to register them
// with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricSearchDuration,
			Help:    "Duration of search requests including adapter fan-out and merge",
			Buckets: prometheus.DefBuckets,
		}),
		results: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricSearchResults,
				Help: "Total scored search candidates by entity kind",
			},
			[]string{"entity_type"},
		),
	}
}

// Register registers all collectors with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	if err := reg.Register(m.duration); err != nil {
		return err
	}
	return reg.Register(m.results)
}

// ObserveDuration records one completed search request.
func (m *Metrics) ObserveDuration(d time.Duration) {
	m.duration.Observe(d.Seconds())
}

// ObserveResults records the number of scored candidates one adapter produced.
func (m *Metrics) ObserveResults(entityType string, count int) {
	m.results.WithLabelValues(entityType).Add(float64(count))
}
