package feed

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricFeedDuration   = "feed_request_duration_seconds"
	MetricFeedCandidates = "feed_candidates_total"
	MetricFeedKept       = "feed_candidates_kept_total"
)

// Metrics contains Prometheus metrics for feed generation.
// All operations are thread-safe.
type Metrics struct {
	duration   prometheus.Histogram
	candidates *prometheus.CounterVec
	kept       *prometheus.CounterVec
}

// NewMetrics creates and returns a new Metrics instance with all collectors
// initialized. The metrics are not registered; call Register to register them
// with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricFeedDuration,
			Help:    "Duration of feed requests across all phases",
			Buckets: prometheus.DefBuckets,
		}),
		candidates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricFeedCandidates,
				Help: "Total feed candidates fetched by phase",
			},
			[]string{"phase"},
		),
		kept: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricFeedKept,
				Help: "Total feed candidates that survived sampling by phase",
			},
			[]string{"phase"},
		),
	}
}

// Register registers all collectors with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	if err := reg.Register(m.duration); err != nil {
		return err
	}
	if err := reg.Register(m.candidates); err != nil {
		return err
	}
	return reg.Register(m.kept)
}

// ObserveDuration records one completed feed request.
func (m *Metrics) ObserveDuration(d time.Duration) {
	m.duration.Observe(d.Seconds())
}

// ObservePhase records how many candidates a phase produced and how many
// survived its sampling trials.
func (m *Metrics) ObservePhase(phase Phase, fetched, kept int) {
	m.candidates.WithLabelValues(string(phase)).Add(float64(fetched))
	m.kept.WithLabelValues(string(phase)).Add(float64(kept))
}
