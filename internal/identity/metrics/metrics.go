package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for identity authorization.
type Metrics struct {
	// Profile aggregation latencies by source
	FetchLatency *prometheus.HistogramVec

	// Authorization outcomes by result and error code
	AuthorizeOutcome *prometheus.CounterVec

	// Overall authorization latency
	AuthorizeLatency prometheus.Histogram

	// Distribution of advisory compatibility ratings
	CompatibilityRating prometheus.Histogram
}

// New registers identity metrics with reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		FetchLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dcaf_identity_fetch_duration_seconds",
			Help:    "Duration of profile aggregation fetches by source",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"source"}), // source: "profile", "match_insight"

		AuthorizeOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dcaf_identity_authorize_outcomes_total",
			Help: "Identity authorization outcomes by result and error code",
		}, []string{"result", "code"}),

		AuthorizeLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "dcaf_identity_authorize_duration_seconds",
			Help:    "Duration of full identity authorization including aggregation",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),

		CompatibilityRating: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "dcaf_identity_compatibility_rating",
			Help:    "Advisory compatibility ratings produced for authorized identities",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
	}
}

// ObserveFetchLatency records the duration of one aggregation fetch.
func (m *Metrics) ObserveFetchLatency(source string, d time.Duration) {
	if m != nil {
		m.FetchLatency.WithLabelValues(source).Observe(d.Seconds())
	}
}

// IncrementOutcome records an authorization outcome. code is empty on success.
func (m *Metrics) IncrementOutcome(result, code string) {
	if m != nil {
		m.AuthorizeOutcome.WithLabelValues(result, code).Inc()
	}
}

func (m *Metrics) ObserveAuthorizeLatency(d time.Duration) {
	if m != nil {
		m.AuthorizeLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveCompatibility(rating float64) {
	if m != nil {
		m.CompatibilityRating.Observe(rating)
	}
}
