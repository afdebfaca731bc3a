package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for secure login.
type Metrics struct {
	// Terminal login decisions by status
	Decisions *prometheus.CounterVec

	// Risk scores of decided logins
	RiskScore prometheus.Histogram

	// Rejected challenge reuse attempts
	ChallengeReuse prometheus.Counter

	// Secure login failures by error code
	Failures *prometheus.CounterVec

	// Contextual anomalies reported by the analyzer
	Anomalies prometheus.Counter

	LoginLatency prometheus.Histogram
}

// New registers login metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dcaf_login_decisions_total",
			Help: "Secure login decisions by terminal status",
		}, []string{"status"}), // status: "APPROVED", "CHALLENGED", "DENIED"

		RiskScore: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "dcaf_login_risk_score",
			Help:    "Composite risk scores of decided logins",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),

		ChallengeReuse: factory.NewCounter(prometheus.CounterOpts{
			Name: "dcaf_login_challenge_reuse_total",
			Help: "Biometric challenges rejected because they were already consumed",
		}),

		Failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dcaf_login_failures_total",
			Help: "Secure login attempts that failed before a decision, by error code",
		}, []string{"code"}),

		Anomalies: factory.NewCounter(prometheus.CounterOpts{
			Name: "dcaf_login_contextual_anomalies_total",
			Help: "Login attempts whose contextual analysis reported anomalies",
		}),

		LoginLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "dcaf_login_duration_seconds",
			Help:    "Duration of secure login including signal fan-out and minting",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}

// IncrementDecision records a decision and its risk score.
func (m *Metrics) IncrementDecision(status string, score float64) {
	if m != nil {
		m.Decisions.WithLabelValues(status).Inc()
		m.RiskScore.Observe(score)
	}
}

func (m *Metrics) IncrementChallengeReuse() {
	if m != nil {
		m.ChallengeReuse.Inc()
	}
}

func (m *Metrics) IncrementFailure(code string) {
	if m != nil {
		m.Failures.WithLabelValues(code).Inc()
	}
}

func (m *Metrics) IncrementAnomaly() {
	if m != nil {
		m.Anomalies.Inc()
	}
}

func (m *Metrics) ObserveLoginLatency(d time.Duration) {
	if m != nil {
		m.LoginLatency.Observe(d.Seconds())
	}
}
