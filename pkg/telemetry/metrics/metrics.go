// Package metrics exposes Prometheus metrics for the policy session.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "europa"

// PolicyMetrics implements session.Metrics on top of a Prometheus registry.
type PolicyMetrics struct {
	loadsTotal         prometheus.Counter
	loadFailuresTotal  *prometheus.CounterVec
	policyVersion      prometheus.Gauge
	policyRules        prometheus.Gauge
	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration prometheus.Histogram
}

// NewPolicyMetrics creates and registers the policy metric set.
func NewPolicyMetrics(registry *prometheus.Registry) *PolicyMetrics {
	m := &PolicyMetrics{
		loadsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "policy",
			Name:      "loads_total",
			Help:      "Total number of successful policy loads.",
		}),
		loadFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "policy",
			Name:      "load_failures_total",
			Help:      "Total number of failed policy loads by stage.",
		}, []string{"stage"}),
		policyVersion: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "policy",
			Name:      "version",
			Help:      "Version of the currently loaded policy.",
		}),
		policyRules: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "policy",
			Name:      "rules",
			Help:      "Number of rules in the currently loaded policy.",
		}),
		evaluationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Total number of policy evaluations by outcome.",
		}, []string{"outcome"}),
		evaluationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluation_duration_seconds",
			Help:      "Policy evaluation latency in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
	}

	registry.MustRegister(
		m.loadsTotal,
		m.loadFailuresTotal,
		m.policyVersion,
		m.policyRules,
		m.evaluationsTotal,
		m.evaluationDuration,
	)
	return m
}

// PolicyLoaded records a successful policy load.
func (m *PolicyMetrics) PolicyLoaded(version uint64, rules int) {
	m.loadsTotal.Inc()
	m.policyVersion.Set(float64(version))
	m.policyRules.Set(float64(rules))
}

// PolicyLoadFailed records a failed policy load.
func (m *PolicyMetrics) PolicyLoadFailed(stage string) {
	m.loadFailuresTotal.WithLabelValues(stage).Inc()
}

// EvaluationObserved records a completed evaluation.
func (m *PolicyMetrics) EvaluationObserved(outcome string, duration time.Duration) {
	m.evaluationsTotal.WithLabelValues(outcome).Inc()
	m.evaluationDuration.Observe(duration.Seconds())
}
