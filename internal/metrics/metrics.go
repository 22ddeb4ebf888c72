// Package metrics holds the Prometheus collectors for authentication,
// tenant scoping and the session store.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values
const (
	OutcomeSuccess      = "success"
	OutcomeUnauthorized = "unauthorized"
	OutcomeUnavailable  = "unavailable"
	OutcomeNotFound     = "not_found"
	OutcomeError        = "error"
)

// Metrics groups every collector the service exports. A nil *Metrics is a no-op.
type Metrics struct {
	// ResolutionsTotal counts identity resolutions by credential method and outcome.
	ResolutionsTotal *prometheus.CounterVec
	// ScopeDecisionsTotal counts tenant guard decisions (unrestricted, scoped, allow, deny).
	ScopeDecisionsTotal *prometheus.CounterVec
	// SessionStoreOpsTotal counts session store calls by backend, operation and outcome.
	SessionStoreOpsTotal *prometheus.CounterVec
	// SessionStoreLatency records session store call latency in seconds.
	SessionStoreLatency *prometheus.HistogramVec
	// LoginAttemptsTotal counts login attempts by outcome.
	LoginAttemptsTotal *prometheus.CounterVec
	// RateLimitRejectedTotal counts requests rejected by the rate limiter.
	RateLimitRejectedTotal *prometheus.CounterVec
}

// New creates the collectors and registers them on reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_resolutions_total",
				Help: "Identity resolutions",
			},
			[]string{"method", "outcome"},
		),
		ScopeDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_scope_decisions_total",
				Help: "Tenant scope decisions",
			},
			[]string{"decision"},
		),
		SessionStoreOpsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "session_store_operations_total",
				Help: "Session store operations",
			},
			[]string{"backend", "op", "outcome"},
		),
		SessionStoreLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "session_store_latency_seconds",
				Help:    "Session store latency",
				Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5, 1, 2},
			},
			[]string{"backend", "op"},
		),
		LoginAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_login_attempts_total",
				Help: "Login attempts",
			},
			[]string{"outcome"},
		),
		RateLimitRejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_ratelimit_rejected_total",
				Help: "Rate limit rejections",
			},
			[]string{"route"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.ResolutionsTotal,
			m.ScopeDecisionsTotal,
			m.SessionStoreOpsTotal,
			m.SessionStoreLatency,
			m.LoginAttemptsTotal,
			m.RateLimitRejectedTotal,
		)
	}

	return m
}

// ObserveResolution records one identity resolution
func (m *Metrics) ObserveResolution(method, outcome string) {
	if m == nil {
		return
	}
	m.ResolutionsTotal.WithLabelValues(method, outcome).Inc()
}

// ObserveScopeDecision records one tenant guard decision
func (m *Metrics) ObserveScopeDecision(decision string) {
	if m == nil {
		return
	}
	m.ScopeDecisionsTotal.WithLabelValues(decision).Inc()
}

// ObserveStoreOp records one session store call
func (m *Metrics) ObserveStoreOp(backend, op, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.SessionStoreOpsTotal.WithLabelValues(backend, op, outcome).Inc()
	m.SessionStoreLatency.WithLabelValues(backend, op).Observe(elapsed.Seconds())
}

// ObserveLogin records one login attempt
func (m *Metrics) ObserveLogin(outcome string) {
	if m == nil {
		return
	}
	m.LoginAttemptsTotal.WithLabelValues(outcome).Inc()
}

// ObserveRateLimited records one rate limiter rejection
func (m *Metrics) ObserveRateLimited(route string) {
	if m == nil {
		return
	}
	m.RateLimitRejectedTotal.WithLabelValues(route).Inc()
}
