package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestMetrics_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveResolution("bearer", OutcomeSuccess)
	m.ObserveResolution("bearer", OutcomeSuccess)
	m.ObserveResolution("session", OutcomeUnauthorized)
	m.ObserveScopeDecision("deny")
	m.ObserveStoreOp("redis", "load", OutcomeSuccess, 2*time.Millisecond)
	m.ObserveLogin(OutcomeSuccess)
	m.ObserveRateLimited("/api/v1/auth/login")

	assert.Equal(t, 2.0, counterValue(t, m.ResolutionsTotal.WithLabelValues("bearer", OutcomeSuccess)))
	assert.Equal(t, 1.0, counterValue(t, m.ResolutionsTotal.WithLabelValues("session", OutcomeUnauthorized)))
	assert.Equal(t, 1.0, counterValue(t, m.ScopeDecisionsTotal.WithLabelValues("deny")))
	assert.Equal(t, 1.0, counterValue(t, m.SessionStoreOpsTotal.WithLabelValues("redis", "load", OutcomeSuccess)))
	assert.Equal(t, 1.0, counterValue(t, m.LoginAttemptsTotal.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, counterValue(t, m.RateLimitRejectedTotal.WithLabelValues("/api/v1/auth/login")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["session_store_latency_seconds"])
	assert.True(t, names["auth_resolutions_total"])
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveResolution("bearer", OutcomeSuccess)
		m.ObserveScopeDecision("allow")
		m.ObserveStoreOp("memory", "create", OutcomeSuccess, time.Millisecond)
		m.ObserveLogin(OutcomeError)
		m.ObserveRateLimited("/")
	})
}
