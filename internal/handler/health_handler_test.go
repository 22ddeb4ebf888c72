package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChecker struct{ err error }

func (f fakeChecker) HealthCheck(ctx context.Context) error { return f.err }

func newHealthRouter(checks map[string]Checker) *gin.Engine {
	h := NewHealthHandler("gestor-auth", checks, nil)
	r := gin.New()
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)
	return r
}

func TestHealth(t *testing.T) {
	w := serve(newHealthRouter(nil), http.MethodGet, "/health")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestReady(t *testing.T) {
	t.Run("all connected", func(t *testing.T) {
		r := newHealthRouter(map[string]Checker{"database": fakeChecker{}, "redis": fakeChecker{}, "kafka": nil})

		w := serve(r, http.MethodGet, "/ready")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"database":"connected"`)
		assert.NotContains(t, w.Body.String(), "kafka")
	})

	t.Run("redis down", func(t *testing.T) {
		r := newHealthRouter(map[string]Checker{
			"database": fakeChecker{},
			"redis":    fakeChecker{err: errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")},
		})

		w := serve(r, http.MethodGet, "/ready")

		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), `"redis":"disconnected"`)
		assert.Contains(t, w.Body.String(), `"status":"not_ready"`)
		assert.NotContains(t, w.Body.String(), "connection refused")
	})
}
