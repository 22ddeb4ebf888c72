package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/Keviin77777/Gestor-php-sub003/internal/audit"
	"github.com/Keviin77777/Gestor-php-sub003/internal/domain"
	"github.com/Keviin77777/Gestor-php-sub003/internal/middleware"
	"github.com/Keviin77777/Gestor-php-sub003/internal/scope"
	"github.com/Keviin77777/Gestor-php-sub003/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubResolver struct {
	principal domain.Principal
	err       error
}

func (r stubResolver) Resolve(ctx context.Context, req *http.Request) (domain.Principal, error) {
	return r.principal, r.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []audit.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event audit.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) Events() []audit.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]audit.Event(nil), p.events...)
}

func newAuthorizer(p domain.Principal, publisher audit.Publisher) *middleware.Authorizer {
	return middleware.NewAuthorizer(stubResolver{principal: p}, scope.NewGuard(nil), publisher, nil)
}

func reseller(id string) domain.Principal {
	return domain.Principal{ID: id, Role: domain.RoleReseller, AccountStatus: domain.AccountActive, Method: domain.AuthMethodBearer}
}

func admin() domain.Principal {
	return domain.Principal{ID: "admin-id", Role: domain.RoleAdmin, AccountStatus: domain.AccountActive, Method: domain.AuthMethodSession}
}

type envelope struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorData `json:"error"`
	Meta    *response.ListMeta  `json:"meta"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}
