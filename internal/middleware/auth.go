// Package middleware is the request-entry gate for protected endpoints. It
// resolves the caller once, stores the Principal on the request, and hands
// handlers a scope predicate per resource kind on demand.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"sync"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/Keviin77777/Gestor-php-sub003/internal/audit"
	"github.com/Keviin77777/Gestor-php-sub003/internal/domain"
	"github.com/Keviin77777/Gestor-php-sub003/internal/scope"
	"github.com/Keviin77777/Gestor-php-sub003/pkg/logger"
	"github.com/Keviin77777/Gestor-php-sub003/pkg/response"
	"github.com/Keviin77777/Gestor-php-sub003/pkg/telemetry"
)

// Gin context keys
const (
	ContextKeyPrincipal = "principal"
	ContextKeyUserID    = "user_id"
	ContextKeyRole      = "role"

	contextKeyScope = "scope"
)

type principalKey struct{}

// Resolver resolves a request to a Principal. *identity.Resolver satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, req *http.Request) (domain.Principal, error)
}

// Authorizer composes identity resolution and tenant scoping
type Authorizer struct {
	resolver Resolver
	guard    *scope.Guard
	audit    audit.Publisher
	log      *logger.Logger
}

// NewAuthorizer creates an Authorizer. A nil publisher disables audit events.
func NewAuthorizer(resolver Resolver, guard *scope.Guard, publisher audit.Publisher, log *logger.Logger) *Authorizer {
	if publisher == nil {
		publisher = audit.Nop{}
	}
	if log == nil {
		log = logger.Get()
	}
	return &Authorizer{
		resolver: resolver,
		guard:    guard,
		audit:    publisher,
		log:      log,
	}
}

// RequireAuth rejects unauthenticated requests before any handler runs.
// Store outages answer 503, every other failure 401.
func (a *Authorizer) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := a.resolver.Resolve(c.Request.Context(), c.Request)
		if err != nil {
			if errors.Is(err, domain.ErrStoreUnavailable) {
				response.ServiceUnavailable(c)
				return
			}
			response.Unauthorized(c)
			return
		}

		c.Set(ContextKeyPrincipal, p)
		c.Set(ContextKeyUserID, p.ID)
		c.Set(ContextKeyRole, string(p.Role))
		c.Set(contextKeyScope, &requestScope{guard: a.guard, principal: p})
		c.Request = c.Request.WithContext(WithPrincipal(c.Request.Context(), p))

		telemetry.SetSpanAttributes(c.Request.Context(),
			attribute.String("enduser.id", p.ID),
			attribute.String("enduser.role", string(p.Role)),
			attribute.String("auth.method", string(p.Method)),
		)

		c.Next()
	}
}

// RequireRole allows only principals holding one of roles. It must run after RequireAuth.
func (a *Authorizer) RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := GetPrincipal(c)
		if !ok {
			response.Unauthorized(c)
			return
		}

		if !slices.Contains(roles, p.Role) {
			a.Deny(c, p)
			return
		}
		c.Next()
	}
}

// Deny answers 403 and records the denial
func (a *Authorizer) Deny(c *gin.Context, p domain.Principal) {
	event := audit.NewEvent(audit.EventAccessDenied, p, c.ClientIP())
	event.Route = c.FullPath()
	a.audit.Publish(c.Request.Context(), event)

	a.log.Warn("Access denied",
		zap.String("principal_id", p.ID),
		zap.String("role", string(p.Role)),
		zap.String("route", event.Route),
	)
	response.Forbidden(c)
}

// requestScope memoizes predicates for the lifetime of one request
type requestScope struct {
	guard     *scope.Guard
	principal domain.Principal

	mu         sync.Mutex
	predicates map[domain.ResourceKind]scope.Predicate
}

func (s *requestScope) predicate(kind domain.ResourceKind) (scope.Predicate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pred, ok := s.predicates[kind]; ok {
		return pred, nil
	}

	pred, err := s.guard.ScopeFor(s.principal, kind)
	if err != nil {
		return scope.Predicate{}, err
	}
	if s.predicates == nil {
		s.predicates = make(map[domain.ResourceKind]scope.Predicate)
	}
	s.predicates[kind] = pred
	return pred, nil
}

// ResolveAndScope returns the request's Principal and its read predicate for
// kind. It fails with domain.ErrUnauthorized outside RequireAuth.
func ResolveAndScope(c *gin.Context, kind domain.ResourceKind) (domain.Principal, scope.Predicate, error) {
	v, ok := c.Get(contextKeyScope)
	if !ok {
		return domain.Principal{}, scope.Predicate{}, domain.ErrUnauthorized
	}
	rs, ok := v.(*requestScope)
	if !ok {
		return domain.Principal{}, scope.Predicate{}, domain.ErrUnauthorized
	}

	pred, err := rs.predicate(kind)
	if err != nil {
		return rs.principal, scope.Predicate{}, err
	}
	return rs.principal, pred, nil
}

// GetPrincipal returns the Principal set by RequireAuth
func GetPrincipal(c *gin.Context) (domain.Principal, bool) {
	v, ok := c.Get(ContextKeyPrincipal)
	if !ok {
		return domain.Principal{}, false
	}
	p, ok := v.(domain.Principal)
	return p, ok
}

// WithPrincipal stores p on ctx
func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the Principal stored on ctx
func PrincipalFrom(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(domain.Principal)
	return p, ok
}
