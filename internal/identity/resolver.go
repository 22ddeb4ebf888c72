// Package identity turns the credentials on a request into a single
// domain.Principal. Bearer tokens are tried first; a request carrying a
// Bearer header is decided by it alone, and only requests without one fall
// back to the session cookie.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Keviin77777/Gestor-php-sub003/internal/domain"
	"github.com/Keviin77777/Gestor-php-sub003/internal/metrics"
	"github.com/Keviin77777/Gestor-php-sub003/pkg/logger"
	"github.com/Keviin77777/Gestor-php-sub003/pkg/telemetry"
)

// AccountLookup returns the lifecycle status of a user.
// It returns domain.ErrUserNotFound for unknown ids.
type AccountLookup interface {
	AccountStatus(ctx context.Context, userID string) (domain.AccountStatus, error)
}

// Resolver runs the credential strategies in order
type Resolver struct {
	strategies []Strategy
	accounts   AccountLookup
	lookupTTL  time.Duration
	metrics    *metrics.Metrics
	log        *logger.Logger
}

// Option configures a Resolver
type Option func(*Resolver)

// WithAccountLookup makes every resolution check the account still exists and load its status
func WithAccountLookup(accounts AccountLookup) Option {
	return func(r *Resolver) {
		r.accounts = accounts
	}
}

// WithLookupTimeout bounds each account status lookup
func WithLookupTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		r.lookupTTL = d
	}
}

// WithMetrics records resolution outcomes
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// WithLogger sets the logger used for rejected credentials
func WithLogger(l *logger.Logger) Option {
	return func(r *Resolver) {
		r.log = l
	}
}

// NewResolver creates a Resolver that tries bearer then cookie
func NewResolver(bearer *BearerStrategy, cookie *SessionStrategy, opts ...Option) *Resolver {
	r := &Resolver{
		strategies: []Strategy{bearer, cookie},
		log:        logger.Get(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the request's Principal.
//
// Errors are exactly domain.ErrUnauthorized or wrap domain.ErrStoreUnavailable;
// the reason a credential was rejected is logged, never returned.
func (r *Resolver) Resolve(ctx context.Context, req *http.Request) (domain.Principal, error) {
	ctx, span := telemetry.StartSpan(ctx, "identity.resolve")
	defer span.End()

	for _, strategy := range r.strategies {
		method := string(strategy.Method())

		p, err := strategy.Authenticate(ctx, req)
		if err == nil && p == nil {
			continue
		}
		span.SetAttributes(attribute.String("auth.method", method))

		if err == nil {
			err = r.checkAccount(ctx, p)
		}
		if err != nil {
			return domain.Principal{}, r.reject(span, method, err)
		}

		span.SetAttributes(attribute.String("auth.role", string(p.Role)))
		r.metrics.ObserveResolution(method, metrics.OutcomeSuccess)
		return *p, nil
	}

	span.SetAttributes(attribute.String("auth.method", "none"))
	r.metrics.ObserveResolution("none", metrics.OutcomeUnauthorized)
	return domain.Principal{}, domain.ErrUnauthorized
}

func (r *Resolver) checkAccount(ctx context.Context, p *domain.Principal) error {
	if r.accounts == nil {
		return nil
	}

	if r.lookupTTL > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.lookupTTL)
		defer cancel()
	}

	status, err := r.accounts.AccountStatus(ctx, p.ID)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("account lookup: %w: %w", domain.ErrStoreUnavailable, ctxErr)
		}
		if errors.Is(err, domain.ErrUserNotFound) {
			return fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
		}
		if errors.Is(err, domain.ErrStoreUnavailable) {
			return err
		}
		return fmt.Errorf("account lookup: %w: %w", domain.ErrStoreUnavailable, err)
	}

	if !status.Valid() {
		r.log.Warn("Unrecognized account status, treating as suspended",
			zap.String("user_id", p.ID),
			zap.String("status", string(status)),
		)
		status = domain.AccountSuspended
	}
	p.AccountStatus = status
	return nil
}

func (r *Resolver) reject(span trace.Span, method string, err error) error {
	if errors.Is(err, domain.ErrStoreUnavailable) {
		span.SetAttributes(attribute.String("auth.outcome", metrics.OutcomeUnavailable))
		r.metrics.ObserveResolution(method, metrics.OutcomeUnavailable)
		r.log.Error("Identity store unavailable", zap.String("method", method), zap.Error(err))
		return err
	}

	span.SetAttributes(attribute.String("auth.outcome", metrics.OutcomeUnauthorized))
	r.metrics.ObserveResolution(method, metrics.OutcomeUnauthorized)
	r.log.Debug("Credential rejected", zap.String("method", method), zap.String("reason", reason(err)))
	return domain.ErrUnauthorized
}

// reason maps a rejection onto a fixed vocabulary for logs
func reason(err error) string {
	switch {
	case errors.Is(err, domain.ErrExpired):
		return "expired"
	case errors.Is(err, domain.ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, domain.ErrMalformedToken):
		return "malformed"
	case errors.Is(err, domain.ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, domain.ErrUserNotFound):
		return "user_not_found"
	default:
		return "invalid"
	}
}
