package session

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Keviin77777/Gestor-php-sub003/internal/domain"
	"github.com/Keviin77777/Gestor-php-sub003/internal/metrics"
	"github.com/Keviin77777/Gestor-php-sub003/pkg/telemetry"
)

// Instrumented wraps a Store with a per-call deadline, tracing and metrics.
// The session id never appears in spans or labels.
type Instrumented struct {
	next    Store
	backend string
	timeout time.Duration
	metrics *metrics.Metrics
}

// Instrument decorates next. A zero timeout leaves the caller's deadline alone.
func Instrument(next Store, backend string, timeout time.Duration, m *metrics.Metrics) *Instrumented {
	return &Instrumented{
		next:    next,
		backend: backend,
		timeout: timeout,
		metrics: m,
	}
}

func (s *Instrumented) Create(ctx context.Context, claims domain.Claims) (string, error) {
	var id string
	err := s.observe(ctx, "create", func(ctx context.Context) error {
		var err error
		id, err = s.next.Create(ctx, claims)
		return err
	})
	return id, err
}

func (s *Instrumented) Load(ctx context.Context, id string) (*domain.Session, error) {
	var sess *domain.Session
	err := s.observe(ctx, "load", func(ctx context.Context) error {
		var err error
		sess, err = s.next.Load(ctx, id)
		return err
	})
	return sess, err
}

func (s *Instrumented) Update(ctx context.Context, id string, claims domain.Claims) error {
	return s.observe(ctx, "update", func(ctx context.Context) error {
		return s.next.Update(ctx, id, claims)
	})
}

func (s *Instrumented) Destroy(ctx context.Context, id string) error {
	return s.observe(ctx, "destroy", func(ctx context.Context) error {
		return s.next.Destroy(ctx, id)
	})
}

func (s *Instrumented) observe(ctx context.Context, op string, call func(context.Context) error) error {
	ctx, span := telemetry.StartSpan(ctx, "session."+op,
		trace.WithAttributes(attribute.String("session.backend", s.backend)),
	)
	defer span.End()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	err := call(ctx)

	// a backend that ignored the deadline still reports unavailable
	if err != nil && !errors.Is(err, domain.ErrStoreUnavailable) && !errors.Is(err, domain.ErrSessionNotFound) && ctx.Err() != nil {
		err = unavailable(op, ctx.Err())
	}

	outcome := metrics.OutcomeSuccess
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrSessionNotFound):
		outcome = metrics.OutcomeNotFound
	case errors.Is(err, domain.ErrStoreUnavailable):
		outcome = metrics.OutcomeUnavailable
		telemetry.SetSpanError(span, domain.ErrStoreUnavailable)
	default:
		outcome = metrics.OutcomeError
		telemetry.SetSpanError(span, err)
	}
	s.metrics.ObserveStoreOp(s.backend, op, outcome, time.Since(start))

	return err
}
