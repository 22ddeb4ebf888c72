package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Keviin77777/Gestor-php-sub003/internal/domain"
	"github.com/Keviin77777/Gestor-php-sub003/internal/metrics"
)

// blockingStore waits for the context and then returns a plain error,
// like a backend that does not classify deadlines itself
type blockingStore struct{}

func (blockingStore) Create(ctx context.Context, claims domain.Claims) (string, error) {
	<-ctx.Done()
	return "", errors.New("i/o timeout")
}

func (blockingStore) Load(ctx context.Context, id string) (*domain.Session, error) {
	<-ctx.Done()
	return nil, errors.New("i/o timeout")
}

func (blockingStore) Update(ctx context.Context, id string, claims domain.Claims) error {
	<-ctx.Done()
	return errors.New("i/o timeout")
}

func (blockingStore) Destroy(ctx context.Context, id string) error {
	<-ctx.Done()
	return errors.New("i/o timeout")
}

func storeOps(t *testing.T, m *metrics.Metrics, backend, op, outcome string) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, m.SessionStoreOpsTotal.WithLabelValues(backend, op, outcome).Write(&out))
	return out.GetCounter().GetValue()
}

func TestInstrumented_TimeoutIsUnavailable(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	store := Instrument(blockingStore{}, "test", 20*time.Millisecond, m)

	id, err := NewID()
	require.NoError(t, err)

	start := time.Now()
	_, err = store.Load(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.Less(t, time.Since(start), time.Second)

	assert.Equal(t, 1.0, storeOps(t, m, "test", "load", metrics.OutcomeUnavailable))
}

func TestInstrumented_RequestDeadlineIsInherited(t *testing.T) {
	store := Instrument(blockingStore{}, "test", 0, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := store.Destroy(ctx, "whatever")
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestInstrumented_PassesThrough(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	store := Instrument(NewMemoryStore(time.Hour), "memory", time.Second, m)
	ctx := context.Background()

	id, err := store.Create(ctx, resellerClaims())
	require.NoError(t, err)

	sess, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "kevin-id", sess.Claims.ID)

	require.NoError(t, store.Update(ctx, id, resellerClaims()))
	require.NoError(t, store.Destroy(ctx, id))

	_, err = store.Load(ctx, id)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.NotErrorIs(t, err, domain.ErrStoreUnavailable)

	assert.Equal(t, 1.0, storeOps(t, m, "memory", "create", metrics.OutcomeSuccess))
	assert.Equal(t, 1.0, storeOps(t, m, "memory", "load", metrics.OutcomeSuccess))
	assert.Equal(t, 1.0, storeOps(t, m, "memory", "load", metrics.OutcomeNotFound))
}
