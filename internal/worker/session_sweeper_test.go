package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Keviin77777/Gestor-php-sub003/internal/domain"
	"github.com/Keviin77777/Gestor-php-sub003/internal/session"
)

type countingDeleter struct {
	calls   atomic.Int32
	deleted int64
	err     error
}

func (d *countingDeleter) DeleteExpired(ctx context.Context) (int64, error) {
	d.calls.Add(1)
	return d.deleted, d.err
}

func TestSessionSweeper_Sweep(t *testing.T) {
	store := &countingDeleter{deleted: 3}
	w := NewSessionSweeper(store, nil)

	assert.Equal(t, int64(3), w.Sweep(context.Background()))
	assert.Equal(t, int64(3), w.Sweep(context.Background()))

	total, last := w.Stats()
	assert.Equal(t, int64(6), total)
	assert.False(t, last.IsZero())
}

func TestSessionSweeper_SweepError(t *testing.T) {
	store := &countingDeleter{err: errors.New("connection reset")}
	w := NewSessionSweeper(store, nil)

	assert.Zero(t, w.Sweep(context.Background()))
	assert.Equal(t, int32(1), store.calls.Load())
}

func TestSessionSweeper_StartStop(t *testing.T) {
	store := &countingDeleter{}
	w := NewSessionSweeper(store, &SessionSweeperConfig{SweepInterval: 10 * time.Millisecond})

	require.NoError(t, w.Start(context.Background()))
	assert.Error(t, w.Start(context.Background()))

	assert.Eventually(t, func() bool { return store.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	w.Stop()
	calls := store.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, store.calls.Load())

	// second stop is a no-op
	w.Stop()
}

func TestSessionSweeper_StopsOnContextCancel(t *testing.T) {
	store := &countingDeleter{}
	w := NewSessionSweeper(store, &SessionSweeperConfig{SweepInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	assert.Eventually(t, func() bool { return store.calls.Load() >= 1 }, time.Second, 5*time.Millisecond)

	cancel()
	w.Stop()
}

func TestSessionSweeper_MemoryStore(t *testing.T) {
	store := session.NewMemoryStore(time.Nanosecond)
	_, err := store.Create(context.Background(), domain.Claims{ID: "kevin-id", Role: domain.RoleReseller})
	require.NoError(t, err)
	time.Sleep(time.Millisecond)

	w := NewSessionSweeper(store, nil)

	assert.Equal(t, int64(1), w.Sweep(context.Background()))
	assert.Zero(t, store.Len())
}
