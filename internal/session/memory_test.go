package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Keviin77777/Gestor-php-sub003/internal/domain"
)

func resellerClaims() domain.Claims {
	return domain.Claims{
		ID:    "kevin-id",
		Email: "kevin@example.com",
		Name:  "Kevin",
		Role:  domain.RoleReseller,
	}
}

func TestNewID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id, err := NewID()
		require.NoError(t, err)
		assert.True(t, ValidID(id), id)
		assert.False(t, seen[id], "duplicate id")
		seen[id] = true
	}
}

func TestValidID(t *testing.T) {
	id, err := NewID()
	require.NoError(t, err)

	assert.True(t, ValidID(id))
	assert.False(t, ValidID(""))
	assert.False(t, ValidID(id[:len(id)-1]))
	assert.False(t, ValidID(id[:len(id)-1]+"*"))
	assert.False(t, ValidID("session:"+id))
}

func TestMemoryStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)

	id, err := store.Create(ctx, resellerClaims())
	require.NoError(t, err)

	sess, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, sess.ID)
	assert.Equal(t, "kevin-id", sess.Claims.ID)
	assert.Equal(t, domain.RoleReseller, sess.Claims.Role)

	updated := resellerClaims()
	updated.Name = "Kevin R."
	require.NoError(t, store.Update(ctx, id, updated))

	sess, err = store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Kevin R.", sess.Claims.Name)

	require.NoError(t, store.Destroy(ctx, id))
	_, err = store.Load(ctx, id)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	// destroy is idempotent
	assert.NoError(t, store.Destroy(ctx, id))
	assert.ErrorIs(t, store.Update(ctx, id, updated), domain.ErrSessionNotFound)
}

func TestMemoryStore_UnknownAndMalformedIDs(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)

	other, err := NewID()
	require.NoError(t, err)

	_, err = store.Load(ctx, other)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = store.Load(ctx, "../../etc/passwd")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestMemoryStore_IdleTimeout(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	store := NewMemoryStore(30 * time.Minute)
	store.now = func() time.Time { return now }

	id, err := store.Create(ctx, resellerClaims())
	require.NoError(t, err)

	// activity slides the window
	now = now.Add(29 * time.Minute)
	_, err = store.Load(ctx, id)
	require.NoError(t, err)

	now = now.Add(29 * time.Minute)
	_, err = store.Load(ctx, id)
	require.NoError(t, err)

	now = now.Add(30 * time.Minute)
	_, err = store.Load(ctx, id)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStore_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	store := NewMemoryStore(time.Minute)
	store.now = func() time.Time { return now }

	_, err := store.Create(ctx, resellerClaims())
	require.NoError(t, err)

	now = now.Add(30 * time.Second)
	live, err := store.Create(ctx, resellerClaims())
	require.NoError(t, err)

	now = now.Add(45 * time.Second)
	n, err := store.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = store.Load(ctx, live)
	assert.NoError(t, err)
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := NewMemoryStore(time.Hour)
	_, err := store.Create(ctx, resellerClaims())
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestMemoryStore_ConcurrentSessionsDoNotInterfere(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)

	const workers = 32
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			claims := resellerClaims()
			claims.ID = string(rune('a'+i%26)) + "-reseller"

			id, err := store.Create(ctx, claims)
			if err != nil {
				errs <- err
				return
			}
			sess, err := store.Load(ctx, id)
			if err != nil {
				errs <- err
				return
			}
			if sess.Claims.ID != claims.ID {
				errs <- assert.AnError
				return
			}
			errs <- store.Destroy(ctx, id)
		}(i)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStore_SameIDLastWriterWins(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)

	id, err := store.Create(ctx, resellerClaims())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			claims := resellerClaims()
			claims.Name = "writer"
			_ = store.Update(ctx, id, claims)
		}(i)
	}
	wg.Wait()

	sess, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "writer", sess.Claims.Name)
}
