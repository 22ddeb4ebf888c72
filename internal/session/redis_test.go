package session

import (
	"context"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Keviin77777/Gestor-php-sub003/internal/domain"
	pkgredis "github.com/Keviin77777/Gestor-php-sub003/pkg/redis"
)

func TestSessionKey(t *testing.T) {
	assert.Equal(t, "session:abc", sessionKey("abc"))
}

func unreachableRedis() *pkgredis.Client {
	return pkgredis.NewFromClient(goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	}))
}

func TestRedisStore_BackendDownIsUnavailable(t *testing.T) {
	client := unreachableRedis()
	defer client.Close()
	store := NewRedisStore(client, time.Hour)
	ctx := context.Background()

	id, err := NewID()
	require.NoError(t, err)

	_, err = store.Create(ctx, resellerClaims())
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

	_, err = store.Load(ctx, id)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

	err = store.Destroy(ctx, id)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestRedisStore_MalformedIDNeverHitsBackend(t *testing.T) {
	client := unreachableRedis()
	defer client.Close()
	store := NewRedisStore(client, time.Hour)

	_, err := store.Load(context.Background(), "not-a-session-id")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.NoError(t, store.Destroy(context.Background(), "x"))
}

func TestRedisStore_Integration(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=true to run.")
	}

	cfg := pkgredis.DefaultConfig()
	if host := os.Getenv("TEST_REDIS_HOST"); host != "" {
		cfg.Host = host
	}
	cfg.Password = os.Getenv("TEST_REDIS_PASSWORD")

	ctx := context.Background()
	client, err := pkgredis.NewClient(ctx, cfg)
	require.NoError(t, err)
	defer client.Close()

	store := NewRedisStore(client, time.Minute)

	id, err := store.Create(ctx, resellerClaims())
	require.NoError(t, err)

	sess, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "kevin-id", sess.Claims.ID)

	ttl, err := client.TTL(ctx, sessionKey(id)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 50*time.Second)

	claims := resellerClaims()
	claims.Name = "Renamed"
	require.NoError(t, store.Update(ctx, id, claims))

	sess, err = store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", sess.Claims.Name)

	require.NoError(t, store.Destroy(ctx, id))
	_, err = store.Load(ctx, id)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.ErrorIs(t, store.Update(ctx, id, claims), domain.ErrSessionNotFound)
}
