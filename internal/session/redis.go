package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Keviin77777/Gestor-php-sub003/internal/domain"
	pkgredis "github.com/Keviin77777/Gestor-php-sub003/pkg/redis"
)

// KeyPrefix namespaces session keys in Redis
const KeyPrefix = "session:"

// RedisStore keeps sessions as JSON strings with a sliding idle TTL.
// Create uses SET NX, Load uses GETEX to slide the TTL, Update uses SET XX.
type RedisStore struct {
	client      *pkgredis.Client
	idleTimeout time.Duration
	now         func() time.Time
}

// NewRedisStore creates a RedisStore
func NewRedisStore(client *pkgredis.Client, idleTimeout time.Duration) *RedisStore {
	return &RedisStore{
		client:      client,
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

func sessionKey(id string) string {
	return KeyPrefix + id
}

func (s *RedisStore) Create(ctx context.Context, claims domain.Claims) (string, error) {
	now := s.now().UTC()

	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		id, err := NewID()
		if err != nil {
			return "", err
		}

		payload, err := json.Marshal(domain.Session{
			ID:         id,
			Claims:     claims,
			CreatedAt:  now,
			LastSeenAt: now,
		})
		if err != nil {
			return "", fmt.Errorf("encode session: %w", err)
		}

		created, err := s.client.SetNX(ctx, sessionKey(id), payload, s.idleTimeout).Result()
		if err != nil {
			return "", unavailable("create", err)
		}
		if created {
			return id, nil
		}
	}
	return "", unavailable("create", errIDCollision)
}

func (s *RedisStore) Load(ctx context.Context, id string) (*domain.Session, error) {
	if !ValidID(id) {
		return nil, domain.ErrSessionNotFound
	}

	raw, err := s.client.GetEx(ctx, sessionKey(id), s.idleTimeout).Bytes()
	if err != nil {
		if errors.Is(err, pkgredis.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, unavailable("load", err)
	}

	var sess domain.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		// unreadable records authenticate nobody
		return nil, domain.ErrSessionNotFound
	}
	sess.LastSeenAt = s.now().UTC()
	return &sess, nil
}

func (s *RedisStore) Update(ctx context.Context, id string, claims domain.Claims) error {
	if !ValidID(id) {
		return domain.ErrSessionNotFound
	}

	current, err := s.Load(ctx, id)
	if err != nil {
		return err
	}
	current.Claims = claims

	payload, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	updated, err := s.client.SetXX(ctx, sessionKey(id), payload, s.idleTimeout).Result()
	if err != nil {
		return unavailable("update", err)
	}
	if !updated {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *RedisStore) Destroy(ctx context.Context, id string) error {
	if !ValidID(id) {
		return nil
	}
	if err := s.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return unavailable("destroy", err)
	}
	return nil
}
