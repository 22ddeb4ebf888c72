package session

import (
	"context"
	"sync"
	"time"

	"github.com/Keviin77777/Gestor-php-sub003/internal/domain"
)

// MemoryStore keeps sessions in process memory. It is meant for development
// and tests; sessions do not survive a restart and are not shared between replicas.
type MemoryStore struct {
	mu          sync.RWMutex
	sessions    map[string]domain.Session
	idleTimeout time.Duration
	now         func() time.Time
}

// NewMemoryStore creates a MemoryStore that expires sessions idle for longer than idleTimeout
func NewMemoryStore(idleTimeout time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions:    make(map[string]domain.Session),
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

func (s *MemoryStore) Create(ctx context.Context, claims domain.Claims) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", unavailable("create", err)
	}

	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		id, err := NewID()
		if err != nil {
			return "", err
		}

		now := s.now()
		s.mu.Lock()
		if _, exists := s.sessions[id]; exists {
			s.mu.Unlock()
			continue
		}
		s.sessions[id] = domain.Session{
			ID:         id,
			Claims:     claims,
			CreatedAt:  now,
			LastSeenAt: now,
		}
		s.mu.Unlock()
		return id, nil
	}
	return "", unavailable("create", errIDCollision)
}

func (s *MemoryStore) Load(ctx context.Context, id string) (*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("load", err)
	}
	if !ValidID(id) {
		return nil, domain.ErrSessionNotFound
	}

	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if s.expired(sess, now) {
		delete(s.sessions, id)
		return nil, domain.ErrSessionNotFound
	}

	sess.LastSeenAt = now
	s.sessions[id] = sess
	return &sess, nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, claims domain.Claims) error {
	if err := ctx.Err(); err != nil {
		return unavailable("update", err)
	}
	if !ValidID(id) {
		return domain.ErrSessionNotFound
	}

	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok || s.expired(sess, now) {
		delete(s.sessions, id)
		return domain.ErrSessionNotFound
	}

	sess.Claims = claims
	sess.LastSeenAt = now
	s.sessions[id] = sess
	return nil
}

func (s *MemoryStore) Destroy(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return unavailable("destroy", err)
	}

	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

// DeleteExpired removes idle-expired sessions and returns how many were removed
func (s *MemoryStore) DeleteExpired(ctx context.Context) (int64, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, sess := range s.sessions {
		if s.expired(sess, now) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored sessions, expired ones included
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *MemoryStore) expired(sess domain.Session, now time.Time) bool {
	return s.idleTimeout > 0 && !now.Before(sess.LastSeenAt.Add(s.idleTimeout))
}
