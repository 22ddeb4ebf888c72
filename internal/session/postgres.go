package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Keviin77777/Gestor-php-sub003/internal/domain"
	"github.com/Keviin77777/Gestor-php-sub003/pkg/database"
)

// PostgresStore keeps sessions in the sessions table. Idle expiry compares
// last_seen_at against the idle timeout and is refreshed atomically on Load.
type PostgresStore struct {
	db          database.Querier
	idleTimeout time.Duration
	now         func() time.Time
}

// NewPostgresStore creates a PostgresStore
func NewPostgresStore(db database.Querier, idleTimeout time.Duration) *PostgresStore {
	return &PostgresStore{
		db:          db,
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

func (s *PostgresStore) Create(ctx context.Context, claims domain.Claims) (string, error) {
	query := `
		INSERT INTO sessions (id, user_id, claims, created_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (id) DO NOTHING
	`
	now := s.now().UTC()

	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		id, err := NewID()
		if err != nil {
			return "", err
		}

		tag, err := s.db.Exec(ctx, query, id, claims.ID, claims, now)
		if err != nil {
			return "", unavailable("create", err)
		}
		if tag.RowsAffected() == 1 {
			return id, nil
		}
	}
	return "", unavailable("create", errIDCollision)
}

func (s *PostgresStore) Load(ctx context.Context, id string) (*domain.Session, error) {
	if !ValidID(id) {
		return nil, domain.ErrSessionNotFound
	}

	query := `
		UPDATE sessions
		SET last_seen_at = $2
		WHERE id = $1 AND last_seen_at > $3
		RETURNING id, claims, created_at, last_seen_at
	`
	now := s.now().UTC()

	sess := &domain.Session{}
	err := s.db.QueryRow(ctx, query, id, now, s.cutoff(now)).Scan(
		&sess.ID,
		&sess.Claims,
		&sess.CreatedAt,
		&sess.LastSeenAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, unavailable("load", err)
	}
	return sess, nil
}

func (s *PostgresStore) Update(ctx context.Context, id string, claims domain.Claims) error {
	if !ValidID(id) {
		return domain.ErrSessionNotFound
	}

	query := `
		UPDATE sessions
		SET claims = $2, user_id = $3, last_seen_at = $4
		WHERE id = $1 AND last_seen_at > $5
	`
	now := s.now().UTC()

	tag, err := s.db.Exec(ctx, query, id, claims, claims.ID, now, s.cutoff(now))
	if err != nil {
		return unavailable("update", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *PostgresStore) Destroy(ctx context.Context, id string) error {
	if !ValidID(id) {
		return nil
	}

	query := `DELETE FROM sessions WHERE id = $1`
	if _, err := s.db.Exec(ctx, query, id); err != nil {
		return unavailable("destroy", err)
	}
	return nil
}

// DeleteExpired removes idle-expired sessions and returns how many were removed
func (s *PostgresStore) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM sessions WHERE last_seen_at <= $1`

	tag, err := s.db.Exec(ctx, query, s.cutoff(s.now().UTC()))
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// cutoff is the oldest last_seen_at that is still live
func (s *PostgresStore) cutoff(now time.Time) time.Time {
	if s.idleTimeout <= 0 {
		return time.Time{}
	}
	return now.Add(-s.idleTimeout)
}
