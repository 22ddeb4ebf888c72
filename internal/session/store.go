// Package session holds the server-side session stores behind the cookie
// authentication path. Every backend honors the same contract:
//
//   - Create returns a fresh, never reused, high-entropy id.
//   - Load returns domain.ErrSessionNotFound for unknown, destroyed or idle-expired ids.
//   - Update is last-writer-wins and returns domain.ErrSessionNotFound if the id is gone.
//   - Destroy is idempotent.
//   - Backend failures and deadline overruns wrap domain.ErrStoreUnavailable.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/Keviin77777/Gestor-php-sub003/internal/domain"
)

// Store is the session store contract shared by the Redis, Postgres and memory backends
type Store interface {
	Create(ctx context.Context, claims domain.Claims) (string, error)
	Load(ctx context.Context, id string) (*domain.Session, error)
	Update(ctx context.Context, id string, claims domain.Claims) error
	Destroy(ctx context.Context, id string) error
}

// idBytes is the entropy of a session id. Encoded length is 43 characters.
const idBytes = 32

var encodedIDLen = base64.RawURLEncoding.EncodedLen(idBytes)

// maxCreateAttempts bounds id collision retries
const maxCreateAttempts = 3

var errIDCollision = errors.New("session id collision")

// NewID returns a random base64url session id
func NewID() (string, error) {
	b := make([]byte, idBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// ValidID reports whether id has the shape NewID produces.
// Ids failing this check are never sent to a backend.
func ValidID(id string) bool {
	if len(id) != encodedIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}

// unavailable classifies a backend failure
func unavailable(op string, err error) error {
	return fmt.Errorf("session %s: %w: %w", op, domain.ErrStoreUnavailable, err)
}
