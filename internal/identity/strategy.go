package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Keviin77777/Gestor-php-sub003/internal/domain"
	"github.com/Keviin77777/Gestor-php-sub003/internal/session"
)

// Strategy extracts and validates one kind of credential.
//
// Return values:
//   - (principal, nil): credential present and valid
//   - (nil, nil): no credential of this kind on the request
//   - (nil, error): credential present but rejected
type Strategy interface {
	Method() domain.AuthMethod
	Authenticate(ctx context.Context, req *http.Request) (*domain.Principal, error)
}

// TokenVerifier verifies bearer tokens. *token.Codec satisfies it.
type TokenVerifier interface {
	Verify(tokenString string) (domain.Claims, error)
}

// BearerStrategy authenticates "Authorization: Bearer <token>" headers
type BearerStrategy struct {
	verifier TokenVerifier
}

// NewBearerStrategy creates a BearerStrategy
func NewBearerStrategy(verifier TokenVerifier) *BearerStrategy {
	return &BearerStrategy{verifier: verifier}
}

func (s *BearerStrategy) Method() domain.AuthMethod {
	return domain.AuthMethodBearer
}

// Authenticate abstains when there is no Authorization header or it uses
// another scheme. A Bearer header is always decided here.
func (s *BearerStrategy) Authenticate(ctx context.Context, req *http.Request) (*domain.Principal, error) {
	tokenString, present := BearerToken(req.Header.Get("Authorization"))
	if !present {
		return nil, nil
	}
	if tokenString == "" {
		return nil, fmt.Errorf("%w: empty bearer token", domain.ErrUnauthorized)
	}

	claims, err := s.verifier.Verify(tokenString)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}

	return principalFromClaims(claims, domain.AuthMethodBearer, "")
}

// BearerToken splits an Authorization header value. present is true when the
// scheme is Bearer (case-insensitive), even if the token part is empty.
func BearerToken(header string) (tokenString string, present bool) {
	scheme, rest, _ := strings.Cut(strings.TrimSpace(header), " ")
	if !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

// SessionStrategy authenticates the session cookie against a session.Store
type SessionStrategy struct {
	store      session.Store
	cookieName string
}

// NewSessionStrategy creates a SessionStrategy reading cookieName
func NewSessionStrategy(store session.Store, cookieName string) *SessionStrategy {
	return &SessionStrategy{store: store, cookieName: cookieName}
}

func (s *SessionStrategy) Method() domain.AuthMethod {
	return domain.AuthMethodSession
}

// Authenticate abstains when the cookie is absent or empty. Store outages
// surface as domain.ErrStoreUnavailable, everything else as domain.ErrUnauthorized.
func (s *SessionStrategy) Authenticate(ctx context.Context, req *http.Request) (*domain.Principal, error) {
	cookie, err := req.Cookie(s.cookieName)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}

	sess, err := s.store.Load(ctx, cookie.Value)
	if err != nil {
		if errors.Is(err, domain.ErrStoreUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}

	return principalFromClaims(sess.Claims, domain.AuthMethodSession, sess.ID)
}

// principalFromClaims builds the Principal both strategies return
func principalFromClaims(claims domain.Claims, method domain.AuthMethod, sessionID string) (*domain.Principal, error) {
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: claims without subject", domain.ErrUnauthorized)
	}
	if !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role", domain.ErrUnauthorized)
	}

	return &domain.Principal{
		ID:            claims.ID,
		Email:         claims.Email,
		Name:          claims.Name,
		Role:          claims.Role,
		AccountStatus: domain.AccountActive,
		Method:        method,
		SessionID:     sessionID,
	}, nil
}
