package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"github.com/Keviin77777/Gestor-php-sub003/internal/audit"
	"github.com/Keviin77777/Gestor-php-sub003/internal/domain"
	"github.com/Keviin77777/Gestor-php-sub003/internal/dto"
	"github.com/Keviin77777/Gestor-php-sub003/internal/metrics"
	"github.com/Keviin77777/Gestor-php-sub003/internal/repository"
	"github.com/Keviin77777/Gestor-php-sub003/internal/session"
	"github.com/Keviin77777/Gestor-php-sub003/pkg/telemetry"
)

// Login outcome label values
const (
	LoginSuccess            = "success"
	LoginInvalidCredentials = "invalid_credentials"
	LoginInactive           = "inactive"
	LoginError              = "error"
)

// TokenIssuer issues bearer tokens. *token.Codec satisfies it.
type TokenIssuer interface {
	Issue(claims domain.Claims, ttl time.Duration) (string, domain.Claims, error)
}

// AuthServiceConfig holds configuration for AuthService
type AuthServiceConfig struct {
	TokenTTL   time.Duration
	BcryptCost int
}

// LoginResult carries the response body and the session to set as cookie
type LoginResult struct {
	Response  *dto.AuthResponse
	SessionID string
}

// AuthService defines the interface for authentication operations
type AuthService interface {
	// Login checks credentials, issues a token and opens a session
	Login(ctx context.Context, req *dto.LoginRequest, ip string) (*LoginResult, error)
	// Logout destroys the session; an empty or unknown id is not an error
	Logout(ctx context.Context, p *domain.Principal, sessionID, ip string) error
	// Refresh re-issues a token for p and refreshes its session claims
	Refresh(ctx context.Context, p domain.Principal) (*dto.AuthResponse, error)
	// Me describes p
	Me(ctx context.Context, p domain.Principal) *dto.MeResponse
}

// authService implements AuthService
type authService struct {
	users     repository.UserRepository
	sessions  session.Store
	tokens    TokenIssuer
	audit     audit.Publisher
	metrics   *metrics.Metrics
	config    *AuthServiceConfig
	dummyHash []byte
}

// NewAuthService creates a new AuthService
func NewAuthService(
	users repository.UserRepository,
	sessions session.Store,
	tokens TokenIssuer,
	publisher audit.Publisher,
	m *metrics.Metrics,
	config *AuthServiceConfig,
) (AuthService, error) {
	if config == nil {
		config = &AuthServiceConfig{}
	}
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	if config.TokenTTL == 0 {
		config.TokenTTL = 24 * time.Hour
	}
	if publisher == nil {
		publisher = audit.Nop{}
	}

	// unknown emails are checked against dummyHash
	dummyHash, err := bcrypt.GenerateFromPassword([]byte("unknown-account-placeholder"), config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare password hasher: %w", err)
	}

	return &authService{
		users:     users,
		sessions:  sessions,
		tokens:    tokens,
		audit:     publisher,
		metrics:   m,
		config:    config,
		dummyHash: dummyHash,
	}, nil
}

// Login authenticates a user
func (s *authService) Login(ctx context.Context, req *dto.LoginRequest, ip string) (*LoginResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.login")
	defer span.End()

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			telemetry.SetSpanError(span, err)
			s.metrics.ObserveLogin(LoginError)
			return nil, err
		}
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(req.Password))
		return nil, s.loginFailed(ctx, span, ip)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, s.loginFailed(ctx, span, ip)
	}

	if user.AccountStatus == domain.AccountSuspended {
		span.SetStatus(codes.Error, "user inactive")
		s.metrics.ObserveLogin(LoginInactive)
		s.audit.Publish(ctx, audit.Event{Type: audit.EventLoginFailed, PrincipalID: user.ID, Role: string(user.Role), IP: ip, At: time.Now().UTC()})
		return nil, domain.ErrUserInactive
	}
	if !user.Role.Valid() {
		err := fmt.Errorf("user %s has unknown role", user.ID)
		telemetry.SetSpanError(span, err)
		s.metrics.ObserveLogin(LoginError)
		return nil, err
	}

	accessToken, claims, err := s.tokens.Issue(user.Claims(), s.config.TokenTTL)
	if err != nil {
		telemetry.SetSpanError(span, err)
		s.metrics.ObserveLogin(LoginError)
		return nil, err
	}

	sessionID, err := s.sessions.Create(ctx, claims)
	if err != nil {
		telemetry.SetSpanError(span, err)
		s.metrics.ObserveLogin(LoginError)
		return nil, err
	}

	span.SetAttributes(attribute.String("user_id", user.ID))
	span.SetStatus(codes.Ok, "")
	s.metrics.ObserveLogin(LoginSuccess)
	s.audit.Publish(ctx, audit.Event{
		Type:        audit.EventLoginSucceeded,
		PrincipalID: user.ID,
		Role:        string(user.Role),
		IP:          ip,
		At:          time.Now().UTC(),
	})

	return &LoginResult{
		Response: &dto.AuthResponse{
			AccessToken: accessToken,
			TokenType:   "Bearer",
			ExpiresIn:   claims.ExpiresAt - claims.IssuedAt,
			User:        dto.UserFromDomain(user),
		},
		SessionID: sessionID,
	}, nil
}

func (s *authService) loginFailed(ctx context.Context, span trace.Span, ip string) error {
	span.SetStatus(codes.Error, "invalid credentials")
	s.metrics.ObserveLogin(LoginInvalidCredentials)
	s.audit.Publish(ctx, audit.Event{Type: audit.EventLoginFailed, IP: ip, At: time.Now().UTC()})
	return domain.ErrInvalidCredentials
}

// Logout logs out a session
func (s *authService) Logout(ctx context.Context, p *domain.Principal, sessionID, ip string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.logout")
	defer span.End()

	if sessionID != "" {
		if err := s.sessions.Destroy(ctx, sessionID); err != nil {
			telemetry.SetSpanError(span, err)
			return err
		}
	}

	event := audit.Event{Type: audit.EventLogout, IP: ip, At: time.Now().UTC()}
	if p != nil {
		event = audit.NewEvent(audit.EventLogout, *p, ip)
	}
	s.audit.Publish(ctx, event)
	return nil
}

// Refresh re-issues a token with fresh timestamps
func (s *authService) Refresh(ctx context.Context, p domain.Principal) (*dto.AuthResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.refresh")
	defer span.End()

	accessToken, claims, err := s.tokens.Issue(p.Claims(), s.config.TokenTTL)
	if err != nil {
		telemetry.SetSpanError(span, err)
		return nil, err
	}

	if p.Method == domain.AuthMethodSession && p.SessionID != "" {
		if err := s.sessions.Update(ctx, p.SessionID, claims); err != nil {
			telemetry.SetSpanError(span, err)
			if errors.Is(err, domain.ErrSessionNotFound) {
				return nil, domain.ErrUnauthorized
			}
			return nil, err
		}
	}

	s.audit.Publish(ctx, audit.NewEvent(audit.EventRefresh, p, ""))

	me := s.Me(ctx, p)
	return &dto.AuthResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   claims.ExpiresAt - claims.IssuedAt,
		User:        &me.UserResponse,
	}, nil
}

// Me returns the principal view
func (s *authService) Me(ctx context.Context, p domain.Principal) *dto.MeResponse {
	return dto.MeFromPrincipal(p)
}
