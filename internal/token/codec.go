// Package token issues and verifies compact HMAC-SHA256 signed claim tokens
// (base64url(header).base64url(payload).base64url(signature)).
//
// Verification never consults the token header to pick an algorithm: every
// token is checked with HS256 and the codec's own secret.
package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Keviin77777/Gestor-php-sub003/internal/domain"
)

// ErrEmptySecret is returned when a codec is built without a signing secret
var ErrEmptySecret = errors.New("token signing secret is empty")

// Codec signs and verifies claim tokens with a single process-wide secret
type Codec struct {
	secret []byte
	method *jwt.SigningMethodHMAC
	parser *jwt.Parser
	now    func() time.Time
}

// Option configures a Codec
type Option func(*Codec)

// WithClock overrides the time source used for iat/exp and expiry checks
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		c.now = now
	}
}

// NewCodec creates a Codec. The secret is copied and never exposed again.
func NewCodec(secret []byte, opts ...Option) (*Codec, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	c := &Codec{
		secret: append([]byte(nil), secret...),
		method: jwt.SigningMethodHS256,
		parser: jwt.NewParser(jwt.WithStrictDecoding()),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Issue stamps iat/exp on the claims and returns the signed token string
// together with the stamped claims.
func (c *Codec) Issue(claims domain.Claims, ttl time.Duration) (string, domain.Claims, error) {
	now := c.now().Unix()
	claims.IssuedAt = now
	claims.ExpiresAt = now + int64(ttl/time.Second)

	tok := jwt.NewWithClaims(c.method, jwt.MapClaims{
		"id":    claims.ID,
		"email": claims.Email,
		"name":  claims.Name,
		"role":  string(claims.Role),
		"iat":   claims.IssuedAt,
		"exp":   claims.ExpiresAt,
	})

	signed, err := tok.SignedString(c.secret)
	if err != nil {
		return "", domain.Claims{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// Verify checks structure, signature and expiry, in that order, and only
// then decodes the payload into claims.
//
// Errors: domain.ErrMalformedToken, domain.ErrInvalidSignature, domain.ErrExpired.
func (c *Codec) Verify(tokenString string) (domain.Claims, error) {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return domain.Claims{}, domain.ErrMalformedToken
	}
	for _, part := range parts {
		if part == "" {
			return domain.Claims{}, domain.ErrMalformedToken
		}
	}

	header, err := c.parser.DecodeSegment(parts[0])
	if err != nil || !json.Valid(header) {
		return domain.Claims{}, domain.ErrMalformedToken
	}
	payload, err := c.parser.DecodeSegment(parts[1])
	if err != nil {
		return domain.Claims{}, domain.ErrMalformedToken
	}

	sig, err := c.parser.DecodeSegment(parts[2])
	if err != nil {
		return domain.Claims{}, domain.ErrInvalidSignature
	}
	if err := c.method.Verify(parts[0]+"."+parts[1], sig, c.secret); err != nil {
		return domain.Claims{}, domain.ErrInvalidSignature
	}

	var claims domain.Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return domain.Claims{}, domain.ErrMalformedToken
	}

	// exp == now is already expired
	if claims.ExpiresAt <= c.now().Unix() {
		return domain.Claims{}, domain.ErrExpired
	}

	return claims, nil
}
