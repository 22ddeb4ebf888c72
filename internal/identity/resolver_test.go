package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Keviin77777/Gestor-php-sub003/internal/domain"
	"github.com/Keviin77777/Gestor-php-sub003/internal/metrics"
	"github.com/Keviin77777/Gestor-php-sub003/internal/session"
	"github.com/Keviin77777/Gestor-php-sub003/internal/token"
)

const cookieName = "panel_session"

var testSecret = []byte("resolver-test-secret-32-bytes-long!!")

type fixture struct {
	codec    *token.Codec
	store    *session.MemoryStore
	resolver *Resolver
	metrics  *metrics.Metrics
	now      time.Time
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{now: time.Unix(1_700_000_000, 0)}

	codec, err := token.NewCodec(testSecret, token.WithClock(func() time.Time { return f.now }))
	require.NoError(t, err)
	f.codec = codec
	f.store = session.NewMemoryStore(time.Hour)
	f.metrics = metrics.New(prometheus.NewRegistry())

	opts = append([]Option{WithMetrics(f.metrics)}, opts...)
	f.resolver = NewResolver(NewBearerStrategy(codec), NewSessionStrategy(f.store, cookieName), opts...)
	return f
}

func kevin() domain.Claims {
	return domain.Claims{ID: "kevin-id", Email: "kevin@example.com", Name: "Kevin", Role: domain.RoleReseller}
}

func (f *fixture) bearer(t *testing.T, claims domain.Claims) string {
	t.Helper()
	tok, _, err := f.codec.Issue(claims, 600*time.Second)
	require.NoError(t, err)
	return tok
}

func (f *fixture) cookie(t *testing.T, claims domain.Claims) string {
	t.Helper()
	id, err := f.store.Create(context.Background(), claims)
	require.NoError(t, err)
	return id
}

func request(authorization, cookie string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/clients", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: cookieName, Value: cookie})
	}
	return req
}

func resolutions(t *testing.T, m *metrics.Metrics, method, outcome string) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, m.ResolutionsTotal.WithLabelValues(method, outcome).Write(&out))
	return out.GetCounter().GetValue()
}

func TestResolve_Bearer(t *testing.T) {
	f := newFixture(t)

	p, err := f.resolver.Resolve(context.Background(), request("Bearer "+f.bearer(t, kevin()), ""))
	require.NoError(t, err)

	assert.Equal(t, "kevin-id", p.ID)
	assert.Equal(t, domain.RoleReseller, p.Role)
	assert.Equal(t, domain.AccountActive, p.AccountStatus)
	assert.Equal(t, domain.AuthMethodBearer, p.Method)
	assert.Empty(t, p.SessionID)
	assert.Equal(t, 1.0, resolutions(t, f.metrics, "bearer", metrics.OutcomeSuccess))
}

func TestResolve_BearerSchemeIsCaseInsensitive(t *testing.T) {
	f := newFixture(t)

	p, err := f.resolver.Resolve(context.Background(), request("bearer "+f.bearer(t, kevin()), ""))
	require.NoError(t, err)
	assert.Equal(t, "kevin-id", p.ID)
}

func TestResolve_Session(t *testing.T) {
	f := newFixture(t)
	id := f.cookie(t, kevin())

	p, err := f.resolver.Resolve(context.Background(), request("", id))
	require.NoError(t, err)

	assert.Equal(t, "kevin-id", p.ID)
	assert.Equal(t, domain.AuthMethodSession, p.Method)
	assert.Equal(t, id, p.SessionID)
}

func TestResolve_BothPathsProduceSamePrincipalShape(t *testing.T) {
	f := newFixture(t)

	viaBearer, err := f.resolver.Resolve(context.Background(), request("Bearer "+f.bearer(t, kevin()), ""))
	require.NoError(t, err)
	viaCookie, err := f.resolver.Resolve(context.Background(), request("", f.cookie(t, kevin())))
	require.NoError(t, err)

	assert.Equal(t, viaBearer.Claims(), viaCookie.Claims())
	assert.Equal(t, viaBearer.AccountStatus, viaCookie.AccountStatus)
}

func TestResolve_InvalidBearerDoesNotFallBackToCookie(t *testing.T) {
	f := newFixture(t)
	validCookie := f.cookie(t, kevin())

	forger, err := token.NewCodec([]byte("some-other-secret-of-similar-size!!"))
	require.NoError(t, err)
	forged, _, err := forger.Issue(kevin(), time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"wrong secret", "Bearer " + forged},
		{"garbage", "Bearer not-a-token"},
		{"empty token", "Bearer "},
		{"scheme only", "Bearer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.resolver.Resolve(context.Background(), request(tt.header, validCookie))
			assert.True(t, errors.Is(err, domain.ErrUnauthorized))
			assert.Equal(t, domain.ErrUnauthorized, err)
		})
	}
}

func TestResolve_ExpiredBearer(t *testing.T) {
	f := newFixture(t)
	tok := f.bearer(t, kevin())

	f.now = f.now.Add(600 * time.Second)
	_, err := f.resolver.Resolve(context.Background(), request("Bearer "+tok, ""))
	assert.Equal(t, domain.ErrUnauthorized, err)
}

func TestResolve_OtherSchemeFallsThroughToCookie(t *testing.T) {
	f := newFixture(t)
	id := f.cookie(t, kevin())

	p, err := f.resolver.Resolve(context.Background(), request("Basic a2V2aW46c2VjcmV0", id))
	require.NoError(t, err)
	assert.Equal(t, domain.AuthMethodSession, p.Method)
}

func TestResolve_UnknownOrDestroyedSession(t *testing.T) {
	f := newFixture(t)
	id := f.cookie(t, kevin())
	require.NoError(t, f.store.Destroy(context.Background(), id))

	for _, value := range []string{id, "unknown", "../../etc/passwd"} {
		_, err := f.resolver.Resolve(context.Background(), request("", value))
		assert.Equal(t, domain.ErrUnauthorized, err, value)
	}
}

func TestResolve_NoCredentials(t *testing.T) {
	f := newFixture(t)

	_, err := f.resolver.Resolve(context.Background(), request("", ""))
	assert.Equal(t, domain.ErrUnauthorized, err)
	assert.Equal(t, 1.0, resolutions(t, f.metrics, "none", metrics.OutcomeUnauthorized))
}

func TestResolve_RejectsUnknownRole(t *testing.T) {
	f := newFixture(t)
	claims := kevin()
	claims.Role = "superuser"

	_, err := f.resolver.Resolve(context.Background(), request("Bearer "+f.bearer(t, claims), ""))
	assert.Equal(t, domain.ErrUnauthorized, err)
}

type downStore struct{}

func (downStore) Create(ctx context.Context, claims domain.Claims) (string, error) {
	return "", fmt.Errorf("session create: %w", domain.ErrStoreUnavailable)
}

func (downStore) Load(ctx context.Context, id string) (*domain.Session, error) {
	return nil, fmt.Errorf("session load: %w: %w", domain.ErrStoreUnavailable, context.DeadlineExceeded)
}

func (downStore) Update(ctx context.Context, id string, claims domain.Claims) error {
	return fmt.Errorf("session update: %w", domain.ErrStoreUnavailable)
}

func (downStore) Destroy(ctx context.Context, id string) error {
	return fmt.Errorf("session destroy: %w", domain.ErrStoreUnavailable)
}

func TestResolve_StoreUnavailable(t *testing.T) {
	f := newFixture(t)
	m := metrics.New(prometheus.NewRegistry())
	r := NewResolver(NewBearerStrategy(f.codec), NewSessionStrategy(downStore{}, cookieName), WithMetrics(m))

	_, err := r.Resolve(context.Background(), request("", "some-session-id"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.NotErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, 1.0, resolutions(t, m, "session", metrics.OutcomeUnavailable))

	// bearer path never touches the store
	p, err := r.Resolve(context.Background(), request("Bearer "+f.bearer(t, kevin()), "some-session-id"))
	require.NoError(t, err)
	assert.Equal(t, "kevin-id", p.ID)
}

type accountsMap map[string]domain.AccountStatus

func (a accountsMap) AccountStatus(ctx context.Context, userID string) (domain.AccountStatus, error) {
	status, ok := a[userID]
	if !ok {
		return "", domain.ErrUserNotFound
	}
	return status, nil
}

type brokenAccounts struct{}

func (brokenAccounts) AccountStatus(ctx context.Context, userID string) (domain.AccountStatus, error) {
	return "", errors.New("connection reset by peer")
}

func TestResolve_AccountLookup(t *testing.T) {
	accounts := accountsMap{"kevin-id": domain.AccountSuspended}
	f := newFixture(t, WithAccountLookup(accounts))

	p, err := f.resolver.Resolve(context.Background(), request("Bearer "+f.bearer(t, kevin()), ""))
	require.NoError(t, err)
	assert.Equal(t, domain.AccountSuspended, p.AccountStatus)
	assert.True(t, p.IsSuspended())

	deleted := kevin()
	deleted.ID = "deleted-id"
	_, err = f.resolver.Resolve(context.Background(), request("", f.cookie(t, deleted)))
	assert.Equal(t, domain.ErrUnauthorized, err)
}

func TestResolve_AccountLookupFailureIsUnavailable(t *testing.T) {
	f := newFixture(t, WithAccountLookup(brokenAccounts{}))

	_, err := f.resolver.Resolve(context.Background(), request("Bearer "+f.bearer(t, kevin()), ""))
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

type hangingAccounts struct{}

func (hangingAccounts) AccountStatus(ctx context.Context, userID string) (domain.AccountStatus, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(3 * time.Second):
		return domain.AccountActive, nil
	}
}

func TestResolve_AccountLookupIsBounded(t *testing.T) {
	f := newFixture(t, WithAccountLookup(hangingAccounts{}), WithLookupTimeout(20*time.Millisecond))

	start := time.Now()
	_, err := f.resolver.Resolve(context.Background(), request("Bearer "+f.bearer(t, kevin()), ""))
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, elapsed, time.Second)
	assert.Equal(t, 1.0, resolutions(t, f.metrics, "bearer", metrics.OutcomeUnavailable))
}

func TestResolve_UnrecognizedAccountStatusIsSuspended(t *testing.T) {
	for _, status := range []domain.AccountStatus{"", "banned", "ACTIVE"} {
		accounts := accountsMap{"kevin-id": status}
		f := newFixture(t, WithAccountLookup(accounts))

		p, err := f.resolver.Resolve(context.Background(), request("Bearer "+f.bearer(t, kevin()), ""))
		require.NoError(t, err, string(status))
		assert.Equal(t, domain.AccountSuspended, p.AccountStatus, string(status))
		assert.True(t, p.IsSuspended(), string(status))
	}
}

func TestResolve_RecognizedAccountStatusIsKept(t *testing.T) {
	accounts := accountsMap{"kevin-id": domain.AccountTrial}
	f := newFixture(t, WithAccountLookup(accounts))

	p, err := f.resolver.Resolve(context.Background(), request("", f.cookie(t, kevin())))
	require.NoError(t, err)
	assert.Equal(t, domain.AccountTrial, p.AccountStatus)
	assert.False(t, p.IsSuspended())
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header  string
		token   string
		present bool
	}{
		{"", "", false},
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"BEARER abc", "abc", true},
		{"  Bearer   abc  ", "abc", true},
		{"Bearer", "", true},
		{"Basic dXNlcjpwYXNz", "", false},
		{"Bearerabc", "", false},
	}

	for _, tt := range tests {
		tok, present := BearerToken(tt.header)
		assert.Equal(t, tt.token, tok, tt.header)
		assert.Equal(t, tt.present, present, tt.header)
	}
}

func TestResolve_ConcurrentPrincipalsDoNotMix(t *testing.T) {
	f := newFixture(t)

	const n = 32
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		claims := kevin()
		claims.ID = fmt.Sprintf("reseller-%d", i)
		id := f.cookie(t, claims)
		tok := f.bearer(t, claims)

		go func(want, tok, id string, useCookie bool) {
			req := request("Bearer "+tok, "")
			if useCookie {
				req = request("", id)
			}
			p, err := f.resolver.Resolve(context.Background(), req)
			if err == nil && p.ID != want {
				err = fmt.Errorf("got %q want %q", p.ID, want)
			}
			errs <- err
		}(claims.ID, tok, id, i%2 == 0)
	}

	for i := 0; i < n; i++ {
		assert.NoError(t, <-errs)
	}
}
