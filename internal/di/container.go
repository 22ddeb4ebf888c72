package di

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Keviin77777/Gestor-php-sub003/internal/audit"
	"github.com/Keviin77777/Gestor-php-sub003/internal/handler"
	"github.com/Keviin77777/Gestor-php-sub003/internal/identity"
	"github.com/Keviin77777/Gestor-php-sub003/internal/metrics"
	"github.com/Keviin77777/Gestor-php-sub003/internal/middleware"
	"github.com/Keviin77777/Gestor-php-sub003/internal/repository"
	"github.com/Keviin77777/Gestor-php-sub003/internal/scope"
	"github.com/Keviin77777/Gestor-php-sub003/internal/service"
	"github.com/Keviin77777/Gestor-php-sub003/internal/session"
	"github.com/Keviin77777/Gestor-php-sub003/internal/token"
	"github.com/Keviin77777/Gestor-php-sub003/pkg/config"
	"github.com/Keviin77777/Gestor-php-sub003/pkg/database"
	"github.com/Keviin77777/Gestor-php-sub003/pkg/logger"
	pkgmiddleware "github.com/Keviin77777/Gestor-php-sub003/pkg/middleware"
	pkgredis "github.com/Keviin77777/Gestor-php-sub003/pkg/redis"
)

// Container holds all dependencies for the auth service
type Container struct {
	// Infrastructure
	DB    *database.PostgresDB
	Redis *pkgredis.Client

	// Repositories
	UserRepo     repository.UserRepository
	ResourceRepo repository.ResourceRepository
	Sessions     session.Store

	// Auth core
	Codec      *token.Codec
	Resolver   *identity.Resolver
	Guard      *scope.Guard
	Authorizer *middleware.Authorizer
	Audit      audit.Publisher
	Metrics    *metrics.Metrics

	// Services
	AuthService service.AuthService

	// Handlers
	HealthHandler   *handler.HealthHandler
	AuthHandler     *handler.AuthHandler
	ResourceHandler *handler.ResourceHandler

	// LoginLimiter is nil when login rate limiting is disabled
	LoginLimiter *pkgmiddleware.LocalRateLimiter
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	ServiceName string
	Auth        *config.AuthConfig

	// DB and Redis are optional; they back the readiness check
	DB    *database.PostgresDB
	Redis *pkgredis.Client

	UserRepo     repository.UserRepository
	ResourceRepo repository.ResourceRepository
	Sessions     session.Store

	Audit      audit.Publisher
	Metrics    *metrics.Metrics
	Logger     *logger.Logger
	BcryptCost int

	// Clock overrides the token clock in tests
	Clock func() time.Time
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) (*Container, error) {
	if cfg == nil || cfg.Auth == nil {
		return nil, errors.New("di: auth config is required")
	}
	if cfg.UserRepo == nil || cfg.ResourceRepo == nil || cfg.Sessions == nil {
		return nil, errors.New("di: repositories and session store are required")
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}
	publisher := cfg.Audit
	if publisher == nil {
		publisher = audit.NewLogPublisher(log)
	}

	c := &Container{
		DB:           cfg.DB,
		Redis:        cfg.Redis,
		UserRepo:     cfg.UserRepo,
		ResourceRepo: cfg.ResourceRepo,
		Sessions:     cfg.Sessions,
		Audit:        publisher,
		Metrics:      cfg.Metrics,
	}

	// Initialize auth core
	var opts []token.Option
	if cfg.Clock != nil {
		opts = append(opts, token.WithClock(cfg.Clock))
	}
	codec, err := token.NewCodec([]byte(cfg.Auth.TokenSecret), opts...)
	if err != nil {
		return nil, err
	}
	c.Codec = codec

	c.Resolver = identity.NewResolver(
		identity.NewBearerStrategy(codec),
		identity.NewSessionStrategy(c.Sessions, cfg.Auth.CookieName),
		identity.WithAccountLookup(c.UserRepo),
		identity.WithLookupTimeout(cfg.Auth.StoreTimeout),
		identity.WithMetrics(c.Metrics),
		identity.WithLogger(log.Named("identity")),
	)
	c.Guard = scope.NewGuard(c.Metrics)
	c.Authorizer = middleware.NewAuthorizer(c.Resolver, c.Guard, c.Audit, log.Named("authz"))

	// Initialize services
	c.AuthService, err = service.NewAuthService(
		c.UserRepo,
		c.Sessions,
		codec,
		c.Audit,
		c.Metrics,
		&service.AuthServiceConfig{
			TokenTTL:   cfg.Auth.TokenTTL,
			BcryptCost: cfg.BcryptCost,
		},
	)
	if err != nil {
		return nil, err
	}

	// Initialize handlers
	checks := make(map[string]handler.Checker)
	if c.DB != nil {
		checks["database"] = c.DB
	}
	if c.Redis != nil {
		checks["redis"] = c.Redis
	}
	c.HealthHandler = handler.NewHealthHandler(cfg.ServiceName, checks, log)
	c.AuthHandler = handler.NewAuthHandler(c.AuthService, handler.CookieConfig{
		Name:     cfg.Auth.CookieName,
		Domain:   cfg.Auth.CookieDomain,
		Path:     cfg.Auth.CookiePath,
		Secure:   cfg.Auth.CookieSecure,
		SameSite: cfg.Auth.SameSite(),
		MaxAge:   cfg.Auth.CookieMaxAge(),
	}, log)
	c.ResourceHandler = handler.NewResourceHandler(c.ResourceRepo, c.Guard, c.Authorizer, log)

	if cfg.Auth.LoginRateLimit > 0 {
		limitCfg := pkgmiddleware.DefaultRateLimitConfig()
		limitCfg.RequestsPerSecond = cfg.Auth.LoginRateLimit
		if cfg.Auth.LoginBurst > 0 {
			limitCfg.BurstSize = cfg.Auth.LoginBurst
		}
		limitCfg.OnReject = func(gc *gin.Context) {
			c.Metrics.ObserveRateLimited(gc.FullPath())
		}
		c.LoginLimiter = pkgmiddleware.NewLocalRateLimiter(limitCfg)
	}

	return c, nil
}

// Close releases background resources owned by the container
func (c *Container) Close() {
	if c.LoginLimiter != nil {
		c.LoginLimiter.Stop()
	}
}
