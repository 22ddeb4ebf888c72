package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/Keviin77777/Gestor-php-sub003/pkg/response"
	"github.com/Keviin77777/Gestor-php-sub003/pkg/telemetry"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	// Rate limit per second per IP (0 = unlimited)
	RequestsPerSecond float64
	// Burst size (token bucket capacity)
	BurstSize int
	// Cleanup interval for idle entries
	CleanupInterval time.Duration
	// Entry TTL after the last request
	EntryTTL time.Duration
	// OnReject is called for every rejected request
	OnReject func(c *gin.Context)
}

// DefaultRateLimitConfig returns defaults suited to credential endpoints
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 1,
		BurstSize:         10,
		CleanupInterval:   time.Minute,
		EntryTTL:          10 * time.Minute,
	}
}

type rateLimitEntry struct {
	limiter  *rate.Limiter
	mu       sync.Mutex
	lastSeen time.Time
}

// LocalRateLimiter keeps one token bucket per key in process memory
type LocalRateLimiter struct {
	config   RateLimitConfig
	entries  sync.Map
	stop     chan struct{}
	stopOnce sync.Once
}

// NewLocalRateLimiter creates a limiter and starts its cleanup goroutine
func NewLocalRateLimiter(config RateLimitConfig) *LocalRateLimiter {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = time.Minute
	}
	if config.EntryTTL <= 0 {
		config.EntryTTL = 10 * time.Minute
	}
	if config.BurstSize <= 0 {
		config.BurstSize = 1
	}

	rl := &LocalRateLimiter{
		config: config,
		stop:   make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// Allow reports whether a request for key may proceed now
func (rl *LocalRateLimiter) Allow(key string) bool {
	return rl.AllowAt(key, time.Now())
}

// AllowAt is Allow with an explicit clock
func (rl *LocalRateLimiter) AllowAt(key string, now time.Time) bool {
	if rl.config.RequestsPerSecond <= 0 {
		return true
	}

	v, _ := rl.entries.LoadOrStore(key, &rateLimitEntry{
		limiter: rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.BurstSize),
	})
	e := v.(*rateLimitEntry)

	e.mu.Lock()
	e.lastSeen = now
	e.mu.Unlock()

	return e.limiter.AllowN(now, 1)
}

func (rl *LocalRateLimiter) cleanup() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			rl.evict(now.Add(-rl.config.EntryTTL))
		case <-rl.stop:
			return
		}
	}
}

func (rl *LocalRateLimiter) evict(cutoff time.Time) {
	rl.entries.Range(func(key, value any) bool {
		e := value.(*rateLimitEntry)
		e.mu.Lock()
		if e.lastSeen.Before(cutoff) {
			rl.entries.Delete(key)
		}
		e.mu.Unlock()
		return true
	})
}

// Stop stops the cleanup goroutine
func (rl *LocalRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// Middleware limits requests per client IP
func (rl *LocalRateLimiter) Middleware() gin.HandlerFunc {
	retryAfter := 1
	if rl.config.RequestsPerSecond > 0 {
		retryAfter = int(math.Max(1, math.Ceil(1/rl.config.RequestsPerSecond)))
	}

	return func(c *gin.Context) {
		ctx, span := telemetry.StartSpan(c.Request.Context(), "middleware.rate_limiter")
		defer span.End()
		c.Request = c.Request.WithContext(ctx)

		allowed := rl.Allow(c.ClientIP())
		span.SetAttributes(attribute.Bool("allowed", allowed))

		c.Header("X-RateLimit-Limit", strconv.FormatFloat(rl.config.RequestsPerSecond, 'f', -1, 64))
		c.Header("X-RateLimit-Burst", strconv.Itoa(rl.config.BurstSize))

		if !allowed {
			span.SetStatus(codes.Error, "rate limit exceeded")
			if rl.config.OnReject != nil {
				rl.config.OnReject(c)
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			response.TooManyRequests(c)
			return
		}

		c.Next()
	}
}

// RateLimiter creates a rate limiting middleware. The limiter's cleanup
// goroutine lives as long as the process.
func RateLimiter(config RateLimitConfig) gin.HandlerFunc {
	return NewLocalRateLimiter(config).Middleware()
}
