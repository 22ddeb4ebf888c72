package di

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/Keviin77777/Gestor-php-sub003/internal/domain"
)

// NewRouter creates a bare engine that resolves client IPs only through
// trustedProxies. With none, X-Forwarded-For and X-Real-IP are ignored and
// the socket peer is the client.
func NewRouter(trustedProxies []string) (*gin.Engine, error) {
	router := gin.New()
	if err := router.SetTrustedProxies(trustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	return router, nil
}

// RegisterRoutes mounts the health, auth and resource endpoints on router
func (c *Container) RegisterRoutes(router *gin.Engine) {
	// Health check endpoints
	router.GET("/health", c.HealthHandler.Health)
	router.GET("/ready", c.HealthHandler.Ready)

	// API routes
	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			// Public endpoints
			login := []gin.HandlerFunc{c.AuthHandler.Login}
			if c.LoginLimiter != nil {
				login = append([]gin.HandlerFunc{c.LoginLimiter.Middleware()}, login...)
			}
			auth.POST("/login", login...)
			auth.POST("/logout", c.AuthHandler.Logout)

			// Protected endpoints (require authentication)
			protected := auth.Group("")
			protected.Use(c.Authorizer.RequireAuth())
			{
				protected.POST("/refresh", c.AuthHandler.Refresh)
				protected.GET("/me", c.AuthHandler.Me)
			}
		}

		// Cross-tenant listing (admin only)
		admin := v1.Group("/admin")
		admin.Use(c.Authorizer.RequireAuth())
		admin.Use(c.Authorizer.RequireRole(domain.RoleAdmin))
		{
			admin.GET("/resellers/:id/:kind", c.ResourceHandler.ListForReseller)
		}

		// Tenant-owned resources
		resources := v1.Group("")
		resources.Use(c.Authorizer.RequireAuth())
		{
			resources.GET("/:kind", c.ResourceHandler.List)
			resources.GET("/:kind/:id", c.ResourceHandler.Get)
			resources.DELETE("/:kind/:id", c.ResourceHandler.Delete)
		}
	}
}
