package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Keviin77777/Gestor-php-sub003/internal/domain"
	"github.com/Keviin77777/Gestor-php-sub003/internal/dto"
	"github.com/Keviin77777/Gestor-php-sub003/internal/middleware"
	"github.com/Keviin77777/Gestor-php-sub003/internal/service"
	"github.com/Keviin77777/Gestor-php-sub003/pkg/logger"
	"github.com/Keviin77777/Gestor-php-sub003/pkg/response"
)

// CookieConfig describes the session cookie
type CookieConfig struct {
	Name     string
	Domain   string
	Path     string
	Secure   bool
	SameSite http.SameSite
	MaxAge   int
}

// AuthHandler handles authentication HTTP requests
type AuthHandler struct {
	authService service.AuthService
	cookie      CookieConfig
	log         *logger.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService service.AuthService, cookie CookieConfig, log *logger.Logger) *AuthHandler {
	if cookie.Path == "" {
		cookie.Path = "/"
	}
	if log == nil {
		log = logger.Get()
	}
	return &AuthHandler{authService: authService, cookie: cookie, log: log}
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(h.cookie.SameSite)
	c.SetCookie(h.cookie.Name, value, maxAge, h.cookie.Path, h.cookie.Domain, h.cookie.Secure, true)
}

// Login handles user login
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Email and password are required")
		return
	}
	req.Normalize()

	result, err := h.authService.Login(c.Request.Context(), &req, c.ClientIP())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			response.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
		case errors.Is(err, domain.ErrUserInactive):
			response.Error(c, http.StatusForbidden, "USER_INACTIVE", "User account is inactive")
		case errors.Is(err, domain.ErrStoreUnavailable):
			h.log.Error("Login failed: session store unavailable", zap.Error(err))
			response.ServiceUnavailable(c)
		default:
			h.log.Error("Login failed", zap.Error(err))
			response.InternalError(c)
		}
		return
	}

	h.setSessionCookie(c, result.SessionID, h.cookie.MaxAge)
	response.Success(c, result.Response)
}

// Logout destroys the cookie session and clears the cookie. It always answers 200.
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	sessionID, _ := c.Cookie(h.cookie.Name)

	var principal *domain.Principal
	if p, ok := middleware.GetPrincipal(c); ok {
		principal = &p
	}

	if err := h.authService.Logout(c.Request.Context(), principal, sessionID, c.ClientIP()); err != nil {
		h.log.Warn("Logout could not destroy session", zap.Error(err))
	}

	h.setSessionCookie(c, "", -1)
	response.Success(c, gin.H{"message": "Logged out successfully"})
}

// Refresh re-issues the caller's token
// POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		response.Unauthorized(c)
		return
	}

	result, err := h.authService.Refresh(c.Request.Context(), p)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnauthorized):
			response.Unauthorized(c)
		case errors.Is(err, domain.ErrStoreUnavailable):
			response.ServiceUnavailable(c)
		default:
			h.log.Error("Refresh failed", zap.Error(err))
			response.InternalError(c)
		}
		return
	}

	response.Success(c, result)
}

// Me returns the authenticated caller
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		response.Unauthorized(c)
		return
	}
	response.Success(c, h.authService.Me(c.Request.Context(), p))
}
