package dto

import (
	"strings"

	"github.com/Keviin77777/Gestor-php-sub003/internal/domain"
)

// LoginRequest represents login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,max=72"`
}

// Normalize trims the email
func (r *LoginRequest) Normalize() {
	r.Email = strings.TrimSpace(r.Email)
}

// AuthResponse represents the login and refresh response
type AuthResponse struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	ExpiresIn   int64         `json:"expires_in"`
	User        *UserResponse `json:"user"`
}

// UserResponse represents the public view of a user
type UserResponse struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	Role          string `json:"role"`
	AccountStatus string `json:"account_status,omitempty"`
}

// MeResponse describes the authenticated caller
type MeResponse struct {
	UserResponse
	AuthMethod string `json:"auth_method"`
}

// UserFromDomain converts a domain user
func UserFromDomain(u *domain.User) *UserResponse {
	return &UserResponse{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		Role:          string(u.Role),
		AccountStatus: string(u.AccountStatus),
	}
}

// MeFromPrincipal converts a principal
func MeFromPrincipal(p domain.Principal) *MeResponse {
	return &MeResponse{
		UserResponse: UserResponse{
			ID:            p.ID,
			Email:         p.Email,
			Name:          p.Name,
			Role:          string(p.Role),
			AccountStatus: string(p.AccountStatus),
		},
		AuthMethod: string(p.Method),
	}
}
