package domain

import (
	"time"
)

// Role represents a panel user role
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleReseller Role = "reseller"
	RoleClient   Role = "client"
)

// Valid reports whether the role belongs to the closed set of known roles
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleReseller, RoleClient:
		return true
	}
	return false
}

// AccountStatus represents the lifecycle state of an account
type AccountStatus string

const (
	AccountActive    AccountStatus = "active"
	AccountTrial     AccountStatus = "trial"
	AccountSuspended AccountStatus = "suspended"
)

// Valid reports whether the status is a known lifecycle tag
func (s AccountStatus) Valid() bool {
	switch s {
	case AccountActive, AccountTrial, AccountSuspended:
		return true
	}
	return false
}

// User represents a panel account (admin, reseller or client)
type User struct {
	ID            string        `json:"id"`
	Email         string        `json:"email"`
	PasswordHash  string        `json:"-"` // Never serialize password
	Name          string        `json:"name"`
	Role          Role          `json:"role"`
	AccountStatus AccountStatus `json:"account_status"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Claims converts the user into the claim set carried by tokens and sessions
func (u *User) Claims() Claims {
	return Claims{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
		Role:  u.Role,
	}
}
