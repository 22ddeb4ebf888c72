package repository

import (
	"context"

	"github.com/Keviin77777/Gestor-php-sub003/internal/domain"
	"github.com/Keviin77777/Gestor-php-sub003/internal/scope"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// GetByID retrieves a user by ID, or domain.ErrUserNotFound
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetByEmail retrieves a user by email, or domain.ErrUserNotFound
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// AccountStatus returns the lifecycle status of a user, or domain.ErrUserNotFound
	AccountStatus(ctx context.Context, id string) (domain.AccountStatus, error)
}

// ResourceRepository defines tenant-owned row access. Every read takes the
// caller's scope.Predicate and applies it in the query itself.
type ResourceRepository interface {
	// List returns rows of kind visible under pred, newest first
	List(ctx context.Context, kind domain.ResourceKind, pred scope.Predicate, limit, offset int) ([]*domain.Resource, error)
	// GetByID returns one row of kind visible under pred, or domain.ErrResourceNotFound
	GetByID(ctx context.Context, kind domain.ResourceKind, id string, pred scope.Predicate) (*domain.Resource, error)
	// OwnerOf returns the owner of a row regardless of scope, or domain.ErrResourceNotFound.
	// Callers must pass the result through scope.Guard.AuthorizeMutation.
	OwnerOf(ctx context.Context, kind domain.ResourceKind, id string) (string, error)
	// Delete removes a row only if pred admits it, or returns domain.ErrResourceNotFound
	Delete(ctx context.Context, kind domain.ResourceKind, id string, pred scope.Predicate) error
}

// Paging bounds
const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// ClampPage normalizes limit and offset
func ClampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
