package ports

import (
	"context"

	"github.com/storerating/rating-api/internal/core/domain"
	"github.com/storerating/rating-api/internal/core/policy"
)

// CreateUserInput carries an admin-created account.
type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Address  string
	Role     domain.Role // empty = user
}

// UpdateUserInput is a partial update; nil fields are left unchanged.
type UpdateUserInput struct {
	Name     *string
	Email    *string
	Password *string
	Address  *string
	Role     *domain.Role
	StoreID  *int64
}

// AdminSeed describes the bootstrap administrator account.
type AdminSeed struct {
	Name     string
	Email    string
	Password string
	Address  string
}

// UserService defines the admin user-management use cases.
type UserService interface {
	List(ctx context.Context, p policy.Principal, filter ListUsersFilter) ([]*domain.User, error)
	Get(ctx context.Context, p policy.Principal, id int64) (*domain.User, error)
	Create(ctx context.Context, p policy.Principal, input CreateUserInput) (*domain.User, error)
	Update(ctx context.Context, p policy.Principal, id int64, input UpdateUserInput) (*domain.User, error)
	Delete(ctx context.Context, p policy.Principal, id int64) error
	DashboardStats(ctx context.Context, p policy.Principal) (*domain.DashboardStats, error)
	// EnsureAdmin creates the seed account when no administrator exists.
	// created reports whether an account was inserted.
	EnsureAdmin(ctx context.Context, seed AdminSeed) (created bool, err error)
}
