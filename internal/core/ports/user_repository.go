package ports

import (
	"context"

	"github.com/storerating/rating-api/internal/core/domain"
)

// ListUsersFilter carries optional partial-match filters for the admin user list.
type ListUsersFilter struct {
	Name    string
	Email   string
	Address string
	Role    domain.Role // empty = any
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	// Create inserts u and fills in its ID and timestamps.
	// Returns domain.ErrEmailTaken on a unique violation.
	Create(ctx context.Context, u *domain.User) error
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, filter ListUsersFilter) ([]*domain.User, error)
	// Update writes name, email, address, role and store_id.
	Update(ctx context.Context, u *domain.User) error
	UpdatePassword(ctx context.Context, id int64, hash string) error
	Delete(ctx context.Context, id int64) error
	ExistsWithRole(ctx context.Context, role domain.Role) (bool, error)
	// ResetStoreOwners reverts every user referencing storeID to role=user
	// with no store, returning the number of users changed.
	ResetStoreOwners(ctx context.Context, storeID int64) (int64, error)
	CountByRole(ctx context.Context) (map[domain.Role]int64, error)
}
