package ports

import (
	"context"

	"github.com/storerating/rating-api/internal/core/domain"
)

// ListStoresFilter carries the public store search parameters.
type ListStoresFilter struct {
	Name      string   // partial, case-insensitive
	Address   string   // partial, case-insensitive
	MinRating *float64 // average_rating >= MinRating
}

// StoreRepository defines persistence operations for stores.
type StoreRepository interface {
	// Create inserts s with a zero aggregate and fills in ID and timestamps.
	// Returns domain.ErrStoreEmailTaken on a unique violation.
	Create(ctx context.Context, s *domain.Store) error
	FindByID(ctx context.Context, id int64) (*domain.Store, error)
	// FindByIDForUpdate reads the store and locks it until the surrounding
	// transaction ends.
	FindByIDForUpdate(ctx context.Context, id int64) (*domain.Store, error)
	FindByEmail(ctx context.Context, email string) (*domain.Store, error)
	// List returns stores matching filter sorted by average_rating desc, id asc.
	List(ctx context.Context, filter ListStoresFilter) ([]*domain.Store, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]*domain.Store, error)
	// Update writes name, email, address and owner_id.
	Update(ctx context.Context, s *domain.Store) error
	UpdateAggregate(ctx context.Context, id int64, agg domain.Aggregate) error
	// ClearOwner detaches every store owned by ownerID.
	ClearOwner(ctx context.Context, ownerID int64) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
}
