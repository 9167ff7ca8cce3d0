package ports

import (
	"context"

	"github.com/storerating/rating-api/internal/core/domain"
	"github.com/storerating/rating-api/internal/core/policy"
)

// CreateStoreInput carries a new store. OwnerID nil means the caller.
type CreateStoreInput struct {
	Name    string
	Email   string
	Address string
	OwnerID *int64
}

// UpdateStoreInput is a partial update; nil fields are left unchanged.
type UpdateStoreInput struct {
	Name    *string
	Email   *string
	Address *string
}

// StoreListItem is a store with its owner summary, used in list views.
type StoreListItem struct {
	*domain.Store
	Owner *domain.UserSummary `json:"owner"`
}

// StoreDetail is a store with its owner and every rating.
type StoreDetail struct {
	*domain.Store
	Owner   *domain.UserSummary `json:"owner"`
	Ratings []*domain.Rating    `json:"ratings"`
}

type StoreService interface {
	List(ctx context.Context, filter ListStoresFilter) ([]*StoreListItem, error)
	Get(ctx context.Context, id int64) (*StoreDetail, error)
	Create(ctx context.Context, p policy.Principal, input CreateStoreInput) (*domain.Store, error)
	Update(ctx context.Context, p policy.Principal, id int64, input UpdateStoreInput) (*domain.Store, error)
	Delete(ctx context.Context, p policy.Principal, id int64) error
	OwnerStores(ctx context.Context, p policy.Principal) ([]*StoreDetail, error)
}
