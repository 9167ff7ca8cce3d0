package ports

import (
	"context"

	"github.com/storerating/rating-api/internal/core/domain"
)

// RatingRepository defines persistence operations for ratings.
type RatingRepository interface {
	// Upsert inserts r or, when the (user, store) pair already has a rating,
	// overwrites its score and comment. r is filled with the stored row.
	// created reports whether a new row was inserted.
	Upsert(ctx context.Context, r *domain.Rating) (created bool, err error)
	FindByID(ctx context.Context, id int64) (*domain.Rating, error)
	FindByUserAndStore(ctx context.Context, userID, storeID int64) (*domain.Rating, error)
	// ListByStore returns the store's ratings newest first with UserName set.
	ListByStore(ctx context.Context, storeID int64) ([]*domain.Rating, error)
	// TotalsByStore returns the count and sum of the store's ratings.
	TotalsByStore(ctx context.Context, storeID int64) (domain.Totals, error)
	// Totals returns the count and sum over all ratings.
	Totals(ctx context.Context) (domain.Totals, error)
	// StoreIDsByUser returns the distinct stores userID has rated.
	StoreIDsByUser(ctx context.Context, userID int64) ([]int64, error)
	Delete(ctx context.Context, id int64) error
	DeleteByStore(ctx context.Context, storeID int64) error
	DeleteByUser(ctx context.Context, userID int64) error
}
