package ports

import (
	"context"

	"github.com/storerating/rating-api/internal/core/domain"
	"github.com/storerating/rating-api/internal/core/policy"
)

// SubmitRatingInput carries a rating submission for the calling user.
type SubmitRatingInput struct {
	StoreID int64
	Rating  int
	Comment *string
}

// SubmitRatingResult is the stored rating plus the store's new aggregate.
type SubmitRatingResult struct {
	Rating    *domain.Rating
	Aggregate domain.Aggregate
	Created   bool
}

type RatingService interface {
	Submit(ctx context.Context, p policy.Principal, input SubmitRatingInput) (*SubmitRatingResult, error)
	Delete(ctx context.Context, p policy.Principal, ratingID int64) error
	StoreRatings(ctx context.Context, storeID int64) ([]*domain.Rating, error)
	UserRatingForStore(ctx context.Context, p policy.Principal, storeID int64) (*domain.Rating, error)
}
