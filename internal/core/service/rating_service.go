package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/storerating/rating-api/internal/core/domain"
	"github.com/storerating/rating-api/internal/core/policy"
	"github.com/storerating/rating-api/internal/core/ports"
)

// RatingService owns every write to ratings and keeps each store's
// average_rating and total_ratings in step with them.
type RatingService struct {
	tx      ports.TxManager
	stores  ports.StoreRepository
	ratings ports.RatingRepository
	cache   ports.StatsCache
	log     zerolog.Logger
}

func NewRatingService(
	tx ports.TxManager,
	stores ports.StoreRepository,
	ratings ports.RatingRepository,
	cache ports.StatsCache,
	log zerolog.Logger,
) *RatingService {
	if cache == nil {
		cache = NopStatsCache{}
	}
	return &RatingService{tx: tx, stores: stores, ratings: ratings, cache: cache, log: log}
}

// Submit records the caller's rating for a store, replacing any earlier one,
// and recomputes the store aggregate in the same transaction.
func (s *RatingService) Submit(ctx context.Context, p policy.Principal, in ports.SubmitRatingInput) (*ports.SubmitRatingResult, error) {
	if err := policy.Authorize(p, policy.SubmitRating, policy.Resource{}); err != nil {
		return nil, err
	}

	comment := in.Comment
	if comment != nil {
		trimmed := strings.TrimSpace(*comment)
		if trimmed == "" {
			comment = nil
		} else {
			comment = &trimmed
		}
	}
	if err := domain.ValidateRating(in.Rating, comment); err != nil {
		return nil, err
	}

	result := &ports.SubmitRatingResult{}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		// The lock serializes concurrent submissions for one store so their
		// recomputations cannot interleave.
		if _, err := s.stores.FindByIDForUpdate(ctx, in.StoreID); err != nil {
			return err
		}

		rating := &domain.Rating{
			UserID:  p.UserID,
			StoreID: in.StoreID,
			Rating:  in.Rating,
			Comment: comment,
		}
		created, err := s.ratings.Upsert(ctx, rating)
		if err != nil {
			return err
		}

		agg, err := recomputeAggregate(ctx, s.stores, s.ratings, in.StoreID)
		if err != nil {
			return err
		}

		result.Rating = rating
		result.Aggregate = agg
		result.Created = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	invalidateStats(ctx, s.cache, s.log)

	s.log.Info().
		Int64("store_id", in.StoreID).
		Int64("user_id", p.UserID).
		Int("rating", in.Rating).
		Bool("created", result.Created).
		Float64("average", result.Aggregate.Average).
		Msg("rating submitted")

	return result, nil
}

// Delete removes a rating and recomputes its store's aggregate.
func (s *RatingService) Delete(ctx context.Context, p policy.Principal, ratingID int64) error {
	if err := policy.Authorize(p, policy.DeleteRating, policy.Resource{}); err != nil {
		return err
	}

	var storeID int64
	var agg domain.Aggregate
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		rating, err := s.ratings.FindByID(ctx, ratingID)
		if err != nil {
			return err
		}
		storeID = rating.StoreID

		if _, err := s.stores.FindByIDForUpdate(ctx, storeID); err != nil {
			return err
		}
		if err := s.ratings.Delete(ctx, ratingID); err != nil {
			return err
		}

		agg, err = recomputeAggregate(ctx, s.stores, s.ratings, storeID)
		return err
	})
	if err != nil {
		return err
	}
	invalidateStats(ctx, s.cache, s.log)

	s.log.Info().
		Int64("rating_id", ratingID).
		Int64("store_id", storeID).
		Int64("remaining", agg.Total).
		Int64("by", p.UserID).
		Msg("rating deleted")

	return nil
}

func (s *RatingService) StoreRatings(ctx context.Context, storeID int64) ([]*domain.Rating, error) {
	if _, err := s.stores.FindByID(ctx, storeID); err != nil {
		return nil, err
	}
	return s.ratings.ListByStore(ctx, storeID)
}

func (s *RatingService) UserRatingForStore(ctx context.Context, p policy.Principal, storeID int64) (*domain.Rating, error) {
	if err := policy.Authorize(p, policy.ReadStores, policy.Resource{}); err != nil {
		return nil, err
	}
	return s.ratings.FindByUserAndStore(ctx, p.UserID, storeID)
}
