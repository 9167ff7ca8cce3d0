package service

import (
	"context"
	"fmt"

	"github.com/storerating/rating-api/internal/core/domain"
	"github.com/storerating/rating-api/internal/core/ports"
)

// recomputeAggregate rereads every rating of storeID and writes the resulting
// average and count back onto the store. Callers must hold the store lock
// (StoreRepository.FindByIDForUpdate) inside the same transaction.
func recomputeAggregate(ctx context.Context, stores ports.StoreRepository, ratings ports.RatingRepository, storeID int64) (domain.Aggregate, error) {
	totals, err := ratings.TotalsByStore(ctx, storeID)
	if err != nil {
		return domain.Aggregate{}, fmt.Errorf("recompute aggregate: %w", err)
	}

	agg := totals.Aggregate()
	if err := stores.UpdateAggregate(ctx, storeID, agg); err != nil {
		return domain.Aggregate{}, fmt.Errorf("recompute aggregate: %w", err)
	}
	return agg, nil
}
