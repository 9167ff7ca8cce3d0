package ports

import (
	"context"

	"github.com/storerating/rating-api/internal/core/domain"
)

// StatsCache stores the admin dashboard summary between mutations.
//
// Every Invalidate starts a new generation. Get reports the generation it read
// and Set drops stats computed under an older one, so a summary built before a
// concurrent mutation is never cached after that mutation's Invalidate.
type StatsCache interface {
	// Get returns the cached stats; ok is false on a miss.
	Get(ctx context.Context) (stats *domain.DashboardStats, gen int64, ok bool, err error)
	// Set stores stats computed during generation gen.
	Set(ctx context.Context, stats *domain.DashboardStats, gen int64) error
	Invalidate(ctx context.Context) error
}
