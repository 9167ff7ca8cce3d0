package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/storerating/rating-api/internal/core/domain"
	"github.com/storerating/rating-api/internal/core/ports"
)

// NopStatsCache is used when no cache backend is configured.
type NopStatsCache struct{}

func (NopStatsCache) Get(context.Context) (*domain.DashboardStats, int64, bool, error) {
	return nil, 0, false, nil
}

func (NopStatsCache) Set(context.Context, *domain.DashboardStats, int64) error { return nil }

func (NopStatsCache) Invalidate(context.Context) error { return nil }

// invalidateStats drops the cached dashboard. Failures only make the cache
// stale until its TTL, so they are logged and swallowed.
func invalidateStats(ctx context.Context, cache ports.StatsCache, log zerolog.Logger) {
	if err := cache.Invalidate(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to invalidate dashboard stats cache")
	}
}
