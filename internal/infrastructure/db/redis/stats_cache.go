package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/storerating/rating-api/internal/core/domain"
	"github.com/storerating/rating-api/internal/core/ports"
)

const (
	statsKey        = "storerating:dashboard_stats"
	statsGenKey     = "storerating:dashboard_stats:gen"
	defaultStatsTTL = time.Minute
)

// setIfCurrent writes KEYS[1] only while KEYS[2] still holds the generation
// the caller read.
var setIfCurrent = redis.NewScript(`
local gen = redis.call('GET', KEYS[2]) or '0'
if gen ~= ARGV[2] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

// StatsCache stores the admin dashboard summary as a single JSON value next to
// a generation counter bumped on every invalidation.
type StatsCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

var _ ports.StatsCache = (*StatsCache)(nil)

// NewStatsCache wraps client. A non-positive ttl falls back to one minute.
func NewStatsCache(client redis.Cmdable, ttl time.Duration) *StatsCache {
	if ttl <= 0 {
		ttl = defaultStatsTTL
	}
	return &StatsCache{client: client, ttl: ttl}
}

// Get reports ok=false on a miss. The generation is read first so a miss can be
// filled with Set.
func (c *StatsCache) Get(ctx context.Context) (*domain.DashboardStats, int64, bool, error) {
	gen, err := c.client.Get(ctx, statsGenKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, false, fmt.Errorf("stats cache generation: %w", err)
	}

	raw, err := c.client.Get(ctx, statsKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, gen, false, nil
		}
		return nil, gen, false, fmt.Errorf("stats cache get: %w", err)
	}

	var stats domain.DashboardStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, gen, false, fmt.Errorf("stats cache decode: %w", err)
	}
	return &stats, gen, true, nil
}

// Set is a no-op when the cache was invalidated after gen was read.
func (c *StatsCache) Set(ctx context.Context, stats *domain.DashboardStats, gen int64) error {
	raw, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("stats cache encode: %w", err)
	}
	err = setIfCurrent.Run(ctx, c.client, []string{statsKey, statsGenKey}, string(raw), gen, c.ttl.Milliseconds()).Err()
	if err != nil {
		return fmt.Errorf("stats cache set: %w", err)
	}
	return nil
}

func (c *StatsCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, statsGenKey).Err(); err != nil {
		return fmt.Errorf("stats cache invalidate: %w", err)
	}
	if err := c.client.Del(ctx, statsKey).Err(); err != nil {
		return fmt.Errorf("stats cache invalidate: %w", err)
	}
	return nil
}
