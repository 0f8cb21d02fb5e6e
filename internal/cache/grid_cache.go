// Package cache provides the optional Redis-backed read cache for
// resolved availability grids. The service runs unchanged without it;
// a nil cache never hits Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"waschplan/internal/models"
	"waschplan/internal/schedule"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// GridCache caches resolved grids per date. Mutating commands
// invalidate the affected dates synchronously before they return, so a
// follow-up read never serves the pre-write grid.
type GridCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zerolog.Logger
}

// NewGridCache connects to Redis and verifies the connection.
func NewGridCache(ctx context.Context, addr, password string, db int, ttl time.Duration, logger *zerolog.Logger) (*GridCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	logger.Info().Str("addr", addr).Dur("ttl", ttl).Msg("Grid cache connected")
	return &GridCache{client: client, ttl: ttl, logger: logger}, nil
}

func gridKey(date time.Time) string {
	return "grid:" + models.FormatDate(date)
}

// Get returns the cached grid for date, or nil on a miss. Cache
// errors degrade to a miss.
func (c *GridCache) Get(ctx context.Context, date time.Time) *schedule.Grid {
	if c == nil {
		return nil
	}
	data, err := c.client.Get(ctx, gridKey(date)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		c.logger.Warn().Err(err).Msg("Grid cache read failed")
		return nil
	}
	var grid schedule.Grid
	if err := json.Unmarshal(data, &grid); err != nil {
		c.logger.Warn().Err(err).Msg("Grid cache entry corrupt; dropping")
		c.client.Del(ctx, gridKey(date))
		return nil
	}
	return &grid
}

// Put stores the resolved grid under its date.
func (c *GridCache) Put(ctx context.Context, grid *schedule.Grid) {
	if c == nil || grid == nil {
		return
	}
	data, err := json.Marshal(grid)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Grid cache marshal failed")
		return
	}
	if err := c.client.Set(ctx, gridKey(grid.Date), data, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("Grid cache write failed")
	}
}

// InvalidateGrid drops the cached grids for the given dates.
func (c *GridCache) InvalidateGrid(ctx context.Context, dates ...time.Time) {
	if c == nil || len(dates) == 0 {
		return
	}
	keys := make([]string, 0, len(dates))
	seen := make(map[string]bool, len(dates))
	for _, d := range dates {
		k := gridKey(d)
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn().Err(err).Strs("keys", keys).Msg("Grid cache invalidation failed")
	}
}

// Ping reports cache health for the health endpoint.
func (c *GridCache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// Close releases the Redis connection.
func (c *GridCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
