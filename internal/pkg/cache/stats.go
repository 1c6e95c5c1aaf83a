package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// StatsCache stores payroll statistics snapshots in Redis. Each company has a
// version counter; bumping it orphans every snapshot keyed by the old version.
type StatsCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStatsCache(rdb *redis.Client, ttl time.Duration) *StatsCache {
	return &StatsCache{rdb: rdb, ttl: ttl}
}

func VersionKey(companyID string) string {
	return "payroll:stats:version:" + companyID
}

// StatsKey builds the snapshot key for a company at a version.
func StatsKey(companyID string, version int64, parts ...string) string {
	key := fmt.Sprintf("payroll:stats:%s:v%d", companyID, version)
	if len(parts) > 0 {
		key += ":" + strings.Join(parts, ":")
	}
	return key
}

// Get decodes the snapshot at key into dst. A miss returns false and no error.
func (c *StatsCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (c *StatsCache) Set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := c.rdb.Set(ctx, key, string(data), c.ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Version returns the company's current version; an unset counter is 0.
func (c *StatsCache) Version(ctx context.Context, companyID string) (int64, error) {
	v, err := c.rdb.Get(ctx, VersionKey(companyID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get stats version: %w", err)
	}
	return v, nil
}

func (c *StatsCache) Bump(ctx context.Context, companyID string) error {
	if err := c.rdb.Incr(ctx, VersionKey(companyID)).Err(); err != nil {
		return fmt.Errorf("bump stats version: %w", err)
	}
	return nil
}
