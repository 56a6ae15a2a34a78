package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/redis/go-redis/v9"

	"github.com/vietddude/aggregator/internal/core/domain"
)

// Redis is the shared cache tier. Freshness is decided by the stored fetch
// timestamp, not by Redis expiry: the Redis TTL is a coarse retention bound
// that keeps stale entries readable long after their logical TTL.
type Redis struct {
	rdb       *redis.Client
	retention time.Duration
	clock     clock.Clock
}

// NewRedis creates a Redis-backed store keeping entries for retention.
func NewRedis(rdb *redis.Client, retention time.Duration, clk clock.Clock) *Redis {
	if clk == nil {
		clk = clock.New()
	}
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	return &Redis{rdb: rdb, retention: retention, clock: clk}
}

func redisKey(category domain.Category, key string) string {
	return fmt.Sprintf("aggcache:%s:%s", category, key)
}

func (r *Redis) load(ctx context.Context, category domain.Category, key string) (*Entry, error) {
	raw, err := r.rdb.Get(ctx, redisKey(category, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("decode cache entry: %w", err)
	}
	return &e, nil
}

// Get returns the entry only while fresh.
func (r *Redis) Get(ctx context.Context, category domain.Category, key string) (*Entry, error) {
	e, err := r.load(ctx, category, key)
	if err != nil || e == nil {
		return nil, err
	}
	if !e.FreshAt(r.clock.Now()) {
		return nil, nil
	}
	return e, nil
}

// GetStale returns the entry regardless of TTL, as long as retention holds it.
func (r *Redis) GetStale(ctx context.Context, category domain.Category, key string) (*Entry, error) {
	return r.load(ctx, category, key)
}

// Set stores an entry under the retention bound.
func (r *Redis) Set(ctx context.Context, category domain.Category, key string, entry *Entry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := r.rdb.Set(ctx, redisKey(category, key), raw, r.retention).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
