package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"landtrust/internal/verification/models"
)

const redisReportKeyPrefix = "landtrust:report:"

// RedisCache persists trust reports in Redis with TTL-based eviction.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache constructs a Redis-backed report cache.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Find loads a cached report by descriptor fingerprint.
//
// Errors: returns ErrNotFound on cache miss; wraps Redis or JSON decode errors.
func (c *RedisCache) Find(ctx context.Context, key string) (*models.TrustReport, error) {
	data, err := c.client.Get(ctx, reportKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find report cache: %w", err)
	}

	var report models.TrustReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decode report cache: %w", err)
	}
	return &report, nil
}

// Save writes a report with TTL eviction, overwriting any existing entry.
// A non-positive TTL disables caching; Redis would treat it as no expiry.
func (c *RedisCache) Save(ctx context.Context, key string, report *models.TrustReport) error {
	if report == nil {
		return fmt.Errorf("report is required")
	}
	if c.ttl <= 0 {
		return nil
	}
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report cache: %w", err)
	}
	if err := c.client.Set(ctx, reportKey(key), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("save report cache: %w", err)
	}
	return nil
}

func reportKey(key string) string {
	return redisReportKeyPrefix + key
}
