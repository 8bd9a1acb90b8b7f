// Package cache stores closed-day summaries in redis.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/go-redis/redis/v8"
)

const (
	keyPrefix  = "attendance:daily:v2:"
	DefaultTTL = 24 * time.Hour
)

type summaryCacheImpl struct {
	client    *redis.Client
	ttl       time.Duration
	namespace string
}

// NewSummaryCache returns a redis-backed attendance.SummaryCache. namespace
// should change whenever the aggregation rules change so stale summaries are
// never served.
func NewSummaryCache(client *redis.Client, ttl time.Duration, namespace string) attendance.SummaryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &summaryCacheImpl{client: client, ttl: ttl, namespace: namespace}
}

// Namespace derives a cache namespace from the aggregation rules.
func Namespace(rules attendance.Rules) string {
	loc := "UTC"
	if rules.Location != nil {
		loc = rules.Location.String()
	}
	return fmt.Sprintf("%d:%d:%s", rules.CompleteDayMinutes, rules.StandardDayMinutes, loc)
}

func (c *summaryCacheImpl) key(userID, date string) string {
	return keyPrefix + c.namespace + ":" + userID + ":" + date
}

// GetDaily implements attendance.SummaryCache.
func (c *summaryCacheImpl) GetDaily(ctx context.Context, userID string, date string) (attendance.CachedDay, bool, error) {
	val, err := c.client.Get(ctx, c.key(userID, date)).Result()
	if err != nil {
		if err == redis.Nil {
			return attendance.CachedDay{}, false, nil
		}
		return attendance.CachedDay{}, false, fmt.Errorf("failed to read cached summary: %w", err)
	}

	var cached attendance.CachedDay
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		return attendance.CachedDay{}, false, fmt.Errorf("failed to decode cached summary: %w", err)
	}
	return cached, true, nil
}

// SetDaily implements attendance.SummaryCache.
func (c *summaryCacheImpl) SetDaily(ctx context.Context, cached attendance.CachedDay) error {
	data, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	if err := c.client.Set(ctx, c.key(cached.Summary.UserID, cached.Summary.Date), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache summary: %w", err)
	}
	return nil
}

// InvalidateDaily implements attendance.SummaryCache.
func (c *summaryCacheImpl) InvalidateDaily(ctx context.Context, userID string, date string) error {
	if err := c.client.Del(ctx, c.key(userID, date)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cached summary: %w", err)
	}
	return nil
}
