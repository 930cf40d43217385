package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"backoffice-service/models"
	awspkg "backoffice-service/pkg/aws"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	CategoryListPrefix = "categories:v:"
	CategoryVersionKey = "categories:version"

	DefaultTTL = 10 * time.Minute
)

// Store is the subset of the go-redis client the cache needs.
type Store interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// CategoryCache stores category listings in Redis under a version number.
// Writes bump the version instead of deleting keys, so stale lists simply
// stop being addressed and expire on their TTL. Every method fails open.
//
// A listing is written under the version observed before the database read,
// never the version current at write time, so a list loaded before an
// invalidation cannot land under the newer version.
type CategoryCache struct {
	redis   Store
	ttl     time.Duration
	logger  *zap.Logger
	metrics Counter
}

// Counter receives hit/miss counts.
type Counter interface {
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
}

func NewCategoryCache(client Store, ttl time.Duration, logger *zap.Logger) *CategoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CategoryCache{redis: client, ttl: ttl, logger: logger}
}

// WithMetrics reports hits and misses to m.
func (c *CategoryCache) WithMetrics(m Counter) *CategoryCache {
	c.metrics = m
	return c
}

// GetList returns the cached listing stored under key for the current
// version, together with that version. On a miss the caller passes the
// version back to SetList. Version 0 means Redis could not be read.
func (c *CategoryCache) GetList(ctx context.Context, key string) ([]models.Category, int64, bool) {
	version, err := c.version(ctx)
	if err != nil {
		c.count(ctx, awspkg.MetricCacheMisses)
		return nil, 0, false
	}
	categories, ok := c.getList(ctx, version, key)
	if ok {
		c.count(ctx, awspkg.MetricCacheHits)
	} else {
		c.count(ctx, awspkg.MetricCacheMisses)
	}
	return categories, version, ok
}

func (c *CategoryCache) getList(ctx context.Context, version int64, key string) ([]models.Category, bool) {
	data, err := c.redis.Get(ctx, listKey(version, key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Debug("Category cache read failed", zap.Error(err))
		}
		return nil, false
	}

	var categories []models.Category
	if err := json.Unmarshal(data, &categories); err != nil {
		c.logger.Warn("Failed to unmarshal cached categories", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return categories, true
}

// SetList caches categories under version in the background so the request
// never waits on Redis.
func (c *CategoryCache) SetList(_ context.Context, version int64, key string, categories []models.Category) {
	if version <= 0 {
		return
	}
	payload, err := json.Marshal(categories)
	if err != nil {
		c.logger.Warn("Failed to marshal categories for cache", zap.Error(err))
		return
	}

	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := c.redis.Set(bgCtx, listKey(version, key), payload, c.ttl).Err(); err != nil {
			c.logger.Warn("Failed to cache category list", zap.String("key", key), zap.Error(err))
		}
	}()
}

// Invalidate bumps the version, orphaning every cached listing.
func (c *CategoryCache) Invalidate(ctx context.Context) {
	v, err := c.redis.Incr(ctx, CategoryVersionKey).Result()
	if err != nil {
		c.logger.Error("Failed to invalidate category cache", zap.Error(err))
		return
	}
	c.logger.Debug("Category cache invalidated", zap.Int64("version", v))
}

func (c *CategoryCache) version(ctx context.Context) (int64, error) {
	v, err := c.redis.Get(ctx, CategoryVersionKey).Int64()
	if err == nil && v > 0 {
		return v, nil
	}
	if errors.Is(err, redis.Nil) {
		// SETNX so a concurrent Invalidate is never overwritten.
		if err := c.redis.SetNX(ctx, CategoryVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.redis.Get(ctx, CategoryVersionKey).Int64()
	}
	if err == nil {
		err = fmt.Errorf("invalid category cache version %d", v)
	}
	return 0, err
}

func (c *CategoryCache) count(ctx context.Context, metric string) {
	if c.metrics == nil {
		return
	}
	_ = c.metrics.RecordCount(ctx, metric, map[string]string{"Cache": "categories"})
}

func listKey(version int64, key string) string {
	return fmt.Sprintf("%s%d:%s", CategoryListPrefix, version, key)
}
