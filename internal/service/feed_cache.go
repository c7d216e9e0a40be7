package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/shaderhub/shaderhub-api/pkg/errors"
)

const (
	feedKeyPrefix  = "feed:"
	feedInitialKey = feedKeyPrefix + "initial"
)

// FeedCacheStore is the key/value backend behind FeedCache.
type FeedCacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// FeedCache holds rendered pages of the unfiltered public feed. Every entry lives
// under the feed: prefix so publishing or deleting an object purges them together.
// A miss or a backend failure sends the caller to Postgres.
type FeedCache struct {
	store   FeedCacheStore
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
}

// NewFeedCache constructs a FeedCache. A nil store disables caching.
func NewFeedCache(store FeedCacheStore, metrics *MetricsService, ttl time.Duration, logger *zap.Logger) *FeedCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedCache{store: store, metrics: metrics, ttl: ttl, logger: logger}
}

// Enabled reports whether pages are cached at all.
func (c *FeedCache) Enabled() bool {
	return c != nil && c.store != nil
}

// pageKey identifies one page of the infinite feed by the request that produced it.
func pageKey(direction string, limit int, cursor string) string {
	return fmt.Sprintf("%spage:%s:%d:%s", feedKeyPrefix, direction, limit, strings.TrimSpace(cursor))
}

// Load decodes the page stored under key into dest and reports a hit.
func (c *FeedCache) Load(ctx context.Context, key string, dest interface{}) bool {
	if !c.Enabled() {
		return false
	}
	start := time.Now()
	err := c.store.Get(ctx, key, dest)
	c.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil && !errors.Is(err, appErrors.ErrCacheMiss) {
		c.logger.Warn("feed cache read failed", zap.String("key", key), zap.Error(err))
	}
	return err == nil
}

// Store saves a rendered page for the configured TTL. Failures are logged only.
func (c *FeedCache) Store(ctx context.Context, key string, page interface{}) {
	if !c.Enabled() {
		return
	}
	start := time.Now()
	err := c.store.Set(ctx, key, page, c.ttl)
	c.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		c.logger.Warn("feed cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Purge drops every cached feed page.
func (c *FeedCache) Purge(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	return c.store.DeleteByPattern(ctx, feedKeyPrefix+"*")
}
