package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache key prefixes per data class.
const (
	PrefixAssessment = "assessment:"
	PrefixRules      = "rules:"
	PrefixAnalytics  = "analytics:"
	PrefixUser       = "user:"
)

// Default TTLs. Assessments are read-mostly, analytics change with every
// submission so they get a short window.
const (
	TTLAssessment = 30 * time.Minute
	TTLRules      = 5 * time.Minute
	TTLAnalytics  = 2 * time.Minute
	TTLUser       = 15 * time.Minute
)

var (
	ErrCacheMiss        = errors.New("cache miss")
	ErrCacheUnavailable = errors.New("cache unavailable")
)

// CacheHelper wraps a redis client with JSON marshaling and graceful
// degradation when no client is configured.
type CacheHelper struct {
	client *redis.Client
	logger *slog.Logger
}

func NewCacheHelper(client *redis.Client, logger *slog.Logger) *CacheHelper {
	return &CacheHelper{
		client: client,
		logger: logger,
	}
}

// Available reports whether a redis client is wired. All operations
// degrade to no-ops (with ErrCacheUnavailable) when it is not.
func (c *CacheHelper) Available() bool {
	return c.client != nil
}

func (c *CacheHelper) Get(ctx context.Context, key string, dest interface{}) error {
	if c.client == nil {
		return ErrCacheUnavailable
	}

	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		c.logger.Warn("cache get failed", "key", key, "error", err)
		return fmt.Errorf("cache get: %w", err)
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		c.logger.Warn("cache unmarshal failed, evicting", "key", key, "error", err)
		c.client.Del(ctx, key)
		return ErrCacheMiss
	}

	return nil
}

func (c *CacheHelper) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.client == nil {
		return ErrCacheUnavailable
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
		return fmt.Errorf("cache set: %w", err)
	}

	return nil
}

func (c *CacheHelper) Delete(ctx context.Context, keys ...string) error {
	if c.client == nil || len(keys) == 0 {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("cache delete failed", "keys", keys, "error", err)
		return fmt.Errorf("cache delete: %w", err)
	}

	return nil
}

// DeletePattern removes all keys matching the glob pattern via SCAN.
func (c *CacheHelper) DeletePattern(ctx context.Context, pattern string) error {
	if c.client == nil {
		return nil
	}

	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("cache scan failed", "pattern", pattern, "error", err)
		return fmt.Errorf("cache scan: %w", err)
	}

	return c.Delete(ctx, keys...)
}

// CacheOrExecute implements the cache-aside pattern: try the cache,
// fall back to fn, and store the result. Cache failures never fail the
// caller; fn errors propagate unchanged.
func (c *CacheHelper) CacheOrExecute(ctx context.Context, key string, ttl time.Duration, dest interface{}, fn func() (interface{}, error)) error {
	if err := c.Get(ctx, key, dest); err == nil {
		return nil
	}

	result, err := fn()
	if err != nil {
		return err
	}

	if err := c.Set(ctx, key, result, ttl); err != nil &&
		!errors.Is(err, ErrCacheUnavailable) {
		c.logger.Debug("cache populate skipped", "key", key, "error", err)
	}

	// Round-trip through JSON so dest is filled the same way a cache
	// hit would fill it.
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return json.Unmarshal(data, dest)
}
