package api

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/redis"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "profile:"

// KV is the slice of *pkgredis.Client the cache uses.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Cache memoizes read API lookups in Redis. Concurrent misses on one key
// share a single computation.
type Cache struct {
	kv      KV
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewCache(kv KV, ttl time.Duration, m *metrics.Metrics) *Cache {
	return &Cache{
		kv:      kv,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "profile-cache"),
	}
}

func (c *Cache) get(ctx context.Context, key string, dst any) bool {
	data, err := c.kv.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		return false
	}
	return true
}

func (c *Cache) set(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.kv.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// Invalidate drops every cached entry, for use after a profile import.
func (c *Cache) Invalidate(ctx context.Context) error {
	deleted, err := c.kv.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

// cached returns the value for (kind, arg), computing and storing it on a
// miss. A nil cache always computes.
func cached[T any](ctx context.Context, c *Cache, kind, arg string, compute func() (T, error)) (T, bool, error) {
	if c == nil {
		v, err := compute()
		return v, false, err
	}
	key := buildKey(kind, arg)
	var hit T
	if c.get(ctx, key, &hit) {
		c.metrics.CacheLookup(true)
		return hit, true, nil
	}
	c.metrics.CacheLookup(false)
	val, err, _ := c.group.Do(key, func() (any, error) {
		var again T
		if c.get(ctx, key, &again) {
			return again, nil
		}
		v, err := compute()
		if err != nil {
			return v, err
		}
		c.set(ctx, key, v)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	return val.(T), false, nil
}

func buildKey(kind, arg string) string {
	hash := sha256.Sum256([]byte(arg))
	return fmt.Sprintf("%s%s:%x", keyPrefix, kind, hash[:16])
}
