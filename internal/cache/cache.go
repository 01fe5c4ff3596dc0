// Package cache keeps the active template list in Redis so that opening the template
// picker does not hit the database on every request.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jonathan/cv-builder/internal/remote"
	"github.com/jonathan/cv-builder/internal/types"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrMiss is returned by KV.Get when the key is absent.
var ErrMiss = errors.New("cache miss")

// KV is the key-value subset the cache needs.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// NewRedisClient connects to the Redis server at redisURL (redis:// or rediss://).
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// RedisKV adapts a Redis client to KV.
type RedisKV struct {
	client redis.Cmdable
}

// NewRedisKV creates a RedisKV.
func NewRedisKV(client redis.Cmdable) *RedisKV {
	return &RedisKV{client: client}
}

// Get implements KV.
func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return b, err
}

// Set implements KV.
func (r *RedisKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// Del implements KV.
func (r *RedisKV) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

const templatesKey = "cvb:templates:active"

// DefaultTemplateTTL is how long a cached template list is served.
const DefaultTemplateTTL = 5 * time.Minute

// TemplateCache serves the active template list from KV, filling it from source on a
// miss. Concurrent misses share one source read. A KV outage degrades to reading the
// source directly.
type TemplateCache struct {
	source remote.TemplateSource
	kv     KV
	ttl    time.Duration
	logger *zap.Logger
	group  singleflight.Group
}

// NewTemplateCache creates a TemplateCache.
func NewTemplateCache(source remote.TemplateSource, kv KV, ttl time.Duration, logger *zap.Logger) *TemplateCache {
	if ttl <= 0 {
		ttl = DefaultTemplateTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TemplateCache{source: source, kv: kv, ttl: ttl, logger: logger}
}

// ListActiveTemplates implements remote.TemplateSource.
func (c *TemplateCache) ListActiveTemplates(ctx context.Context) ([]types.Template, error) {
	raw, err := c.kv.Get(ctx, templatesKey)
	switch {
	case err == nil:
		var templates []types.Template
		if err := json.Unmarshal(raw, &templates); err == nil {
			return templates, nil
		}
		c.logger.Warn("discarding undecodable cached templates")
	case !errors.Is(err, ErrMiss):
		c.logger.Warn("template cache read failed", zap.Error(err))
	}

	v, err, _ := c.group.Do(templatesKey, func() (any, error) {
		templates, err := c.source.ListActiveTemplates(ctx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(templates)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal templates: %w", err)
		}
		if err := c.kv.Set(ctx, templatesKey, raw, c.ttl); err != nil {
			c.logger.Warn("template cache write failed", zap.Error(err))
		}
		return templates, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]types.Template), nil
}

// Invalidate drops the cached list.
func (c *TemplateCache) Invalidate(ctx context.Context) error {
	return c.kv.Del(ctx, templatesKey)
}
