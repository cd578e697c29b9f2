package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/fonsecaaso/tinylink/internal/metrics"
	"github.com/fonsecaaso/tinylink/internal/model"
)

// ErrCacheMiss is returned by a Cache when the key is absent
var ErrCacheMiss = errors.New("cache miss")

const cacheKeyPrefix = "tinylink:link:"

// Cache is the minimal key/value store used for link lookups
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// RedisCache implements Cache on top of a go-redis client
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache wraps an already connected Redis client
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	}
	return val, err
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	return c.client.Del(ctx, keys...).Err()
}

// CachedLinkRepository keeps a copy of every link fetched through GetLink.
// The API stays the source of truth: the copy is only served when the API cannot
// be reached, so click counts are never older than the last failed refresh.
// Cache failures are logged and never fail the call.
type CachedLinkRepository struct {
	LinkRepository
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedLinkRepository decorates next with cache. Entries expire after ttl.
func NewCachedLinkRepository(next LinkRepository, cache Cache, ttl time.Duration) *CachedLinkRepository {
	return &CachedLinkRepository{
		LinkRepository: next,
		cache:          cache,
		ttl:            ttl,
		logger:         zap.L().With(zap.String("component", "CachedLinkRepository")),
	}
}

// GetLink fetches the link from the API and refreshes the cached copy. When the
// API is unreachable or failing, the last cached copy is returned instead.
func (r *CachedLinkRepository) GetLink(ctx context.Context, code string) (*model.Link, error) {
	key := cacheKeyPrefix + code

	link, err := r.LinkRepository.GetLink(ctx, code)
	switch {
	case err == nil:
		r.store(ctx, key, link)
		return link, nil
	case errors.Is(err, ErrNotFound):
		r.evict(ctx, key)
		return nil, err
	case errors.Is(err, ErrTransport), errors.Is(err, ErrServer):
		if cached, ok := r.load(ctx, key); ok {
			metrics.CacheFallbacksTotal.WithLabelValues("link").Inc()
			r.logger.Warn("API unavailable, serving cached link", zap.String("code", code), zap.Error(err))
			return cached, nil
		}
		return nil, err
	default:
		return nil, err
	}
}

func (r *CachedLinkRepository) load(ctx context.Context, key string) (*model.Link, bool) {
	val, err := r.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			r.logger.Warn("Cache error", zap.Error(err), zap.String("key", key))
		}
		metrics.CacheMissesTotal.WithLabelValues("link").Inc()
		return nil, false
	}

	var link model.Link
	if err := json.Unmarshal(val, &link); err != nil {
		r.logger.Warn("Ignoring unreadable cache entry", zap.String("key", key))
		metrics.CacheMissesTotal.WithLabelValues("link").Inc()
		return nil, false
	}
	metrics.CacheHitsTotal.WithLabelValues("link").Inc()
	return &link, true
}

func (r *CachedLinkRepository) store(ctx context.Context, key string, link *model.Link) {
	payload, err := json.Marshal(link)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, key, payload, r.ttl); err != nil {
		r.logger.Warn("Failed to cache link", zap.Error(err), zap.String("key", key))
	}
}

func (r *CachedLinkRepository) evict(ctx context.Context, key string) {
	if err := r.cache.Delete(ctx, key); err != nil {
		r.logger.Warn("Failed to evict cached link", zap.Error(err), zap.String("key", key))
	}
}

// DeleteLink removes the link upstream and evicts it from the cache
func (r *CachedLinkRepository) DeleteLink(ctx context.Context, code string) error {
	if err := r.LinkRepository.DeleteLink(ctx, code); err != nil {
		return err
	}

	r.evict(ctx, cacheKeyPrefix+code)
	return nil
}
