// Package cache memoizes predictions per model version and input record.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"

	"sales-predictor/internal/common/config"
	"sales-predictor/internal/models"
)

const keyPrefix = "pred:"

// Cache stores predicted values. Implementations are safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) (float64, bool, error)
	Set(ctx context.Context, key string, value float64) error
}

// Key derives the cache key for rec scored by the given model version.
func Key(modelVersion string, rec models.Record) string {
	data, _ := json.Marshal(rec)
	sum := sha256.Sum256(data)
	return keyPrefix + modelVersion + ":" + hex.EncodeToString(sum[:])
}

// New builds the cache selected by cfg. client is only used by the redis backend.
func New(cfg config.CacheConfig, client *redis.Client) (Cache, error) {
	switch cfg.Backend {
	case config.CacheBackendRedis:
		if client == nil {
			return nil, fmt.Errorf("redis cache requires a redis client")
		}
		return NewRedisCache(client, time.Duration(cfg.TTL)*time.Second), nil
	case config.CacheBackendMemory:
		return NewLRUCache(cfg.Size)
	}
	return Nop{}, nil
}

// RedisCache keeps predictions in redis with a fixed TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (float64, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if stderrors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt cache entry %s: %w", key, err)
	}
	return f, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value float64) error {
	return c.client.Set(ctx, key, strconv.FormatFloat(value, 'g', -1, 64), c.ttl).Err()
}

// LRUCache is an in-process bounded cache.
type LRUCache struct {
	lru *lru.Cache[string, float64]
}

func NewLRUCache(size int) (*LRUCache, error) {
	if size <= 0 {
		size = 1024
	}
	l, err := lru.New[string, float64](size)
	if err != nil {
		return nil, err
	}
	return &LRUCache{lru: l}, nil
}

func (c *LRUCache) Get(_ context.Context, key string) (float64, bool, error) {
	v, ok := c.lru.Get(key)
	return v, ok, nil
}

func (c *LRUCache) Set(_ context.Context, key string, value float64) error {
	c.lru.Add(key, value)
	return nil
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) (float64, bool, error) { return 0, false, nil }
func (Nop) Set(context.Context, string, float64) error         { return nil }
