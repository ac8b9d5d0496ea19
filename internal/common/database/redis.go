// internal/common/database/redis.go
package database

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"sales-predictor/internal/common/config"
	"sales-predictor/internal/common/errors"
)

// RedisClient holds the connection pool behind the shared prediction cache.
type RedisClient struct {
	Client *redis.Client
	addr   string
}

// NewRedis builds a lazily connecting client; call Ping to verify it.
// Timeouts are short since every call sits on a request path.
func NewRedis(cfg config.RedisConfig) *RedisClient {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
		PoolSize:     20,
		MinIdleConns: 2,
	})
	return &RedisClient{Client: rdb, addr: cfg.Address}
}

func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return errors.NewCacheFailedError("ping "+c.addr, err)
	}
	return nil
}

func (c *RedisClient) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}
