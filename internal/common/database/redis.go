// internal/common/database/redis.go
package database

import (
	"context"
	"time"

	"medsearch-service/internal/common/config"

	"github.com/redis/go-redis/v9"
)

const redisClientName = "medsearch-history"

// RedisClient owns the connection pool for the history sorted set.
type RedisClient struct {
	Client *redis.Client
}

// NewRedis builds the client and pings it; go-redis dials lazily otherwise.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ClientName:   redisClientName,
		DialTimeout:  ConnectTimeout,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 1,
	})

	ping := func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	if err := verify(ctx, "redis", ping, rdb.Close); err != nil {
		return nil, err
	}
	return &RedisClient{Client: rdb}, nil
}

func (c *RedisClient) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisClient) Close() error {
	return c.Client.Close()
}
