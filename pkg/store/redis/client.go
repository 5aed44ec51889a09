package redis

import (
	"context"
	"fmt"
	"time"

	"labswarm/pkg/config"

	"github.com/go-redis/redis/v8"
)

const pingTimeout = 3 * time.Second

// RedisClient Redis client wrapper
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient creates Redis client and verifies the connection
func NewRedisClient(cfg *config.Config) (*RedisClient, error) {
	return NewRedisClientWithOptions(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// NewRedisClientWithOptions creates Redis client from raw options
func NewRedisClientWithOptions(opts *redis.Options) (*RedisClient, error) {
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}

	return &RedisClient{client: client}, nil
}

// GetClient retrieves the underlying Redis client
func (r *RedisClient) GetClient() *redis.Client {
	return r.client
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	return r.client.Close()
}
