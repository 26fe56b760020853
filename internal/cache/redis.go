package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "boss:"

// RedisBackend stores values in Redis without expiry; staleness is decided by
// the entry timestamp, and an expired entry is still a fallback.
type RedisBackend struct {
	Client *redis.Client
}

func NewRedis(redisURL string) (*RedisBackend, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisBackend{Client: client}, nil
}

func (r *RedisBackend) Close() error {
	return r.Client.Close()
}

func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.Client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return val, err
}

func (r *RedisBackend) Set(ctx context.Context, key string, value []byte) error {
	return r.Client.Set(ctx, keyPrefix+key, value, 0).Err()
}
