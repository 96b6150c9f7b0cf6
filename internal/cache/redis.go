package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is a Redis-backed cache shared between processes.
type RedisCache struct {
	client *redis.Client
	config Config
}

// RedisConfig holds Redis-specific configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Cache    Config
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", cfg.Addr, err)
	}
	return NewRedisCacheWithClient(client, cfg.Cache), nil
}

// NewRedisCacheWithClient wraps an existing client.
func NewRedisCacheWithClient(client *redis.Client, config Config) *RedisCache {
	return &RedisCache{client: client, config: config}
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, r.config.Prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss{Key: key}
		}
		return nil, err
	}
	return value, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ttl = r.config.ttl(ttl)
	if ttl < 0 {
		ttl = 0
	}
	return r.client.Set(ctx, r.config.Prefix+key, value, ttl).Err()
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.config.Prefix+key).Err()
}

// Clear removes every key under the configured prefix.
func (r *RedisCache) Clear(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.config.Prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (r *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, r.config.Prefix+key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close closes the Redis connection.
func (r *RedisCache) Close() error {
	return r.client.Close()
}
