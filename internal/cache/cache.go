// Package cache stores raw API responses keyed by request shape. Backends
// are interchangeable behind the Cache interface.
package cache

import (
	"context"
	"errors"
	"time"
)

// Cache defines the interface for all cache backends.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key. A zero ttl uses the backend default; a
	// negative ttl stores without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Config holds settings shared by every backend.
type Config struct {
	DefaultTTL time.Duration
	Prefix     string
}

// DefaultConfig returns a five minute TTL under the "paymo:" prefix.
func DefaultConfig() Config {
	return Config{
		DefaultTTL: 5 * time.Minute,
		Prefix:     "paymo:",
	}
}

// ErrCacheMiss is returned when a key is not found or has expired.
type ErrCacheMiss struct {
	Key string
}

func (e ErrCacheMiss) Error() string {
	return "cache miss: " + e.Key
}

// IsCacheMiss reports whether err is (or wraps) a cache miss.
func IsCacheMiss(err error) bool {
	var miss ErrCacheMiss
	return errors.As(err, &miss)
}

func (c Config) ttl(ttl time.Duration) time.Duration {
	if ttl == 0 {
		return c.DefaultTTL
	}
	return ttl
}
