package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is an in-process cache with TTL support.
type MemoryCache struct {
	mu     sync.RWMutex
	items  map[string]item
	config Config
	now    func() time.Time
}

type item struct {
	value      []byte
	expiration time.Time
}

func (i item) expired(now time.Time) bool {
	return !i.expiration.IsZero() && now.After(i.expiration)
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache(config Config) *MemoryCache {
	return &MemoryCache{
		items:  make(map[string]item),
		config: config,
		now:    time.Now,
	}
}

func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	it, ok := m.items[m.config.Prefix+key]
	m.mu.RUnlock()
	if !ok || it.expired(m.now()) {
		if ok {
			m.mu.Lock()
			delete(m.items, m.config.Prefix+key)
			m.mu.Unlock()
		}
		return nil, ErrCacheMiss{Key: key}
	}
	return append([]byte(nil), it.value...), nil
}

func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	it := item{value: append([]byte(nil), value...)}
	if ttl = m.config.ttl(ttl); ttl > 0 {
		it.expiration = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.items[m.config.Prefix+key] = it
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.items, m.config.Prefix+key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.items = make(map[string]item)
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	_, err := m.Get(ctx, key)
	if IsCacheMiss(err) {
		return false, nil
	}
	return err == nil, err
}

// Len reports the number of stored entries, expired ones included.
func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
