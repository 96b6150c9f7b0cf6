package main

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/jcolombo/paymo/internal/cache"
	"github.com/jcolombo/paymo/internal/cache/postgres"
	"github.com/jcolombo/paymo/internal/client"
	"github.com/jcolombo/paymo/internal/config"
	"github.com/jcolombo/paymo/internal/events"
	"github.com/jcolombo/paymo/internal/logging"
	"github.com/jcolombo/paymo/internal/resource"
	"github.com/jcolombo/paymo/internal/schema"
)

// app is everything a resource command needs, built from cfg.
type app struct {
	session *resource.Session
	logger  *zap.Logger
	closers []io.Closer
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

// Overridden in tests.
var (
	newLogger    = logging.New
	loadRegistry = func(c *config.Config) (*schema.Registry, error) {
		return schema.LoadDefault(schema.WithStrict(c.DevMode))
	}
)

func newApp(ctx context.Context, c *config.Config) (*app, error) {
	logger, err := newLogger(c.Log.Level, c.Log.Format)
	if err != nil {
		return nil, err
	}
	a := &app{logger: logger}

	registry, err := loadRegistry(c)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("loading descriptors: %w", err)
	}
	if c.API.Key == "" {
		logger.Warn("no API key configured; set PAYMO_API_KEY or add a remote")
	}

	var transport client.Transport = client.NewHTTPClient(c.API.URL, c.API.Key,
		client.WithTimeout(c.API.Timeout),
		client.WithLogger(logger),
	)

	if c.CacheEnabled() {
		store, err := newCache(ctx, c)
		if err != nil {
			a.Close()
			return nil, err
		}
		if closer, ok := store.(io.Closer); ok {
			a.closers = append(a.closers, closer)
		}
		cached := client.NewCachedTransport(transport, store, c.Cache.TTL, logger)
		cached.ClearOnWrite = true
		transport = cached
	}

	var publisher events.Publisher = &events.NoopPublisher{}
	if c.Events.NATSURL != "" {
		p, err := events.NewNATSPublisher(c.Events.NATSURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		publisher = p
		a.closers = append(a.closers, p)
	}

	a.session = resource.NewSession(registry, transport,
		resource.WithPublisher(publisher),
		resource.WithLogger(logger),
		resource.WithOptions(resource.Options{ProtectDirty: c.ProtectDirty, DevMode: c.DevMode}),
	)
	return a, nil
}

func newCache(ctx context.Context, c *config.Config) (cache.Cache, error) {
	cc := cache.Config{DefaultTTL: c.Cache.TTL, Prefix: c.Cache.Prefix}
	switch c.Cache.Backend {
	case config.CacheMemory:
		return cache.NewMemoryCache(cc), nil
	case config.CacheRedis:
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     c.Cache.Redis.Addr,
			Password: c.Cache.Redis.Password,
			DB:       c.Cache.Redis.DB,
			Cache:    cc,
		})
	case config.CachePostgres:
		return postgres.New(c.Cache.Postgres.URL, cc)
	}
	return nil, fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
}
