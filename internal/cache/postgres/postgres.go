// Package postgres implements cache.Cache backed by a PostgreSQL table, for
// response caches shared across hosts and surviving restarts.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/jcolombo/paymo/internal/cache"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Cache implements cache.Cache on the response_cache table.
type Cache struct {
	db     *sql.DB
	config cache.Config
	now    func() time.Time
}

// Compile-time check that Cache implements cache.Cache.
var _ cache.Cache = (*Cache)(nil)

// New opens a connection to the PostgreSQL database at the given URL,
// configures the connection pool, and runs any pending migrations.
func New(databaseURL string, config cache.Config) (*Cache, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return NewWithDB(db, config), nil
}

// NewWithDB wraps an open database whose schema is already migrated.
func NewWithDB(db *sql.DB, config cache.Config) *Cache {
	return &Cache{db: db, config: config, now: time.Now}
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := queryGet(ctx, c.db, c.config.Prefix+key, c.now())
	if err == sql.ErrNoRows {
		return nil, cache.ErrCacheMiss{Key: key}
	}
	if err != nil {
		return nil, fmt.Errorf("get cache entry: %w", err)
	}
	return value, nil
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.config.DefaultTTL
	}
	var expires *time.Time
	if ttl > 0 {
		t := c.now().Add(ttl)
		expires = &t
	}
	if err := queryUpsert(ctx, c.db, c.config.Prefix+key, value, expires); err != nil {
		return fmt.Errorf("set cache entry: %w", err)
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := queryDelete(ctx, c.db, c.config.Prefix+key); err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

// Clear removes every entry under the configured prefix.
func (c *Cache) Clear(ctx context.Context) error {
	if err := queryDeletePrefix(ctx, c.db, c.config.Prefix); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := queryExists(ctx, c.db, c.config.Prefix+key, c.now())
	if err != nil {
		return false, fmt.Errorf("check cache entry: %w", err)
	}
	return ok, nil
}

// Purge deletes expired entries and reports how many were removed.
func (c *Cache) Purge(ctx context.Context) (int64, error) {
	n, err := queryPurge(ctx, c.db, c.now())
	if err != nil {
		return 0, fmt.Errorf("purge cache: %w", err)
	}
	return n, nil
}
