// Package config loads client settings from paymo.toml, PAYMO_* environment
// variables and built-in defaults, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jcolombo/paymo/internal/client"
)

// EnvPrefix is prepended to every environment override, e.g. PAYMO_API_KEY.
const EnvPrefix = "PAYMO"

// Cache backends.
const (
	CacheNone     = "none"
	CacheMemory   = "memory"
	CacheRedis    = "redis"
	CachePostgres = "postgres"
)

type Config struct {
	API          APIConfig    `mapstructure:"api"`
	Cache        CacheConfig  `mapstructure:"cache"`
	Events       EventsConfig `mapstructure:"events"`
	Export       ExportConfig `mapstructure:"export"`
	Log          LogConfig    `mapstructure:"log"`
	DevMode      bool         `mapstructure:"dev_mode"`
	ProtectDirty bool         `mapstructure:"protect_dirty"`
}

type APIConfig struct {
	URL     string        `mapstructure:"url"`
	Key     string        `mapstructure:"key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type CacheConfig struct {
	Backend  string        `mapstructure:"backend"`
	TTL      time.Duration `mapstructure:"ttl"`
	Prefix   string        `mapstructure:"prefix"`
	Redis    RedisConfig   `mapstructure:"redis"`
	Postgres PostgresURL   `mapstructure:"postgres"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type PostgresURL struct {
	URL string `mapstructure:"url"`
}

// EventsConfig enables NATS lifecycle events when NATSURL is set.
type EventsConfig struct {
	NATSURL string `mapstructure:"nats_url"`
}

type ExportConfig struct {
	S3  S3Config  `mapstructure:"s3"`
	Git GitConfig `mapstructure:"git"`
}

type S3Config struct {
	Bucket   string `mapstructure:"bucket"` // enables S3 when set
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"` // custom endpoint for MinIO
	Key      string `mapstructure:"key"`
}

type GitConfig struct {
	Repo   string `mapstructure:"repo"` // enables git when set; path to clone
	File   string `mapstructure:"file"`
	Branch string `mapstructure:"branch"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads paymo.toml from the working directory or $HOME/.config/paymo.
// A missing file is not an error.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path searches the
// default locations.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("paymo")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		if dir, err := Dir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Dir is the per-user config directory, $HOME/.config/paymo.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "paymo"), nil
}

// Every key needs a default so AutomaticEnv can see it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("api.url", client.DefaultBaseURL)
	v.SetDefault("api.key", "")
	v.SetDefault("api.timeout", 30*time.Second)

	v.SetDefault("cache.backend", CacheNone)
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("cache.prefix", "paymo:")
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.postgres.url", "")

	v.SetDefault("events.nats_url", "")

	v.SetDefault("export.s3.bucket", "")
	v.SetDefault("export.s3.region", "us-east-1")
	v.SetDefault("export.s3.endpoint", "")
	v.SetDefault("export.s3.key", "paymo/export.jsonl")
	v.SetDefault("export.git.repo", "")
	v.SetDefault("export.git.file", "paymo.jsonl")
	v.SetDefault("export.git.branch", "main")

	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "console")

	v.SetDefault("dev_mode", false)
	v.SetDefault("protect_dirty", false)
}

// Validate checks cross-field constraints that defaults cannot express.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case CacheNone, CacheMemory, CacheRedis:
	case CachePostgres:
		if c.Cache.Postgres.URL == "" {
			return fmt.Errorf("cache.postgres.url is required for the postgres cache backend")
		}
	default:
		return fmt.Errorf("cache.backend: unknown backend %q", c.Cache.Backend)
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}
	return nil
}

// CacheEnabled reports whether responses should go through a cache.
func (c *Config) CacheEnabled() bool {
	return c.Cache.Backend != "" && c.Cache.Backend != CacheNone
}
