// Package config loads the service configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/dmitrymomot/estate/internal/listing"
	"github.com/dmitrymomot/estate/pkg/db"
	"github.com/dmitrymomot/estate/pkg/logger"
	"github.com/dmitrymomot/estate/pkg/redis"
)

// ErrInvalidConfig is returned when the environment cannot be parsed or fails validation.
var ErrInvalidConfig = errors.New("config: invalid configuration")

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"

	SourcePostgres = "postgres"
	SourceSupabase = "supabase"
)

// Config is the full service configuration.
type Config struct {
	HTTP    HTTPConfig
	Log     logger.Config
	DB      db.Config
	Redis   redis.Config
	Cache   CacheConfig
	Listing ListingConfig
	Breaker listing.BreakerConfig
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Addr              string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" envDefault:"5s"`
	WriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout   time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// CacheConfig holds read-through cache settings.
type CacheConfig struct {
	// Backend is memory or redis. Redis requires REDIS_URL.
	Backend string `env:"CACHE_BACKEND" envDefault:"memory"`

	// Version tags every entry. Bump it to invalidate all entries on deploy.
	Version string `env:"CACHE_VERSION" envDefault:"1.0.0"`

	ListTTL         time.Duration `env:"CACHE_LIST_TTL" envDefault:"5m"`
	ItemTTL         time.Duration `env:"CACHE_ITEM_TTL" envDefault:"10m"`
	MaxAge          time.Duration `env:"CACHE_MAX_AGE" envDefault:"24h"`
	CleanupInterval time.Duration `env:"CACHE_CLEANUP_INTERVAL" envDefault:"5m"`

	// MaxEntries bounds each memory cache; 0 is unbounded.
	MaxEntries int `env:"CACHE_MAX_ENTRIES" envDefault:"0"`

	// Singleflight coalesces concurrent misses for the same key.
	Singleflight bool `env:"CACHE_SINGLEFLIGHT" envDefault:"false"`

	// RedisPrefix namespaces keys in a shared Redis database.
	RedisPrefix string `env:"CACHE_REDIS_PREFIX" envDefault:"estate"`
}

// ListingConfig selects and tunes the listings source.
type ListingConfig struct {
	Source       string        `env:"LISTING_SOURCE" envDefault:"postgres"`
	SupabaseURL  string        `env:"SUPABASE_URL"`
	SupabaseKey  string        `env:"SUPABASE_KEY"`
	FetchTimeout time.Duration `env:"LISTING_FETCH_TIMEOUT" envDefault:"8s"`

	// WarmupFile is a YAML warm-up plan; empty disables the scheduler.
	WarmupFile string `env:"WARMUP_FILE"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, errors.Join(ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements.
func (c Config) Validate() error {
	var errs []error

	switch c.Cache.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for the redis cache backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown CACHE_BACKEND %q", c.Cache.Backend))
	}

	switch c.Listing.Source {
	case SourcePostgres:
		if c.DB.ConnectionString == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres listing source"))
		}
	case SourceSupabase:
		if c.Listing.SupabaseURL == "" || c.Listing.SupabaseKey == "" {
			errs = append(errs, errors.New("SUPABASE_URL and SUPABASE_KEY are required for the supabase listing source"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown LISTING_SOURCE %q", c.Listing.Source))
	}

	if c.Cache.MaxEntries < 0 {
		errs = append(errs, errors.New("CACHE_MAX_ENTRIES must not be negative"))
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidConfig}, errs...)...)
	}
	return nil
}
