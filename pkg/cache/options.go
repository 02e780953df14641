package cache

import (
	"io"
	"log/slog"
	"time"
)

// Defaults applied to zero-valued Options fields.
const (
	DefaultTTL     = 5 * time.Minute
	DefaultMaxAge  = 24 * time.Hour
	DefaultVersion = "1.0.0"

	defaultCleanupInterval = 5 * time.Minute
)

// Options controls a single read or write through the cache.
// Zero-valued fields fall back to the cache defaults (see WithDefaults).
type Options struct {
	// TTL is how long a stored entry is served on the primary path.
	// Default: 5 minutes.
	TTL time.Duration

	// MaxAge is the age past which an entry is unusable even on the primary path.
	// The stale fallback accepts entries up to twice this age.
	// Default: 24 hours.
	MaxAge time.Duration

	// ForceRefresh skips the cache read and always calls the fetch function.
	ForceRefresh bool

	// Version tags stored entries. An entry whose version differs from the
	// requested one is treated as absent.
	// Default: DefaultVersion.
	Version string
}

// resolve fills zero fields from d.
func (o Options) resolve(d Options) Options {
	if o.TTL <= 0 {
		o.TTL = d.TTL
	}
	if o.MaxAge <= 0 {
		o.MaxAge = d.MaxAge
	}
	if o.Version == "" {
		o.Version = d.Version
	}
	return o
}

// Option configures a ReadThrough cache.
type Option func(*options)

type options struct {
	defaults        Options
	now             func() time.Time
	logger          *slog.Logger
	observer        Observer
	name            string
	cleanupInterval time.Duration
	singleflight    bool
}

func defaultOptions() *options {
	return &options{
		defaults: Options{
			TTL:     DefaultTTL,
			MaxAge:  DefaultMaxAge,
			Version: DefaultVersion,
		},
		now:             time.Now,
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		name:            "default",
		cleanupInterval: defaultCleanupInterval,
	}
}

// WithDefaults overrides the per-call defaults. Zero fields in d keep the
// package defaults.
func WithDefaults(d Options) Option {
	return func(o *options) {
		o.defaults = d.resolve(o.defaults)
	}
}

// WithClock sets the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the logger used for store faults and stale serving.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithObserver registers an observer notified on hits, misses, stale serving,
// fetch failures and removals.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// WithName labels the cache in logs, observer events and registry listings.
// Default: "default".
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithCleanupInterval sets how often the background janitor calls ClearExpired.
// Zero disables the janitor.
// Default: 5 minutes.
func WithCleanupInterval(d time.Duration) Option {
	return func(o *options) {
		o.cleanupInterval = d
	}
}

// WithSingleflight coalesces concurrent misses for the same key into one fetch.
// Without it every concurrent miss calls its own fetch function and the last
// write wins.
func WithSingleflight() Option {
	return func(o *options) {
		o.singleflight = true
	}
}
