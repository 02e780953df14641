// Package app wires configuration, storage, caches, the listing service,
// the warm-up scheduler and the HTTP server, and runs them until shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"

	"github.com/dmitrymomot/estate/internal/config"
	"github.com/dmitrymomot/estate/internal/db/migrations"
	"github.com/dmitrymomot/estate/internal/httpapi"
	"github.com/dmitrymomot/estate/internal/listing"
	"github.com/dmitrymomot/estate/internal/metrics"
	"github.com/dmitrymomot/estate/internal/scheduler"
	"github.com/dmitrymomot/estate/pkg/cache"
	"github.com/dmitrymomot/estate/pkg/db"
	"github.com/dmitrymomot/estate/pkg/health"
	"github.com/dmitrymomot/estate/pkg/logger"
	"github.com/dmitrymomot/estate/pkg/redis"
)

// Hook runs during startup or shutdown.
type Hook func(ctx context.Context) error

// App is the assembled service.
type App struct {
	cfg     config.Config
	log     *slog.Logger
	server  *http.Server
	caches  *cache.Registry
	service *listing.Service

	startupHooks  []Hook
	shutdownHooks []Hook

	mu       sync.Mutex
	listener net.Listener
	done     chan struct{}
	stopOnce sync.Once
}

// Option configures New.
type Option func(*buildOptions)

type buildOptions struct {
	logger *slog.Logger
	repo   listing.Repository
}

// WithLogger replaces the logger built from configuration.
func WithLogger(l *slog.Logger) Option {
	return func(o *buildOptions) {
		o.logger = l
	}
}

// WithRepository uses repo instead of connecting to the configured source.
func WithRepository(repo listing.Repository) Option {
	return func(o *buildOptions) {
		o.repo = repo
	}
}

// New connects to every dependency and assembles the service.
// On failure, anything already opened is closed again.
func New(ctx context.Context, cfg config.Config, opts ...Option) (_ *App, err error) {
	o := &buildOptions{}
	for _, opt := range opts {
		opt(o)
	}

	a := &App{
		cfg:  cfg,
		log:  o.logger,
		done: make(chan struct{}),
	}
	if a.log == nil {
		a.log = logger.New(cfg.Log, httpapi.RequestIDExtractor())
	}

	defer func() {
		if err != nil {
			_ = a.runShutdownHooks(context.Background())
		}
	}()

	checks := health.Checks{}

	m, err := metrics.New()
	if err != nil {
		return nil, err
	}

	repo := o.repo
	if repo == nil {
		repo, err = a.openRepository(ctx, checks)
		if err != nil {
			return nil, err
		}
	}
	repo = listing.NewBreakerRepository(repo, "listings", cfg.Breaker, a.log)

	lists, items, err := a.openCaches(ctx, m, checks)
	if err != nil {
		return nil, err
	}

	a.caches = cache.NewRegistry(lists, items)
	a.onShutdown(func(context.Context) error { return a.caches.Close() })
	if err := m.WatchCaches(a.caches, a.log); err != nil {
		return nil, err
	}

	a.service = listing.NewService(repo, lists, items,
		listing.WithListTTL(cfg.Cache.ListTTL),
		listing.WithItemTTL(cfg.Cache.ItemTTL),
		listing.WithFetchTimeout(cfg.Listing.FetchTimeout),
		listing.WithLogger(a.log),
	)

	if cfg.Listing.WarmupFile != "" {
		plan, err := scheduler.LoadPlanFile(cfg.Listing.WarmupFile)
		if err != nil {
			return nil, err
		}
		sched, err := scheduler.New(plan, a.service, scheduler.WithLogger(a.log))
		if err != nil {
			return nil, err
		}
		a.onStartup(sched.StartFunc())
		a.onShutdown(sched.Shutdown())
	}

	a.server = &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: httpapi.NewRouter(httpapi.Deps{
			Listings: a.service,
			Caches:   a.caches,
			Metrics:  m,
			Checks:   checks,
			Logger:   a.log,
		}),
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		ErrorLog:          slog.NewLogLogger(a.log.Handler(), slog.LevelError),
	}

	return a, nil
}

func (a *App) openRepository(ctx context.Context, checks health.Checks) (listing.Repository, error) {
	switch a.cfg.Listing.Source {
	case config.SourceSupabase:
		return listing.NewSupabaseRepository(a.cfg.Listing.SupabaseURL, a.cfg.Listing.SupabaseKey)

	case config.SourcePostgres:
		pool, err := db.Connect(ctx, a.cfg.DB)
		if err != nil {
			return nil, err
		}
		a.onShutdown(db.Shutdown(pool))
		checks["postgres"] = db.Healthcheck(pool)

		if a.cfg.DB.AutoMigrate {
			if err := db.Migrate(ctx, pool, migrations.FS, a.cfg.DB.MigrationsTable, a.log); err != nil {
				return nil, err
			}
		}
		return listing.NewPostgresRepository(pool), nil

	default:
		return nil, fmt.Errorf("%w: unknown listing source %q", config.ErrInvalidConfig, a.cfg.Listing.Source)
	}
}

func (a *App) openCaches(ctx context.Context, obs cache.Observer, checks health.Checks) (*cache.ReadThrough[[]listing.Property], *cache.ReadThrough[listing.Property], error) {
	cc := a.cfg.Cache

	var (
		listStore cache.Store[[]listing.Property]
		itemStore cache.Store[listing.Property]
	)
	switch cc.Backend {
	case config.BackendRedis:
		client, err := redis.Open(ctx, a.cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		a.onShutdown(redis.Shutdown(client))
		checks["redis"] = redis.Healthcheck(client)

		listStore = cache.NewRedis[[]listing.Property](client, nil, cache.WithPrefix(redisPrefix(cc.RedisPrefix, "lists")))
		itemStore = cache.NewRedis[listing.Property](client, nil, cache.WithPrefix(redisPrefix(cc.RedisPrefix, "items")))

	case config.BackendMemory:
		listStore = cache.NewMemory[[]listing.Property](cache.WithMaxEntries(cc.MaxEntries))
		itemStore = cache.NewMemory[listing.Property](cache.WithMaxEntries(cc.MaxEntries))

	default:
		return nil, nil, fmt.Errorf("%w: unknown cache backend %q", config.ErrInvalidConfig, cc.Backend)
	}

	common := []cache.Option{
		cache.WithDefaults(cache.Options{MaxAge: cc.MaxAge, Version: cc.Version}),
		cache.WithLogger(a.log),
		cache.WithObserver(obs),
		cache.WithCleanupInterval(cc.CleanupInterval),
	}
	if cc.Singleflight {
		common = append(common, cache.WithSingleflight())
	}

	lists := cache.New(listStore, append(common, cache.WithName("listings"))...)
	items := cache.New(itemStore, append(common, cache.WithName("properties"))...)
	return lists, items, nil
}

// redisPrefix joins the configured namespace and a per-cache segment.
func redisPrefix(ns, segment string) string {
	if ns == "" {
		return segment
	}
	return ns + ":" + segment
}

func (a *App) onStartup(h Hook) {
	a.startupHooks = append(a.startupHooks, h)
}

func (a *App) onShutdown(h Hook) {
	a.shutdownHooks = append(a.shutdownHooks, h)
}

// Handler returns the HTTP handler, for embedding and tests.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Addr returns the listening address once Run has bound it, or "".
func (a *App) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// Run starts the startup hooks and the HTTP server, and blocks until ctx is
// done, SIGINT or SIGTERM arrives, or Stop is called. It then shuts the
// server down and runs the shutdown hooks in reverse registration order.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	for _, hook := range a.startupHooks {
		if err := hook(ctx); err != nil {
			_ = a.runShutdownHooks(context.Background())
			return err
		}
	}

	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		_ = a.runShutdownHooks(context.Background())
		return err
	}
	a.mu.Lock()
	a.listener = ln
	a.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("server starting", slog.String("address", ln.Addr().String()))
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case serveErr = <-errCh:
	case <-ctx.Done():
	case <-a.done:
	}

	a.log.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	errs := []error{serveErr}
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	if err := a.runShutdownHooks(shutdownCtx); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		a.log.Error("shutdown completed with errors", slog.String("error", err.Error()))
		return err
	}

	a.log.Info("shutdown completed")
	return nil
}

// Stop triggers a graceful shutdown of Run.
func (a *App) Stop() {
	a.stopOnce.Do(func() { close(a.done) })
}

// runShutdownHooks runs every hook once, last registered first, so
// dependents stop before what they depend on.
func (a *App) runShutdownHooks(ctx context.Context) error {
	a.mu.Lock()
	hooks := a.shutdownHooks
	a.shutdownHooks = nil
	a.mu.Unlock()

	var errs []error
	for _, hook := range slices.Backward(hooks) {
		if err := hook(ctx); err != nil {
			errs = append(errs, err)
			a.log.Error("shutdown hook failed", slog.String("error", err.Error()))
		}
	}
	return errors.Join(errs...)
}
