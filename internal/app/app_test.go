package app_test

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/estate/internal/app"
	"github.com/dmitrymomot/estate/internal/config"
	"github.com/dmitrymomot/estate/internal/listing"
	"github.com/dmitrymomot/estate/pkg/logger"
)

type countingRepo struct {
	lists atomic.Int32
}

func (r *countingRepo) List(context.Context, listing.Filter) ([]listing.Property, error) {
	r.lists.Add(1)
	return []listing.Property{{ID: uuid.New(), Title: "Flat", Currency: "USD", Price: 100000}}, nil
}

func (r *countingRepo) Get(context.Context, uuid.UUID) (listing.Property, error) {
	return listing.Property{}, listing.ErrNotFound
}

func (r *countingRepo) Create(_ context.Context, p listing.Property) (listing.Property, error) {
	return p, nil
}

func (r *countingRepo) Update(context.Context, uuid.UUID, func(*listing.Property) error) (listing.Property, error) {
	return listing.Property{}, listing.ErrNotFound
}

func (r *countingRepo) Delete(context.Context, uuid.UUID) error {
	return listing.ErrNotFound
}

func testConfig() config.Config {
	return config.Config{
		HTTP: config.HTTPConfig{
			Addr:              "127.0.0.1:0",
			ReadTimeout:       5 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      5 * time.Second,
			IdleTimeout:       5 * time.Second,
			ShutdownTimeout:   5 * time.Second,
		},
		Cache: config.CacheConfig{
			Backend:         config.BackendMemory,
			Version:         "1.0.0",
			ListTTL:         time.Minute,
			ItemTTL:         time.Minute,
			MaxAge:          time.Hour,
			CleanupInterval: time.Minute,
		},
		Listing: config.ListingConfig{
			Source:       config.SourcePostgres,
			FetchTimeout: time.Second,
		},
		Breaker: listing.BreakerConfig{
			MaxRequests:      1,
			Interval:         time.Minute,
			Timeout:          time.Minute,
			FailureThreshold: 0.5,
			MinRequests:      5,
		},
	}
}

func startApp(t *testing.T, a *app.App) <-chan error {
	t.Helper()

	done := make(chan error, 1)
	go func() { done <- a.Run(context.Background()) }()

	require.Eventually(t, func() bool { return a.Addr() != "" }, 5*time.Second, 10*time.Millisecond)
	t.Cleanup(func() {
		a.Stop()
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			t.Error("app did not stop")
		}
	})
	return done
}

func TestApp_ServesAndCaches(t *testing.T) {
	t.Parallel()

	repo := &countingRepo{}
	a, err := app.New(context.Background(), testConfig(),
		app.WithLogger(logger.NewNope()),
		app.WithRepository(repo),
	)
	require.NoError(t, err)
	startApp(t, a)

	base := "http://" + a.Addr()

	resp, err := http.Get(base + "/health/live")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for range 3 {
		resp, err := http.Get(base + "/api/properties?city=lagos")
		require.NoError(t, err)

		var body struct {
			Items []listing.Property `json:"items"`
			Count int                `json:"count"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, 1, body.Count)
	}
	require.EqualValues(t, 1, repo.lists.Load())

	resp, err = http.Get(base + "/admin/cache")
	require.NoError(t, err)
	var stats struct {
		Caches map[string]json.RawMessage `json:"caches"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	resp.Body.Close()
	require.Contains(t, stats.Caches, "listings")
	require.Contains(t, stats.Caches, "properties")
}

func TestApp_StopReturnsNil(t *testing.T) {
	t.Parallel()

	a, err := app.New(context.Background(), testConfig(),
		app.WithLogger(logger.NewNope()),
		app.WithRepository(&countingRepo{}),
	)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- a.Run(context.Background()) }()
	require.Eventually(t, func() bool { return a.Addr() != "" }, 5*time.Second, 10*time.Millisecond)

	a.Stop()
	a.Stop()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("app did not stop")
	}
}

func TestApp_PreloadsWarmupPlan(t *testing.T) {
	t.Parallel()

	plan := filepath.Join(t.TempDir(), "warmup.yaml")
	require.NoError(t, os.WriteFile(plan, []byte(`
schedule: "0 3 * * *"
max_age: 10m
preload: true
queries:
  - name: featured
    filter: {featured: true, limit: 12}
  - name: lagos
    filter: {city: lagos}
`), 0o600))

	cfg := testConfig()
	cfg.Listing.WarmupFile = plan

	repo := &countingRepo{}
	a, err := app.New(context.Background(), cfg,
		app.WithLogger(logger.NewNope()),
		app.WithRepository(repo),
	)
	require.NoError(t, err)
	startApp(t, a)

	require.EqualValues(t, 2, repo.lists.Load())
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	t.Run("unknown cache backend", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig()
		cfg.Cache.Backend = "memcached"

		_, err := app.New(context.Background(), cfg,
			app.WithLogger(logger.NewNope()),
			app.WithRepository(&countingRepo{}),
		)
		require.ErrorIs(t, err, config.ErrInvalidConfig)
	})

	t.Run("missing warmup file", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig()
		cfg.Listing.WarmupFile = filepath.Join(t.TempDir(), "missing.yaml")

		_, err := app.New(context.Background(), cfg,
			app.WithLogger(logger.NewNope()),
			app.WithRepository(&countingRepo{}),
		)
		require.Error(t, err)
	})

	t.Run("unknown listing source", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig()
		cfg.Listing.Source = "mysql"

		_, err := app.New(context.Background(), cfg, app.WithLogger(logger.NewNope()))
		require.ErrorIs(t, err, config.ErrInvalidConfig)
	})
}
