package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/estate/pkg/cache"
	"github.com/dmitrymomot/estate/pkg/logger"
)

func TestMetrics_Observe(t *testing.T) {
	t.Parallel()

	m, err := New()
	require.NoError(t, err)

	var obs cache.Observer = m
	obs.Observe("listings", cache.EventHit, "k")
	obs.Observe("listings", cache.EventHit, "k")
	obs.Observe("listings", cache.EventStale, "k")

	require.InDelta(t, 2, testutil.ToFloat64(m.cacheEvents.WithLabelValues("listings", "hit")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.cacheEvents.WithLabelValues("listings", "stale")), 0)

	m.ObserveRequest(http.MethodGet, "/api/properties", http.StatusOK, 30*time.Millisecond)
	require.InDelta(t, 1, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/properties", "200")), 0)
}

func TestMetrics_WatchCaches(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m, err := New()
	require.NoError(t, err)

	c := cache.New(cache.NewMemory[string](), cache.WithName("listings"), cache.WithCleanupInterval(0))
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, c.Set(ctx, "a", "x", cache.Options{}))
	require.NoError(t, c.Set(ctx, "b", "y", cache.Options{}))

	require.NoError(t, m.WatchCaches(cache.NewRegistry(c), logger.NewNope()))

	expected := `
# HELP estate_cache_entries Entries currently stored per cache.
# TYPE estate_cache_entries gauge
estate_cache_entries{cache="listings"} 2
`
	require.NoError(t, testutil.GatherAndCompare(m.Gatherer(), strings.NewReader(expected), "estate_cache_entries"))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "estate_cache_size_bytes")
}

func TestCacheCollector_ReusesSnapshot(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := cache.New(cache.NewMemory[string](), cache.WithName("listings"), cache.WithCleanupInterval(0))
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, c.Set(ctx, "a", "x", cache.Options{}))

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	collector := newCacheCollector(cache.NewRegistry(c), logger.NewNope())
	collector.now = func() time.Time { return now }

	entries := func(n int) string {
		return "\n# HELP estate_cache_entries Entries currently stored per cache.\n" +
			"# TYPE estate_cache_entries gauge\n" +
			`estate_cache_entries{cache="listings"} ` + strconv.Itoa(n) + "\n"
	}

	require.NoError(t, testutil.CollectAndCompare(collector, strings.NewReader(entries(1)), "estate_cache_entries"))

	require.NoError(t, c.Set(ctx, "b", "y", cache.Options{}))
	require.NoError(t, testutil.CollectAndCompare(collector, strings.NewReader(entries(1)), "estate_cache_entries"))

	now = now.Add(statsRefreshInterval)
	require.NoError(t, testutil.CollectAndCompare(collector, strings.NewReader(entries(2)), "estate_cache_entries"))
}
