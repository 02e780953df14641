// Package metrics exposes cache and HTTP metrics in the Prometheus format.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/estate/pkg/cache"
)

const namespace = "estate"

// ErrRegister is returned when a collector cannot be added to the registry.
var ErrRegister = errors.New("metrics: failed to register collector")

// Metrics owns a private Prometheus registry.
type Metrics struct {
	registry     *prometheus.Registry
	cacheEvents  *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with the Go and process collectors.
func New() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_events_total",
			Help:      "Cache lookups by outcome.",
		}, []string{"cache", "event"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	for _, c := range []prometheus.Collector{
		m.cacheEvents,
		m.httpRequests,
		m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := m.registry.Register(c); err != nil {
			return nil, errors.Join(ErrRegister, err)
		}
	}

	return m, nil
}

// Observe counts a cache event. It satisfies cache.Observer.
func (m *Metrics) Observe(cacheName string, ev cache.Event, _ string) {
	m.cacheEvents.WithLabelValues(cacheName, ev.String()).Inc()
}

// ObserveRequest records a finished HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// WatchCaches exports entry count and approximate size per cache in r,
// read on every scrape.
func (m *Metrics) WatchCaches(r *cache.Registry, log *slog.Logger) error {
	if err := m.registry.Register(newCacheCollector(r, log)); err != nil {
		return errors.Join(ErrRegister, err)
	}
	return nil
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Gatherer exposes the registry to tests and embedders.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

const (
	scrapeTimeout = 5 * time.Second

	// statsRefreshInterval bounds how often a scrape walks the caches.
	// Stats encodes every entry, so scrapes in between reuse the last snapshot.
	statsRefreshInterval = 30 * time.Second
)

type cacheCollector struct {
	caches  *cache.Registry
	log     *slog.Logger
	entries *prometheus.Desc
	bytes   *prometheus.Desc

	every time.Duration
	now   func() time.Time

	mu       sync.Mutex
	taken    time.Time
	snapshot map[string]cache.Stats
}

func newCacheCollector(r *cache.Registry, log *slog.Logger) *cacheCollector {
	return &cacheCollector{
		caches: r,
		log:    log,
		entries: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "entries"),
			"Entries currently stored per cache.",
			[]string{"cache"}, nil,
		),
		bytes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "size_bytes"),
			"Approximate encoded size of stored entries per cache.",
			[]string{"cache"}, nil,
		),
		every: statsRefreshInterval,
		now:   time.Now,
	}
}

func (c *cacheCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.entries
	ch <- c.bytes
}

func (c *cacheCollector) Collect(ch chan<- prometheus.Metric) {
	for name, st := range c.stats() {
		ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(st.Size), name)
		ch <- prometheus.MustNewConstMetric(c.bytes, prometheus.GaugeValue, float64(st.MemoryUsage), name)
	}
}

// stats returns the last snapshot, taking a new one when it is older than c.every.
func (c *cacheCollector) stats() map[string]cache.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.snapshot != nil && now.Sub(c.taken) < c.every {
		return c.snapshot
	}

	ctx, cancel := context.WithTimeout(context.Background(), scrapeTimeout)
	defer cancel()

	stats, err := c.caches.Stats(ctx)
	if err != nil && c.log != nil {
		c.log.Warn("failed to collect cache stats", slog.String("error", err.Error()))
	}

	c.snapshot, c.taken = stats, now
	return stats
}
