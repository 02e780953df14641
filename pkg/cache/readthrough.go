package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// FetchFunc computes the value for a key on a cache miss.
type FetchFunc[V any] func(ctx context.Context) (V, error)

// Stats is a diagnostic snapshot of a cache.
type Stats struct {
	// Entries lists every stored key, sorted.
	Entries []string `json:"entries"`

	// Size is the number of stored entries.
	Size int `json:"size"`

	// MemoryUsage approximates the stored bytes as the sum of JSON-encoded entry sizes.
	MemoryUsage int `json:"memory_usage"`
}

// ReadThrough is a keyed get-or-fetch cache with TTL expiry, stale-on-error
// fallback, version tagging and predicate-based invalidation.
//
// A fresh entry is served while it is younger than MaxAge, not past its TTL
// and tagged with the requested version. Otherwise the fetch function runs;
// when it fails, an entry with the requested version younger than 2*MaxAge is
// served instead of the error.
type ReadThrough[V any] struct {
	store     Store[V]
	opts      *options
	group     singleflight.Group
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a read-through cache on top of store and starts its janitor
// unless WithCleanupInterval(0) is given.
//
// Example:
//
//	c := cache.New(cache.NewMemory[[]Property](),
//	    cache.WithName("listings"),
//	    cache.WithDefaults(cache.Options{TTL: 5 * time.Minute}),
//	)
//	defer c.Close()
//
//	props, err := c.Get(ctx, filter.CacheKey(), func(ctx context.Context) ([]Property, error) {
//	    return repo.List(ctx, filter)
//	}, cache.Options{})
func New[V any](store Store[V], opts ...Option) *ReadThrough[V] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	c := &ReadThrough[V]{
		store: store,
		opts:  o,
		done:  make(chan struct{}),
	}

	if o.cleanupInterval > 0 {
		go c.janitor()
	}

	return c
}

// Name returns the cache label set with WithName.
func (c *ReadThrough[V]) Name() string {
	return c.opts.name
}

// Get returns the cached value for key, or calls fetch and caches its result.
//
// A fetch error is returned unchanged unless a stale entry can be served.
func (c *ReadThrough[V]) Get(ctx context.Context, key string, fetch FetchFunc[V], o Options) (V, error) {
	var zero V
	if key == "" {
		return zero, ErrEmptyKey
	}

	o = o.resolve(c.opts.defaults)

	if !o.ForceRefresh {
		if v, ok := c.lookup(ctx, key, o); ok {
			c.observe(EventHit, key)
			return v, nil
		}
	}

	c.observe(EventMiss, key)

	v, err := c.fetch(ctx, key, fetch, o)
	if err == nil {
		return v, nil
	}

	c.observe(EventFetchError, key)

	if stale, age, ok := c.stale(ctx, key, o); ok {
		c.observe(EventStale, key)
		c.opts.logger.WarnContext(ctx, "serving stale cache entry",
			slog.String("cache", c.opts.name),
			slog.String("key", key),
			slog.Duration("age", age),
			slog.String("error", err.Error()),
		)
		return stale, nil
	}

	return zero, err
}

// Refresh calls fetch unconditionally, stores the result and returns it.
// Use after IsStale reports the entry should be renewed.
func (c *ReadThrough[V]) Refresh(ctx context.Context, key string, fetch FetchFunc[V], o Options) (V, error) {
	if key == "" {
		var zero V
		return zero, ErrEmptyKey
	}

	o = o.resolve(c.opts.defaults)
	c.observe(EventMiss, key)

	v, err := c.fetch(ctx, key, fetch, o)
	if err != nil {
		c.observe(EventFetchError, key)
	}
	return v, err
}

// Set stores value under key as if it had just been fetched.
func (c *ReadThrough[V]) Set(ctx context.Context, key string, value V, o Options) error {
	if key == "" {
		return ErrEmptyKey
	}

	o = o.resolve(c.opts.defaults)
	return c.save(ctx, key, value, o)
}

// IsStale reports whether key has no entry or its entry is older than maxAge/2.
// A non-positive maxAge uses the cache default.
func (c *ReadThrough[V]) IsStale(ctx context.Context, key string, maxAge time.Duration) bool {
	if maxAge <= 0 {
		maxAge = c.opts.defaults.MaxAge
	}

	e, ok, err := c.store.Load(ctx, key)
	if err != nil {
		c.logStoreError(ctx, "load", key, err)
		return true
	}
	if !ok {
		return true
	}

	return e.age(c.opts.now()) > maxAge/2
}

// Clear removes the entry for key. Missing keys are not an error.
func (c *ReadThrough[V]) Clear(ctx context.Context, key string) error {
	return c.store.Delete(ctx, key)
}

// ClearAll removes every entry.
func (c *ReadThrough[V]) ClearAll(ctx context.Context) error {
	return c.store.Clear(ctx)
}

// ClearExpired removes every entry past its TTL and reports how many were removed.
func (c *ReadThrough[V]) ClearExpired(ctx context.Context) (int, error) {
	now := c.opts.now()
	return c.deleteWhere(ctx, func(_ string, e Entry[V]) bool {
		return e.ExpiresAt.Before(now)
	})
}

// ClearPattern removes every entry whose key matches the regular expression src.
func (c *ReadThrough[V]) ClearPattern(ctx context.Context, src string) (int, error) {
	m, err := ParsePattern(src)
	if err != nil {
		return 0, err
	}
	return c.ClearMatching(ctx, m)
}

// ClearMatching removes every entry whose key is selected by m.
func (c *ReadThrough[V]) ClearMatching(ctx context.Context, m Matcher) (int, error) {
	if m == nil {
		return 0, nil
	}
	return c.deleteWhere(ctx, func(key string, _ Entry[V]) bool {
		return m(key)
	})
}

// Stats returns a snapshot of the stored keys and their approximate size.
func (c *ReadThrough[V]) Stats(ctx context.Context) (Stats, error) {
	st := Stats{Entries: []string{}}

	err := c.store.Range(ctx, func(key string, e Entry[V]) bool {
		st.Entries = append(st.Entries, key)
		if data, err := json.Marshal(e); err == nil {
			st.MemoryUsage += len(data)
		}
		return true
	})
	if err != nil {
		return Stats{}, err
	}

	slices.Sort(st.Entries)
	st.Size = len(st.Entries)

	return st, nil
}

// Close stops the janitor and closes the store. Close is idempotent.
func (c *ReadThrough[V]) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.store.Close()
	})
	return err
}

// lookup returns the entry's data when it can be served on the primary path.
// An entry with another version is removed.
func (c *ReadThrough[V]) lookup(ctx context.Context, key string, o Options) (V, bool) {
	var zero V

	e, ok, err := c.store.Load(ctx, key)
	if err != nil {
		c.logStoreError(ctx, "load", key, err)
		return zero, false
	}
	if !ok {
		return zero, false
	}

	if e.Version != o.Version {
		if err := c.store.Delete(ctx, key); err != nil {
			c.logStoreError(ctx, "delete", key, err)
		}
		return zero, false
	}

	if !e.fresh(c.opts.now(), o) {
		return zero, false
	}

	return e.Data, true
}

// stale returns the entry's data when it can be served after a failed fetch.
func (c *ReadThrough[V]) stale(ctx context.Context, key string, o Options) (V, time.Duration, bool) {
	var zero V

	e, ok, err := c.store.Load(ctx, key)
	if err != nil {
		c.logStoreError(ctx, "load", key, err)
		return zero, 0, false
	}

	now := c.opts.now()
	if !ok || !e.usableStale(now, o) {
		return zero, 0, false
	}

	return e.Data, e.age(now), true
}

// fetch runs fn and stores its result, coalescing concurrent calls per key
// and version when singleflight is enabled. A shared fetch is detached from
// the cancellation of the caller that started it; every waiter still returns
// as soon as its own ctx is done.
func (c *ReadThrough[V]) fetch(ctx context.Context, key string, fn FetchFunc[V], o Options) (V, error) {
	if !c.opts.singleflight {
		return c.fetchAndStore(ctx, key, fn, o)
	}

	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key+"\x00"+o.Version, func() (any, error) {
		return c.fetchAndStore(shared, key, fn, o)
	})

	var zero V
	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		val, _ := res.Val.(V)
		return val, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (c *ReadThrough[V]) fetchAndStore(ctx context.Context, key string, fn FetchFunc[V], o Options) (V, error) {
	v, err := fn(ctx)
	if err != nil {
		return v, err
	}

	// A failed write must not hide a successful fetch.
	if err := c.save(ctx, key, v, o); err != nil {
		c.logStoreError(ctx, "save", key, err)
	}

	return v, nil
}

func (c *ReadThrough[V]) save(ctx context.Context, key string, v V, o Options) error {
	now := c.opts.now()
	e := Entry[V]{
		Data:      v,
		Timestamp: now,
		ExpiresAt: now.Add(o.TTL),
		Version:   o.Version,
	}
	return c.store.Save(ctx, key, e, max(2*o.MaxAge, o.TTL))
}

func (c *ReadThrough[V]) deleteWhere(ctx context.Context, fn func(key string, e Entry[V]) bool) (int, error) {
	var removed []string
	n, err := c.store.DeleteFunc(ctx, func(key string, e Entry[V]) bool {
		if fn(key, e) {
			removed = append(removed, key)
			return true
		}
		return false
	})
	for _, key := range removed {
		c.observe(EventRemoved, key)
	}
	return n, err
}

// janitor periodically removes expired entries.
func (c *ReadThrough[V]) janitor() {
	ticker := time.NewTicker(c.opts.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			ctx := context.Background()
			n, err := c.ClearExpired(ctx)
			if err != nil {
				c.logStoreError(ctx, "clear expired", "", err)
				continue
			}
			if n > 0 {
				c.opts.logger.DebugContext(ctx, "expired cache entries removed",
					slog.String("cache", c.opts.name),
					slog.Int("count", n),
				)
			}
		}
	}
}

func (c *ReadThrough[V]) observe(ev Event, key string) {
	if c.opts.observer != nil {
		c.opts.observer.Observe(c.opts.name, ev, key)
	}
}

func (c *ReadThrough[V]) logStoreError(ctx context.Context, op, key string, err error) {
	c.opts.logger.WarnContext(ctx, "cache store error",
		slog.String("cache", c.opts.name),
		slog.String("op", op),
		slog.String("key", key),
		slog.String("error", err.Error()),
	)
}
