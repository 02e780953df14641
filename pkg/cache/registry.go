package cache

import (
	"context"
	"errors"
	"slices"
	"sync"
)

// Maintainer is the type-independent maintenance surface of a ReadThrough cache.
type Maintainer interface {
	Name() string
	Clear(ctx context.Context, key string) error
	ClearAll(ctx context.Context) error
	ClearExpired(ctx context.Context) (int, error)
	ClearPattern(ctx context.Context, src string) (int, error)
	ClearMatching(ctx context.Context, m Matcher) (int, error)
	Stats(ctx context.Context) (Stats, error)
	Close() error
}

var _ Maintainer = (*ReadThrough[any])(nil)

// Registry groups caches of different value types by name so they can be
// inspected and invalidated together.
type Registry struct {
	caches map[string]Maintainer
	mu     sync.RWMutex
}

// NewRegistry creates a registry holding the given caches.
func NewRegistry(caches ...Maintainer) *Registry {
	r := &Registry{caches: make(map[string]Maintainer, len(caches))}
	for _, c := range caches {
		r.Register(c)
	}
	return r
}

// Register adds c under c.Name(), replacing any cache with the same name.
func (r *Registry) Register(c Maintainer) {
	if c == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.caches[c.Name()] = c
}

// Names returns the registered cache names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.caches))
	for name := range r.caches {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Lookup returns the cache registered under name.
func (r *Registry) Lookup(name string) (Maintainer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.caches[name]
	if !ok {
		return nil, ErrUnknownCache
	}
	return c, nil
}

// ClearAll empties every registered cache.
func (r *Registry) ClearAll(ctx context.Context) error {
	var errs []error
	for _, c := range r.snapshot() {
		if err := c.ClearAll(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ClearExpired removes expired entries from every registered cache.
func (r *Registry) ClearExpired(ctx context.Context) (int, error) {
	return r.fanOut(func(c Maintainer) (int, error) {
		return c.ClearExpired(ctx)
	})
}

// ClearPattern removes keys matching the regular expression src from every
// registered cache.
func (r *Registry) ClearPattern(ctx context.Context, src string) (int, error) {
	m, err := ParsePattern(src)
	if err != nil {
		return 0, err
	}
	return r.ClearMatching(ctx, m)
}

// ClearMatching removes keys selected by m from every registered cache.
func (r *Registry) ClearMatching(ctx context.Context, m Matcher) (int, error) {
	return r.fanOut(func(c Maintainer) (int, error) {
		return c.ClearMatching(ctx, m)
	})
}

// Stats returns a snapshot per registered cache.
func (r *Registry) Stats(ctx context.Context) (map[string]Stats, error) {
	out := make(map[string]Stats)
	var errs []error
	for _, c := range r.snapshot() {
		st, err := c.Stats(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out[c.Name()] = st
	}
	return out, errors.Join(errs...)
}

// Close closes every registered cache.
func (r *Registry) Close() error {
	var errs []error
	for _, c := range r.snapshot() {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) fanOut(fn func(c Maintainer) (int, error)) (int, error) {
	total := 0
	var errs []error
	for _, c := range r.snapshot() {
		n, err := fn(c)
		total += n
		if err != nil {
			errs = append(errs, err)
		}
	}
	return total, errors.Join(errs...)
}

func (r *Registry) snapshot() []Maintainer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Maintainer, 0, len(r.caches))
	for _, c := range r.caches {
		out = append(out, c)
	}
	return out
}
