package listing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/estate/pkg/cache"
	"github.com/dmitrymomot/estate/pkg/sanitizer"
)

const (
	DefaultListTTL      = 5 * time.Minute
	DefaultItemTTL      = 10 * time.Minute
	DefaultFetchTimeout = 8 * time.Second
)

// ReadOptions controls a single cached read.
type ReadOptions struct {
	// ForceRefresh bypasses the cached value and reloads from the repository.
	ForceRefresh bool
}

// Service is the cached read and invalidating write path for properties.
type Service struct {
	repo         Repository
	lists        *cache.ReadThrough[[]Property]
	items        *cache.ReadThrough[Property]
	listTTL      time.Duration
	itemTTL      time.Duration
	fetchTimeout time.Duration
	now          func() time.Time
	log          *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithListTTL sets how long a listing query result is served from cache.
func WithListTTL(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.listTTL = d
		}
	}
}

// WithItemTTL sets how long a single property is served from cache.
func WithItemTTL(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.itemTTL = d
		}
	}
}

// WithFetchTimeout bounds every repository read. On timeout the read fails
// with ErrFetchTimeout and the cache may fall back to a stale entry.
func WithFetchTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithClock sets the time source for created and updated timestamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// NewService creates a Service reading through the given caches.
func NewService(repo Repository, lists *cache.ReadThrough[[]Property], items *cache.ReadThrough[Property], opts ...ServiceOption) *Service {
	s := &Service{
		repo:         repo,
		lists:        lists,
		items:        items,
		listTTL:      DefaultListTTL,
		itemTTL:      DefaultItemTTL,
		fetchTimeout: DefaultFetchTimeout,
		now:          time.Now,
		log:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the properties matching f.
func (s *Service) List(ctx context.Context, f Filter, ro ReadOptions) ([]Property, error) {
	f = f.Normalize()
	if err := f.Validate(); err != nil {
		return nil, err
	}

	return s.lists.Get(ctx, f.CacheKey(), s.listFetcher(f), cache.Options{
		TTL:          s.listTTL,
		ForceRefresh: ro.ForceRefresh,
	})
}

// Get returns a single property. ErrNotFound is never cached.
func (s *Service) Get(ctx context.Context, id uuid.UUID, ro ReadOptions) (Property, error) {
	return s.items.Get(ctx, ItemKey(id), s.itemFetcher(id), cache.Options{
		TTL:          s.itemTTL,
		ForceRefresh: ro.ForceRefresh,
	})
}

// Create validates and stores a new property, then drops every cached list.
func (s *Service) Create(ctx context.Context, in CreateInput) (Property, error) {
	if err := validateStruct(in); err != nil {
		return Property{}, err
	}

	p := in.property(uuid.New(), s.now().UTC())
	if err := prepare(&p); err != nil {
		return Property{}, err
	}

	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return Property{}, err
	}
	present(&created)

	s.invalidateLists(ctx)
	if err := s.items.Set(ctx, ItemKey(created.ID), created, cache.Options{TTL: s.itemTTL}); err != nil {
		s.log.WarnContext(ctx, "failed to cache created property",
			slog.String("id", created.ID.String()),
			slog.String("error", err.Error()),
		)
	}

	return created, nil
}

// Update applies a partial update, then drops every cached list and the
// cached copy of the property.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (Property, error) {
	if err := validateStruct(in); err != nil {
		return Property{}, err
	}

	updated, err := s.repo.Update(ctx, id, func(p *Property) error {
		in.apply(p)
		p.UpdatedAt = s.now().UTC()
		return prepare(p)
	})
	if err != nil {
		return Property{}, err
	}
	present(&updated)

	s.invalidate(ctx, id)
	return updated, nil
}

// Delete removes a property, then drops every cached list and the cached
// copy of the property.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

// RefreshIfStale reloads the cached result of f when the cache reports it
// stale for maxAge (missing, or older than half of maxAge). It reports
// whether a reload happened.
func (s *Service) RefreshIfStale(ctx context.Context, f Filter, maxAge time.Duration) (bool, error) {
	f = f.Normalize()
	if err := f.Validate(); err != nil {
		return false, err
	}

	key := f.CacheKey()
	if !s.lists.IsStale(ctx, key, maxAge) {
		return false, nil
	}

	_, err := s.lists.Refresh(ctx, key, s.listFetcher(f), cache.Options{TTL: s.listTTL})
	return true, err
}

// Warm loads f into the list cache unless a fresh result is already there.
func (s *Service) Warm(ctx context.Context, f Filter) error {
	_, err := s.List(ctx, f, ReadOptions{})
	return err
}

func (s *Service) listFetcher(f Filter) cache.FetchFunc[[]Property] {
	return func(ctx context.Context) ([]Property, error) {
		props, err := withTimeout(ctx, s.fetchTimeout, func(ctx context.Context) ([]Property, error) {
			return s.repo.List(ctx, f)
		})
		if err != nil {
			return nil, err
		}
		for i := range props {
			present(&props[i])
		}
		return props, nil
	}
}

func (s *Service) itemFetcher(id uuid.UUID) cache.FetchFunc[Property] {
	return func(ctx context.Context) (Property, error) {
		p, err := withTimeout(ctx, s.fetchTimeout, func(ctx context.Context) (Property, error) {
			return s.repo.Get(ctx, id)
		})
		if err != nil {
			return Property{}, err
		}
		present(&p)
		return p, nil
	}
}

func (s *Service) invalidate(ctx context.Context, id uuid.UUID) {
	s.invalidateLists(ctx)
	if err := s.items.Clear(ctx, ItemKey(id)); err != nil {
		s.log.WarnContext(ctx, "failed to invalidate cached property",
			slog.String("id", id.String()),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Service) invalidateLists(ctx context.Context) {
	n, err := s.lists.ClearMatching(ctx, cache.Namespace(ListNamespace))
	if err != nil {
		s.log.WarnContext(ctx, "failed to invalidate cached listings", slog.String("error", err.Error()))
		return
	}
	s.log.DebugContext(ctx, "invalidated cached listings", slog.Int("count", n))
}

// withTimeout runs fn and gives up after d even if fn ignores its context.
func withTimeout[T any](ctx context.Context, d time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{v: v, err: err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, errors.Join(ErrFetchTimeout, ctx.Err())
		}
		return zero, ctx.Err()
	}
}

// prepare cleans user text and renders the description.
func prepare(p *Property) error {
	p.Title = sanitizer.Text(p.Title)
	p.City = sanitizer.Text(p.City)
	p.Address = sanitizer.Text(p.Address)

	html, err := sanitizer.Markdown(p.Description)
	if err != nil {
		return errors.Join(ErrInvalidInput, err)
	}
	p.DescriptionHTML = html

	if p.Title == "" || p.City == "" {
		return errors.Join(ErrInvalidInput, errors.New("title and city must contain text"))
	}
	return nil
}

// present fills computed fields.
func present(p *Property) {
	if display, err := FormatPrice(p.Price, p.Currency); err == nil {
		p.PriceDisplay = display
	}
}
