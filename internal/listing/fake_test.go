package listing_test

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/estate/internal/listing"
)

// fakeRepo is an in-memory Repository with call counters and error injection.
type fakeRepo struct {
	mu    sync.Mutex
	props map[uuid.UUID]listing.Property
	err   error
	delay time.Duration

	lists atomic.Int32
	gets  atomic.Int32
}

func newFakeRepo(props ...listing.Property) *fakeRepo {
	r := &fakeRepo{props: make(map[uuid.UUID]listing.Property)}
	for _, p := range props {
		r.props[p.ID] = p
	}
	return r
}

func (r *fakeRepo) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *fakeRepo) check() error {
	r.mu.Lock()
	err, delay := r.err, r.delay
	r.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	return err
}

func (r *fakeRepo) List(_ context.Context, f listing.Filter) ([]listing.Property, error) {
	r.lists.Add(1)
	if err := r.check(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	out := []listing.Property{}
	for _, p := range r.props {
		if f.City != "" && !strings.EqualFold(p.City, f.City) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *fakeRepo) Get(_ context.Context, id uuid.UUID) (listing.Property, error) {
	r.gets.Add(1)
	if err := r.check(); err != nil {
		return listing.Property{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.props[id]
	if !ok {
		return listing.Property{}, listing.ErrNotFound
	}
	return p, nil
}

func (r *fakeRepo) Create(_ context.Context, p listing.Property) (listing.Property, error) {
	if err := r.check(); err != nil {
		return listing.Property{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.props[p.ID] = p
	return p, nil
}

func (r *fakeRepo) Update(_ context.Context, id uuid.UUID, fn func(p *listing.Property) error) (listing.Property, error) {
	if err := r.check(); err != nil {
		return listing.Property{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.props[id]
	if !ok {
		return listing.Property{}, listing.ErrNotFound
	}
	if err := fn(&p); err != nil {
		return listing.Property{}, err
	}
	r.props[id] = p
	return p, nil
}

func (r *fakeRepo) Delete(_ context.Context, id uuid.UUID) error {
	if err := r.check(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.props[id]; !ok {
		return listing.ErrNotFound
	}
	delete(r.props, id)
	return nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
