// Package httpapi exposes listings, cache administration, health probes and
// metrics over HTTP.
package httpapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/estate/internal/listing"
	"github.com/dmitrymomot/estate/internal/metrics"
	"github.com/dmitrymomot/estate/pkg/cache"
	"github.com/dmitrymomot/estate/pkg/health"
)

// Listings is the listing service surface served over HTTP.
type Listings interface {
	List(ctx context.Context, f listing.Filter, ro listing.ReadOptions) ([]listing.Property, error)
	Get(ctx context.Context, id uuid.UUID, ro listing.ReadOptions) (listing.Property, error)
	Create(ctx context.Context, in listing.CreateInput) (listing.Property, error)
	Update(ctx context.Context, id uuid.UUID, in listing.UpdateInput) (listing.Property, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

var _ Listings = (*listing.Service)(nil)

// Deps are the router's collaborators. Metrics and Checks are optional.
type Deps struct {
	Listings Listings
	Caches   *cache.Registry
	Metrics  *metrics.Metrics
	Checks   health.Checks
	Logger   *slog.Logger
}

type server struct {
	listings Listings
	caches   *cache.Registry
	metrics  *metrics.Metrics
	log      *slog.Logger
}

// NewRouter builds the HTTP handler.
func NewRouter(d Deps) http.Handler {
	s := &server{
		listings: d.Listings,
		caches:   d.Caches,
		metrics:  d.Metrics,
		log:      d.Logger,
	}
	if s.log == nil {
		s.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	r := chi.NewRouter()
	r.Use(requestID, s.accessLog, s.recoverer)

	r.Get("/health/live", health.LivenessHandler())
	r.Get("/health/ready", health.ReadinessHandler(d.Checks, health.WithLogger(s.log)))
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route("/api/properties", func(r chi.Router) {
		r.Get("/", s.handle(s.listProperties))
		r.Post("/", s.handle(s.createProperty))
		r.Get("/{id}", s.handle(s.getProperty))
		r.Put("/{id}", s.handle(s.updateProperty))
		r.Delete("/{id}", s.handle(s.deleteProperty))
	})

	r.Route("/admin/cache", func(r chi.Router) {
		r.Get("/", s.handle(s.cacheStats))
		r.Delete("/", s.handle(s.clearCaches))
		r.Delete("/expired", s.handle(s.clearExpired))
		r.Delete("/{cache}/keys/{key}", s.handle(s.clearKey))
	})

	r.NotFound(s.handle(func(http.ResponseWriter, *http.Request) error {
		return errNotFound("route not found", nil)
	}))
	r.MethodNotAllowed(s.handle(func(http.ResponseWriter, *http.Request) error {
		return newHTTPError(http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed", nil)
	}))

	return r
}
