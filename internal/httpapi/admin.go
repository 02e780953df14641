package httpapi

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/estate/pkg/cache"
)

type statsResponse struct {
	Caches map[string]cache.Stats `json:"caches"`
}

type removedResponse struct {
	Removed int `json:"removed"`
}

func (s *server) cacheStats(w http.ResponseWriter, r *http.Request) error {
	stats, err := s.caches.Stats(r.Context())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, statsResponse{Caches: stats})
	return nil
}

// clearCaches drops entries from every cache: keys matching ?pattern= (a
// regular expression), keys starting with ?prefix=, or everything.
func (s *server) clearCaches(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	pattern, prefix := q.Get("pattern"), q.Get("prefix")

	if pattern != "" && prefix != "" {
		return errBadRequest("use either pattern or prefix", nil)
	}

	var (
		n   int
		err error
	)
	switch {
	case pattern != "":
		n, err = s.caches.ClearPattern(r.Context(), pattern)
	case prefix != "":
		n, err = s.caches.ClearMatching(r.Context(), cache.Prefix(prefix))
	default:
		if err := s.caches.ClearAll(r.Context()); err != nil {
			return err
		}
		w.WriteHeader(http.StatusNoContent)
		return nil
	}
	if err != nil {
		return err
	}

	s.log.InfoContext(r.Context(), "cache entries cleared",
		slog.String("pattern", pattern),
		slog.String("prefix", prefix),
		slog.Int("removed", n),
	)
	writeJSON(w, http.StatusOK, removedResponse{Removed: n})
	return nil
}

func (s *server) clearExpired(w http.ResponseWriter, r *http.Request) error {
	n, err := s.caches.ClearExpired(r.Context())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, removedResponse{Removed: n})
	return nil
}

func (s *server) clearKey(w http.ResponseWriter, r *http.Request) error {
	c, err := s.caches.Lookup(chi.URLParam(r, "cache"))
	if err != nil {
		return err
	}

	key, err := url.PathUnescape(chi.URLParam(r, "key"))
	if err != nil {
		return errBadRequest("invalid key", err)
	}

	if err := c.Clear(r.Context(), key); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
