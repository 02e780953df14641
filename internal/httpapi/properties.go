package httpapi

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/estate/internal/listing"
)

type listResponse struct {
	Items  []listing.Property `json:"items"`
	Count  int                `json:"count"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}

func (s *server) listProperties(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()

	f, err := parseFilter(q)
	if err != nil {
		return err
	}

	props, err := s.listings.List(r.Context(), f, readOptions(q))
	if err != nil {
		return err
	}

	f = f.Normalize()
	writeJSON(w, http.StatusOK, listResponse{
		Items:  props,
		Count:  len(props),
		Limit:  f.Limit,
		Offset: f.Offset,
	})
	return nil
}

func (s *server) getProperty(w http.ResponseWriter, r *http.Request) error {
	id, err := propertyID(r)
	if err != nil {
		return err
	}

	p, err := s.listings.Get(r.Context(), id, readOptions(r.URL.Query()))
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, p)
	return nil
}

func (s *server) createProperty(w http.ResponseWriter, r *http.Request) error {
	var in listing.CreateInput
	if err := decodeJSON(w, r, &in); err != nil {
		return err
	}

	p, err := s.listings.Create(r.Context(), in)
	if err != nil {
		return err
	}

	w.Header().Set("Location", "/api/properties/"+p.ID.String())
	writeJSON(w, http.StatusCreated, p)
	return nil
}

func (s *server) updateProperty(w http.ResponseWriter, r *http.Request) error {
	id, err := propertyID(r)
	if err != nil {
		return err
	}

	var in listing.UpdateInput
	if err := decodeJSON(w, r, &in); err != nil {
		return err
	}

	p, err := s.listings.Update(r.Context(), id, in)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, p)
	return nil
}

func (s *server) deleteProperty(w http.ResponseWriter, r *http.Request) error {
	id, err := propertyID(r)
	if err != nil {
		return err
	}

	if err := s.listings.Delete(r.Context(), id); err != nil {
		return err
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

func propertyID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, errBadRequest("invalid property id", err)
	}
	return id, nil
}

func readOptions(q url.Values) listing.ReadOptions {
	refresh, _ := strconv.ParseBool(q.Get("refresh"))
	return listing.ReadOptions{ForceRefresh: refresh}
}

// parseFilter reads listing filters from query parameters.
// Unknown parameters are ignored; malformed numbers are rejected.
func parseFilter(q url.Values) (listing.Filter, error) {
	f := listing.Filter{
		City:   q.Get("city"),
		Kind:   listing.Kind(q.Get("kind")),
		Status: listing.Status(q.Get("status")),
		Search: q.Get("q"),
	}

	var err error
	if f.MinPrice, err = parseInt64(q, "min_price"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = parseInt64(q, "max_price"); err != nil {
		return f, err
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"min_bedrooms", &f.MinBedrooms},
		{"limit", &f.Limit},
		{"offset", &f.Offset},
	}
	for _, p := range ints {
		v, err := parseInt64(q, p.name)
		if err != nil {
			return f, err
		}
		*p.dst = int(v)
	}

	if v := q.Get("featured"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, errBadRequest("featured must be a boolean", err)
		}
		f.Featured = &b
	}

	if v := q.Get("developer_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return f, errBadRequest("developer_id must be a UUID", err)
		}
		f.DeveloperID = id
	}

	return f, nil
}

func parseInt64(q url.Values, name string) (int64, error) {
	v := q.Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, errBadRequest(name+" must be an integer", err)
	}
	return n, nil
}
