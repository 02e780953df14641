package listing

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"
)

const supabaseTable = "properties"

// SupabaseRepository reads and writes the properties table through the
// Supabase REST API. The client does not take a context, so cancellation is
// only checked before each request.
type SupabaseRepository struct {
	client *supabase.Client
}

// NewSupabaseRepository creates a client for the project at url.
func NewSupabaseRepository(url, key string) (*SupabaseRepository, error) {
	client, err := supabase.NewClient(url, key, nil)
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return &SupabaseRepository{client: client}, nil
}

// supabaseRow is the writable column set; computed fields stay out of the payload.
type supabaseRow struct {
	ID              uuid.UUID `json:"id"`
	DeveloperID     uuid.UUID `json:"developer_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	DescriptionHTML string    `json:"description_html"`
	Kind            Kind      `json:"kind"`
	Status          Status    `json:"status"`
	City            string    `json:"city"`
	Address         string    `json:"address"`
	Price           int64     `json:"price"`
	Currency        string    `json:"currency"`
	Bedrooms        int       `json:"bedrooms"`
	Bathrooms       int       `json:"bathrooms"`
	AreaSqm         int       `json:"area_sqm"`
	Images          []string  `json:"images"`
	Featured        bool      `json:"featured"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toSupabaseRow(p Property) supabaseRow {
	return supabaseRow{
		ID:              p.ID,
		DeveloperID:     p.DeveloperID,
		Title:           p.Title,
		Description:     p.Description,
		DescriptionHTML: p.DescriptionHTML,
		Kind:            p.Kind,
		Status:          p.Status,
		City:            p.City,
		Address:         p.Address,
		Price:           p.Price,
		Currency:        p.Currency,
		Bedrooms:        p.Bedrooms,
		Bathrooms:       p.Bathrooms,
		AreaSqm:         p.AreaSqm,
		Images:          p.Images,
		Featured:        p.Featured,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func (r *SupabaseRepository) List(ctx context.Context, f Filter) ([]Property, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f = f.Normalize()

	q := r.client.From(supabaseTable).Select("*", "", false)
	if f.City != "" {
		q = q.Ilike("city", escapeLike(f.City))
	}
	if f.Kind != "" {
		q = q.Eq("kind", string(f.Kind))
	}
	if f.Status != "" {
		q = q.Eq("status", string(f.Status))
	}
	if f.MinPrice > 0 {
		q = q.Gte("price", strconv.FormatInt(f.MinPrice, 10))
	}
	if f.MaxPrice > 0 {
		q = q.Lte("price", strconv.FormatInt(f.MaxPrice, 10))
	}
	if f.MinBedrooms > 0 {
		q = q.Gte("bedrooms", strconv.Itoa(f.MinBedrooms))
	}
	if f.Featured != nil {
		q = q.Eq("featured", strconv.FormatBool(*f.Featured))
	}
	if f.DeveloperID != uuid.Nil {
		q = q.Eq("developer_id", f.DeveloperID.String())
	}
	if f.Search != "" {
		term := postgrestTerm(f.Search)
		q = q.Or(fmt.Sprintf("title.ilike.*%s*,description.ilike.*%s*", term, term), "")
	}

	q = q.Order("featured", &postgrest.OrderOpts{Ascending: false}).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Range(f.Offset, f.Offset+f.Limit-1, "")

	var out []Property
	if _, err := q.ExecuteTo(&out); err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	if out == nil {
		out = []Property{}
	}
	return out, nil
}

func (r *SupabaseRepository) Get(ctx context.Context, id uuid.UUID) (Property, error) {
	if err := ctx.Err(); err != nil {
		return Property{}, err
	}

	var out []Property
	_, err := r.client.From(supabaseTable).
		Select("*", "", false).
		Eq("id", id.String()).
		Limit(1, "").
		ExecuteTo(&out)
	if err != nil {
		return Property{}, fmt.Errorf("get property: %w", err)
	}
	if len(out) == 0 {
		return Property{}, ErrNotFound
	}
	return out[0], nil
}

func (r *SupabaseRepository) Create(ctx context.Context, p Property) (Property, error) {
	if err := ctx.Err(); err != nil {
		return Property{}, err
	}

	var out []Property
	_, err := r.client.From(supabaseTable).
		Insert(toSupabaseRow(p), false, "", "representation", "").
		ExecuteTo(&out)
	if err != nil {
		return Property{}, fmt.Errorf("create property: %w", err)
	}
	if len(out) == 0 {
		return p, nil
	}
	return out[0], nil
}

// Update is a read-modify-write without row locking; the REST API has no
// transactions.
func (r *SupabaseRepository) Update(ctx context.Context, id uuid.UUID, fn func(p *Property) error) (Property, error) {
	p, err := r.Get(ctx, id)
	if err != nil {
		return Property{}, err
	}
	if err := fn(&p); err != nil {
		return Property{}, err
	}

	var out []Property
	_, err = r.client.From(supabaseTable).
		Update(toSupabaseRow(p), "representation", "").
		Eq("id", id.String()).
		ExecuteTo(&out)
	if err != nil {
		return Property{}, fmt.Errorf("update property: %w", err)
	}
	if len(out) == 0 {
		return Property{}, ErrNotFound
	}
	return out[0], nil
}

func (r *SupabaseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var out []Property
	_, err := r.client.From(supabaseTable).
		Delete("representation", "").
		Eq("id", id.String()).
		ExecuteTo(&out)
	if err != nil {
		return fmt.Errorf("delete property: %w", err)
	}
	if len(out) == 0 {
		return ErrNotFound
	}
	return nil
}

var postgrestReplacer = strings.NewReplacer(",", " ", "(", " ", ")", " ", "*", " ", `"`, " ")

// postgrestTerm drops characters with meaning in a PostgREST logic tree.
func postgrestTerm(s string) string {
	return strings.TrimSpace(postgrestReplacer.Replace(s))
}
