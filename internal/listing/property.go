// Package listing serves real-estate listings from Postgres or Supabase
// through read-through caches: query results keyed by their filter, single
// properties keyed by ID. Writes invalidate the affected cache entries.
package listing

import (
	"time"

	"github.com/google/uuid"
)

// Kind is the type of deal a property is offered under.
type Kind string

const (
	KindSale     Kind = "sale"
	KindRent     Kind = "rent"
	KindShortlet Kind = "shortlet"
)

// Status is the availability of a property.
type Status string

const (
	StatusAvailable Status = "available"
	StatusReserved  Status = "reserved"
	StatusSold      Status = "sold"
)

// Property is a single listing.
// Price is stored in the currency's minor units.
type Property struct {
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
	PriceDisplay    string    `json:"price_display,omitempty"`
	Bedrooms        int       `json:"bedrooms"`
	Bathrooms       int       `json:"bathrooms"`
	AreaSqm         int       `json:"area_sqm"`
	Images          []string  `json:"images"`
	Featured        bool      `json:"featured"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CreateInput is the payload for a new property.
type CreateInput struct {
	DeveloperID uuid.UUID `json:"developer_id"`
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description" validate:"max=20000"`
	Kind        Kind      `json:"kind" validate:"required,oneof=sale rent shortlet"`
	Status      Status    `json:"status" validate:"omitempty,oneof=available reserved sold"`
	City        string    `json:"city" validate:"required,max=100"`
	Address     string    `json:"address" validate:"max=300"`
	Price       int64     `json:"price" validate:"gte=0"`
	Currency    string    `json:"currency" validate:"required,iso4217"`
	Bedrooms    int       `json:"bedrooms" validate:"gte=0,lte=100"`
	Bathrooms   int       `json:"bathrooms" validate:"gte=0,lte=100"`
	AreaSqm     int       `json:"area_sqm" validate:"gte=0"`
	Images      []string  `json:"images" validate:"max=50,dive,url"`
	Featured    bool      `json:"featured"`
}

func (in CreateInput) property(id uuid.UUID, now time.Time) Property {
	p := Property{
		ID:          id,
		DeveloperID: in.DeveloperID,
		Title:       in.Title,
		Description: in.Description,
		Kind:        in.Kind,
		Status:      in.Status,
		City:        in.City,
		Address:     in.Address,
		Price:       in.Price,
		Currency:    in.Currency,
		Bedrooms:    in.Bedrooms,
		Bathrooms:   in.Bathrooms,
		AreaSqm:     in.AreaSqm,
		Images:      in.Images,
		Featured:    in.Featured,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if p.Status == "" {
		p.Status = StatusAvailable
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	return p
}

// UpdateInput is a partial update. Nil fields are left unchanged.
type UpdateInput struct {
	Title       *string   `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string   `json:"description" validate:"omitempty,max=20000"`
	Kind        *Kind     `json:"kind" validate:"omitempty,oneof=sale rent shortlet"`
	Status      *Status   `json:"status" validate:"omitempty,oneof=available reserved sold"`
	City        *string   `json:"city" validate:"omitempty,min=1,max=100"`
	Address     *string   `json:"address" validate:"omitempty,max=300"`
	Price       *int64    `json:"price" validate:"omitempty,gte=0"`
	Currency    *string   `json:"currency" validate:"omitempty,iso4217"`
	Bedrooms    *int      `json:"bedrooms" validate:"omitempty,gte=0,lte=100"`
	Bathrooms   *int      `json:"bathrooms" validate:"omitempty,gte=0,lte=100"`
	AreaSqm     *int      `json:"area_sqm" validate:"omitempty,gte=0"`
	Images      *[]string `json:"images" validate:"omitempty,max=50,dive,url"`
	Featured    *bool     `json:"featured"`
}

func (in UpdateInput) apply(p *Property) {
	setIf(&p.Title, in.Title)
	setIf(&p.Description, in.Description)
	setIf(&p.Kind, in.Kind)
	setIf(&p.Status, in.Status)
	setIf(&p.City, in.City)
	setIf(&p.Address, in.Address)
	setIf(&p.Price, in.Price)
	setIf(&p.Currency, in.Currency)
	setIf(&p.Bedrooms, in.Bedrooms)
	setIf(&p.Bathrooms, in.Bathrooms)
	setIf(&p.AreaSqm, in.AreaSqm)
	setIf(&p.Images, in.Images)
	setIf(&p.Featured, in.Featured)
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
