package listing

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrymomot/estate/pkg/cache"
)

const (
	// ListNamespace prefixes every cached listing query.
	ListNamespace = "properties"

	// ItemNamespace prefixes every cached single property.
	ItemNamespace = "property"

	DefaultLimit = 20
	MaxLimit     = 100
)

// Filter selects properties for a listing query.
// Field order is part of the cache key; append new fields at the end.
type Filter struct {
	City        string    `json:"city,omitempty" yaml:"city,omitempty" validate:"max=100"`
	Kind        Kind      `json:"kind,omitempty" yaml:"kind,omitempty" validate:"omitempty,oneof=sale rent shortlet"`
	Status      Status    `json:"status,omitempty" yaml:"status,omitempty" validate:"omitempty,oneof=available reserved sold"`
	MinPrice    int64     `json:"min_price,omitempty" yaml:"min_price,omitempty" validate:"gte=0"`
	MaxPrice    int64     `json:"max_price,omitempty" yaml:"max_price,omitempty" validate:"omitempty,gtefield=MinPrice"`
	MinBedrooms int       `json:"min_bedrooms,omitempty" yaml:"min_bedrooms,omitempty" validate:"gte=0"`
	Featured    *bool     `json:"featured,omitempty" yaml:"featured,omitempty"`
	DeveloperID uuid.UUID `json:"developer_id,omitzero" yaml:"developer_id,omitempty"`
	Search      string    `json:"search,omitempty" yaml:"search,omitempty" validate:"max=100"`
	Limit       int       `json:"limit" yaml:"limit,omitempty"`
	Offset      int       `json:"offset,omitempty" yaml:"offset,omitempty" validate:"gte=0"`
}

// Normalize returns a copy with trimmed, lower-cased text fields and a
// bounded limit, so equivalent filters share a cache key.
func (f Filter) Normalize() Filter {
	f.City = strings.ToLower(strings.TrimSpace(f.City))
	f.Kind = Kind(strings.ToLower(strings.TrimSpace(string(f.Kind))))
	f.Status = Status(strings.ToLower(strings.TrimSpace(string(f.Status))))
	f.Search = strings.ToLower(strings.Join(strings.Fields(f.Search), " "))

	switch {
	case f.Limit <= 0:
		f.Limit = DefaultLimit
	case f.Limit > MaxLimit:
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// Validate reports out-of-range fields.
func (f Filter) Validate() error {
	return validateStruct(f)
}

// CacheKey is the key of the listing query in the list cache:
// the namespace followed by the normalized filter as JSON.
func (f Filter) CacheKey() string {
	// A struct of plain fields always marshals.
	b, _ := json.Marshal(f.Normalize())
	return cache.Key(ListNamespace, string(b))
}

// ItemKey is the key of a single property in the item cache.
func ItemKey(id uuid.UUID) string {
	return cache.Key(ItemNamespace, id.String())
}
