package scheduler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/estate/internal/listing"
)

const (
	DefaultSchedule = "*/5 * * * *"
	DefaultMaxAge   = 10 * time.Minute
)

// Plan lists the listing queries kept warm in the cache.
//
//	schedule: "*/5 * * * *"
//	max_age: 10m
//	preload: true
//	queries:
//	  - name: featured
//	    filter: {featured: true, limit: 12}
//	  - name: lagos-rentals
//	    filter: {city: lagos, kind: rent}
type Plan struct {
	// Schedule is a five-field cron expression.
	Schedule string `yaml:"schedule"`

	// MaxAge is passed to RefreshIfStale; entries older than half of it are reloaded.
	MaxAge time.Duration `yaml:"max_age"`

	// Preload loads every query once when the scheduler starts.
	Preload bool `yaml:"preload"`

	Queries []Query `yaml:"queries"`
}

// Query is a named listing filter.
type Query struct {
	Name   string         `yaml:"name"`
	Filter listing.Filter `yaml:"filter"`
}

// LoadPlanFile reads a plan from a YAML file.
func LoadPlanFile(path string) (Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, errors.Join(ErrInvalidPlan, err)
	}
	return LoadPlan(bytes.NewReader(data))
}

// LoadPlan decodes and validates a YAML plan, filling defaults.
func LoadPlan(r io.Reader) (Plan, error) {
	var p Plan
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return Plan{}, errors.Join(ErrInvalidPlan, err)
	}

	p = p.withDefaults()
	if err := p.Validate(); err != nil {
		return Plan{}, err
	}
	return p, nil
}

func (p Plan) withDefaults() Plan {
	if p.Schedule == "" {
		p.Schedule = DefaultSchedule
	}
	if p.MaxAge <= 0 {
		p.MaxAge = DefaultMaxAge
	}
	return p
}

// Validate checks the schedule, query names and filters.
func (p Plan) Validate() error {
	if _, err := parseSchedule(p.Schedule); err != nil {
		return errors.Join(ErrInvalidPlan, fmt.Errorf("schedule %q: %w", p.Schedule, err))
	}

	seen := make(map[string]struct{}, len(p.Queries))
	for i, q := range p.Queries {
		if q.Name == "" {
			return errors.Join(ErrInvalidPlan, fmt.Errorf("query %d: name is required", i))
		}
		if _, dup := seen[q.Name]; dup {
			return errors.Join(ErrInvalidPlan, fmt.Errorf("query %q: duplicate name", q.Name))
		}
		seen[q.Name] = struct{}{}

		if err := q.Filter.Normalize().Validate(); err != nil {
			return errors.Join(ErrInvalidPlan, fmt.Errorf("query %q: %w", q.Name, err))
		}
	}
	return nil
}

func parseSchedule(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return parser.Parse(expr)
}
