package listing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/estate/pkg/db"
)

const propertyColumns = `id, developer_id, title, description, description_html, kind, status,
	city, address, price, currency, bedrooms, bathrooms, area_sqm, images, featured,
	created_at, updated_at`

// querier is satisfied by *pgxpool.Pool.
type querier interface {
	db.Beginner
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRepository stores properties in the properties table.
type PostgresRepository struct {
	db querier
}

// NewPostgresRepository creates a repository on top of a pgx pool.
func NewPostgresRepository(pool querier) *PostgresRepository {
	return &PostgresRepository{db: pool}
}

func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]Property, error) {
	query, args := buildListQuery(f.Normalize())

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}

	props, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Property, error) {
		return scanProperty(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan properties: %w", err)
	}
	return props, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (Property, error) {
	row := r.db.QueryRow(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = $1`, id)
	p, err := scanProperty(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Property{}, ErrNotFound
	}
	if err != nil {
		return Property{}, fmt.Errorf("get property: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) Create(ctx context.Context, p Property) (Property, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO properties (`+propertyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING `+propertyColumns,
		p.ID, p.DeveloperID, p.Title, p.Description, p.DescriptionHTML, p.Kind, p.Status,
		p.City, p.Address, p.Price, p.Currency, p.Bedrooms, p.Bathrooms, p.AreaSqm, p.Images, p.Featured,
		p.CreatedAt, p.UpdatedAt,
	)
	created, err := scanProperty(row)
	if err != nil {
		return Property{}, fmt.Errorf("create property: %w", err)
	}
	return created, nil
}

func (r *PostgresRepository) Update(ctx context.Context, id uuid.UUID, fn func(p *Property) error) (Property, error) {
	var updated Property

	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = $1 FOR UPDATE`, id)
		p, err := scanProperty(row)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		if err := fn(&p); err != nil {
			return err
		}

		row = tx.QueryRow(ctx, `UPDATE properties SET
			title = $2, description = $3, description_html = $4, kind = $5, status = $6,
			city = $7, address = $8, price = $9, currency = $10, bedrooms = $11,
			bathrooms = $12, area_sqm = $13, images = $14, featured = $15, updated_at = $16
			WHERE id = $1
			RETURNING `+propertyColumns,
			p.ID, p.Title, p.Description, p.DescriptionHTML, p.Kind, p.Status,
			p.City, p.Address, p.Price, p.Currency, p.Bedrooms,
			p.Bathrooms, p.AreaSqm, p.Images, p.Featured, p.UpdatedAt,
		)
		updated, err = scanProperty(row)
		return err
	})
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidInput) {
		return Property{}, err
	}
	if err != nil {
		return Property{}, fmt.Errorf("update property: %w", err)
	}
	return updated, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM properties WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete property: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanProperty(row pgx.Row) (Property, error) {
	var p Property
	err := row.Scan(
		&p.ID, &p.DeveloperID, &p.Title, &p.Description, &p.DescriptionHTML, &p.Kind, &p.Status,
		&p.City, &p.Address, &p.Price, &p.Currency, &p.Bedrooms, &p.Bathrooms, &p.AreaSqm, &p.Images, &p.Featured,
		&p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

// buildListQuery renders f as a parameterized SELECT. f must be normalized.
func buildListQuery(f Filter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.City != "" {
		add("lower(city) = $%d", f.City)
	}
	if f.Kind != "" {
		add("kind = $%d", string(f.Kind))
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.MinPrice > 0 {
		add("price >= $%d", f.MinPrice)
	}
	if f.MaxPrice > 0 {
		add("price <= $%d", f.MaxPrice)
	}
	if f.MinBedrooms > 0 {
		add("bedrooms >= $%d", f.MinBedrooms)
	}
	if f.Featured != nil {
		add("featured = $%d", *f.Featured)
	}
	if f.DeveloperID != uuid.Nil {
		add("developer_id = $%d", f.DeveloperID)
	}
	if f.Search != "" {
		add("(title ILIKE $%[1]d OR description ILIKE $%[1]d)", "%"+escapeLike(f.Search)+"%")
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(propertyColumns)
	sb.WriteString(" FROM properties")
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}

	args = append(args, f.Limit, f.Offset)
	fmt.Fprintf(&sb, " ORDER BY featured DESC, created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	return sb.String(), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
