package listing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestBuildListQuery(t *testing.T) {
	t.Parallel()

	t.Run("no conditions", func(t *testing.T) {
		t.Parallel()

		query, args := buildListQuery(Filter{}.Normalize())
		require.NotContains(t, query, "WHERE")
		require.Contains(t, query, "LIMIT $1 OFFSET $2")
		require.Equal(t, []any{DefaultLimit, 0}, args)
	})

	t.Run("all conditions", func(t *testing.T) {
		t.Parallel()

		featured := true
		dev := uuid.New()
		query, args := buildListQuery(Filter{
			City:        "Lagos",
			Kind:        KindSale,
			Status:      StatusAvailable,
			MinPrice:    10,
			MaxPrice:    20,
			MinBedrooms: 2,
			Featured:    &featured,
			DeveloperID: dev,
			Search:      "50%_off",
			Limit:       5,
			Offset:      10,
		}.Normalize())

		require.Contains(t, query, "WHERE lower(city) = $1 AND kind = $2 AND status = $3")
		require.Contains(t, query, "(title ILIKE $9 OR description ILIKE $9)")
		require.Contains(t, query, "LIMIT $10 OFFSET $11")
		require.Equal(t, []any{
			"lagos", "sale", "available", int64(10), int64(20), 2, true, dev, `%50\%\_off%`, 5, 10,
		}, args)
	})
}
