package listing_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/estate/internal/listing"
)

func TestFormatPrice(t *testing.T) {
	t.Parallel()

	got, err := listing.FormatPrice(12345050, "USD")
	require.NoError(t, err)
	require.Contains(t, got, "123,450.50")
	require.Contains(t, got, "$")

	got, err = listing.FormatPrice(150000, "NGN")
	require.NoError(t, err)
	require.Contains(t, got, "1,500.00")

	// JPY has no minor unit.
	got, err = listing.FormatPrice(5000, "JPY")
	require.NoError(t, err)
	require.Contains(t, got, "5,000")

	_, err = listing.FormatPrice(100, "NOPE")
	require.ErrorIs(t, err, listing.ErrInvalidInput)
}
