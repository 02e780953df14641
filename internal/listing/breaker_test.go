package listing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/estate/internal/listing"
	"github.com/dmitrymomot/estate/pkg/logger"
)

func TestBreakerRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := listing.BreakerConfig{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 0.5,
		MinRequests:      2,
	}

	t.Run("opens after repeated failures", func(t *testing.T) {
		t.Parallel()

		repo := newFakeRepo()
		repo.fail(errors.New("connection refused"))
		br := listing.NewBreakerRepository(repo, "listings", cfg, logger.NewNope())

		for range 2 {
			_, err := br.List(ctx, listing.Filter{})
			require.Error(t, err)
			require.NotErrorIs(t, err, listing.ErrUnavailable)
		}
		require.Equal(t, gobreaker.StateOpen, br.State())

		_, err := br.List(ctx, listing.Filter{})
		require.ErrorIs(t, err, listing.ErrUnavailable)
		require.EqualValues(t, 2, repo.lists.Load())
	})

	t.Run("not found does not trip", func(t *testing.T) {
		t.Parallel()

		repo := newFakeRepo()
		br := listing.NewBreakerRepository(repo, "properties", cfg, logger.NewNope())

		for range 5 {
			_, err := br.Get(ctx, uuid.New())
			require.ErrorIs(t, err, listing.ErrNotFound)
		}
		require.Equal(t, gobreaker.StateClosed, br.State())
	})

	t.Run("writes pass through", func(t *testing.T) {
		t.Parallel()

		repo := newFakeRepo()
		br := listing.NewBreakerRepository(repo, "writes", cfg, logger.NewNope())

		p := property("lagos")
		_, err := br.Create(ctx, p)
		require.NoError(t, err)

		got, err := br.Get(ctx, p.ID)
		require.NoError(t, err)
		require.Equal(t, p.ID, got.ID)
	})
}
