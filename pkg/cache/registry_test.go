package cache_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/estate/pkg/cache"
)

func TestRegistry(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	lists := newTestCache[[]string](t, clock, cache.WithName("lists"))
	items := newTestCache[string](t, clock, cache.WithName("items"))
	reg := cache.NewRegistry(lists, items)

	ctx := context.Background()
	require.NoError(t, lists.Set(ctx, "properties-{}", []string{"a"}, cache.Options{}))
	require.NoError(t, items.Set(ctx, "property-1", "a", cache.Options{}))
	require.NoError(t, items.Set(ctx, "user-1", "u", cache.Options{}))

	t.Run("names are sorted", func(t *testing.T) {
		require.Equal(t, []string{"items", "lists"}, reg.Names())
	})

	t.Run("lookup", func(t *testing.T) {
		c, err := reg.Lookup("items")
		require.NoError(t, err)
		require.Equal(t, "items", c.Name())

		_, err = reg.Lookup("nope")
		require.ErrorIs(t, err, cache.ErrUnknownCache)
	})

	t.Run("stats per cache", func(t *testing.T) {
		st, err := reg.Stats(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, st["lists"].Size)
		require.Equal(t, 2, st["items"].Size)
	})

	t.Run("pattern fans out", func(t *testing.T) {
		n, err := reg.ClearPattern(ctx, "^propert")
		require.NoError(t, err)
		require.Equal(t, 2, n)

		st, err := reg.Stats(ctx)
		require.NoError(t, err)
		require.Zero(t, st["lists"].Size)
		require.Equal(t, []string{"user-1"}, st["items"].Entries)
	})

	t.Run("clear all", func(t *testing.T) {
		require.NoError(t, reg.ClearAll(ctx))

		st, err := reg.Stats(ctx)
		require.NoError(t, err)
		require.Zero(t, st["items"].Size)
	})
}
