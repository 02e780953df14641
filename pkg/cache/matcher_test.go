package cache_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/estate/pkg/cache"
)

func TestKey(t *testing.T) {
	t.Parallel()

	require.Equal(t, "properties-{}", cache.Key("properties", "{}"))
	require.Equal(t, "property-a:b", cache.Key("property", "a", "b"))
	require.Equal(t, "ns-", cache.Key("ns"))
}

func TestMatchers(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		matcher cache.Matcher
		key     string
		want    bool
	}{
		{name: "prefix match", matcher: cache.Prefix("prop"), key: "properties-x", want: true},
		{name: "prefix miss", matcher: cache.Prefix("user"), key: "properties-x", want: false},
		{name: "namespace match", matcher: cache.Namespace("properties"), key: "properties-{}", want: true},
		{name: "namespace does not match sibling", matcher: cache.Namespace("property"), key: "properties-{}", want: false},
		{name: "exact match", matcher: cache.Exact("a"), key: "a", want: true},
		{name: "exact miss", matcher: cache.Exact("a"), key: "ab", want: false},
		{name: "regexp", matcher: cache.Regexp(regexp.MustCompile(`^property-\d+$`)), key: "property-42", want: true},
		{name: "any of", matcher: cache.AnyOf(cache.Exact("x"), cache.Prefix("user-")), key: "user-1", want: true},
		{name: "any of none", matcher: cache.AnyOf(), key: "user-1", want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, tc.matcher(tc.key))
		})
	}
}

func TestParsePattern(t *testing.T) {
	t.Parallel()

	m, err := cache.ParsePattern("^properties-")
	require.NoError(t, err)
	require.True(t, m("properties-a"))
	require.False(t, m("user-x"))

	_, err = cache.ParsePattern("[")
	require.ErrorIs(t, err, cache.ErrInvalidPattern)
}
