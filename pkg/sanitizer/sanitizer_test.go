package sanitizer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/estate/pkg/sanitizer"
)

func TestText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain text untouched", input: "Sunny flat", expected: "Sunny flat"},
		{name: "strips tags", input: `<p>Sunny <strong>flat</strong></p>`, expected: "Sunny flat"},
		{name: "strips script", input: `Flat<script>alert('xss')</script>`, expected: "Flat"},
		{name: "trims whitespace", input: "  Loft  ", expected: "Loft"},
		{name: "empty", input: "", expected: ""},
		{name: "ampersand and apostrophe stay literal", input: "Tom & Jerry's", expected: "Tom & Jerry's"},
		{name: "entities decode to plain text", input: "a &lt;b&gt; c", expected: "a <b> c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, sanitizer.Text(tt.input))
		})
	}
}

func TestHTML(t *testing.T) {
	t.Parallel()

	out := sanitizer.HTML(`<p onclick="x()">Hi <a href="https://example.com">there</a></p><iframe src="x"></iframe>`)
	assert.Contains(t, out, "<p>Hi ")
	assert.Contains(t, out, `rel="nofollow"`)
	assert.NotContains(t, out, "onclick")
	assert.NotContains(t, out, "iframe")

	assert.NotContains(t, sanitizer.HTML(`<a href="javascript:alert(1)">x</a>`), "javascript:")
}

func TestMarkdown(t *testing.T) {
	t.Parallel()

	t.Run("renders formatting", func(t *testing.T) {
		t.Parallel()

		out, err := sanitizer.Markdown("## Features\n\n- **Balcony**\n- Garden\n")
		require.NoError(t, err)
		assert.Contains(t, out, "<h2>Features</h2>")
		assert.Contains(t, out, "<strong>Balcony</strong>")
		assert.Contains(t, out, "<li>Garden</li>")
	})

	t.Run("drops raw html", func(t *testing.T) {
		t.Parallel()

		out, err := sanitizer.Markdown("Nice view <script>alert('xss')</script>")
		require.NoError(t, err)
		assert.NotContains(t, out, "<script>")
		assert.Contains(t, out, "Nice view")
	})

	t.Run("links get nofollow", func(t *testing.T) {
		t.Parallel()

		out, err := sanitizer.Markdown("[tour](https://example.com/tour)")
		require.NoError(t, err)
		assert.Contains(t, out, `href="https://example.com/tour"`)
		assert.Contains(t, out, `rel="nofollow"`)
	})

	t.Run("javascript links removed", func(t *testing.T) {
		t.Parallel()

		out, err := sanitizer.Markdown("[x](javascript:alert(1))")
		require.NoError(t, err)
		assert.NotContains(t, out, "javascript:")
	})
}
