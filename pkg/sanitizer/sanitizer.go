// Package sanitizer cleans user-supplied listing text before it is stored or
// rendered: plain-text fields lose all markup, descriptions are rendered from
// Markdown and filtered through an allow-list policy.
package sanitizer

import (
	"bytes"
	"errors"
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// ErrRenderMarkdown is returned when Markdown conversion fails.
var ErrRenderMarkdown = errors.New("sanitizer: failed to render markdown")

var (
	strictPolicy *bluemonday.Policy
	safePolicy   *bluemonday.Policy
	markdown     goldmark.Markdown
	initOnce     sync.Once
)

func initPolicies() {
	initOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()

		safePolicy = bluemonday.NewPolicy()
		safePolicy.AllowStandardURLs()
		safePolicy.AllowElements(
			"p", "br", "hr",
			"h2", "h3", "h4",
			"strong", "b", "em", "i", "del",
			"ul", "ol", "li",
			"code", "pre", "blockquote",
			"table", "thead", "tbody", "tr", "th", "td",
		)
		safePolicy.AllowAttrs("href").OnElements("a")
		safePolicy.RequireNoFollowOnLinks(true)

		// Raw HTML in the source is dropped by goldmark's default renderer.
		markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
}

// Text strips all markup and trims surrounding whitespace. The result is
// plain text, not HTML: entities escaped by the policy are decoded again.
func Text(s string) string {
	initPolicies()
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}

// HTML keeps basic formatting tags and removes everything executable.
func HTML(s string) string {
	initPolicies()
	return safePolicy.Sanitize(s)
}

// Markdown renders src to HTML and sanitizes the result.
func Markdown(src string) (string, error) {
	initPolicies()

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", errors.Join(ErrRenderMarkdown, err)
	}
	return safePolicy.Sanitize(buf.String()), nil
}
