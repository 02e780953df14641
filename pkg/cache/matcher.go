package cache

import (
	"errors"
	"regexp"
	"strings"
)

// Matcher selects cache keys for bulk invalidation.
type Matcher func(key string) bool

// Key builds a namespaced cache key: "ns-part1:part2:...".
// Keys built with the same namespace can be dropped together with Namespace.
func Key(ns string, parts ...string) string {
	return ns + "-" + strings.Join(parts, ":")
}

// Prefix matches keys starting with p.
func Prefix(p string) Matcher {
	return func(key string) bool {
		return strings.HasPrefix(key, p)
	}
}

// Namespace matches keys built with Key(ns, ...).
func Namespace(ns string) Matcher {
	return Prefix(ns + "-")
}

// Exact matches a single key.
func Exact(k string) Matcher {
	return func(key string) bool {
		return key == k
	}
}

// Regexp matches keys against a compiled regular expression.
func Regexp(re *regexp.Regexp) Matcher {
	return re.MatchString
}

// ParsePattern compiles a regular expression source into a Matcher.
func ParsePattern(src string) (Matcher, error) {
	re, err := regexp.Compile(src)
	if err != nil {
		return nil, errors.Join(ErrInvalidPattern, err)
	}
	return Regexp(re), nil
}

// AnyOf matches keys selected by at least one of ms.
func AnyOf(ms ...Matcher) Matcher {
	return func(key string) bool {
		for _, m := range ms {
			if m != nil && m(key) {
				return true
			}
		}
		return false
	}
}
