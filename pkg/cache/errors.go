package cache

import "errors"

// Sentinel errors for cache operations.
var (
	// ErrEmptyKey is returned when an operation is called with an empty key.
	ErrEmptyKey = errors.New("cache: empty key")

	// ErrClosed is returned when an operation is attempted on a closed cache or store.
	ErrClosed = errors.New("cache: closed")

	// ErrInvalidPattern is returned when ClearPattern gets a malformed regular expression.
	ErrInvalidPattern = errors.New("cache: invalid key pattern")

	// ErrUnknownCache is returned by Registry when no cache is registered under a name.
	ErrUnknownCache = errors.New("cache: unknown cache")

	// ErrMarshal is returned when entry serialization fails.
	ErrMarshal = errors.New("cache: failed to marshal entry")

	// ErrUnmarshal is returned when entry deserialization fails.
	ErrUnmarshal = errors.New("cache: failed to unmarshal entry")
)
