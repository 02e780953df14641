package listing

import "errors"

var (
	// ErrNotFound is returned when no property has the requested ID.
	ErrNotFound = errors.New("listing: property not found")

	// ErrInvalidInput wraps validation failures of inputs and filters.
	ErrInvalidInput = errors.New("listing: invalid input")

	// ErrUnavailable is returned while the circuit breaker rejects calls to the source.
	ErrUnavailable = errors.New("listing: source unavailable")

	// ErrFetchTimeout is returned when the source does not answer within the fetch timeout.
	ErrFetchTimeout = errors.New("listing: fetch timed out")
)
