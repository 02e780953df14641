package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/estate/internal/listing"
	"github.com/dmitrymomot/estate/pkg/cache"
)

// HTTPError is the JSON error body. Err is logged, never rendered.
type HTTPError struct {
	Err       error  `json:"-"`
	Message   string `json:"message"`
	ErrorCode string `json:"error_code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Code      int    `json:"code"`
}

func (e *HTTPError) Error() string {
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

func newHTTPError(code int, errorCode, message string, err error) *HTTPError {
	return &HTTPError{Code: code, ErrorCode: errorCode, Message: message, Err: err}
}

func errBadRequest(message string, err error) *HTTPError {
	return newHTTPError(http.StatusBadRequest, "bad_request", message, err)
}

func errNotFound(message string, err error) *HTTPError {
	return newHTTPError(http.StatusNotFound, "not_found", message, err)
}

// toHTTPError maps domain errors to responses.
func toHTTPError(err error) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	switch {
	case errors.Is(err, listing.ErrNotFound):
		return errNotFound("property not found", err)
	case errors.Is(err, listing.ErrInvalidInput):
		return newHTTPError(http.StatusUnprocessableEntity, "invalid_input", err.Error(), err)
	case errors.Is(err, cache.ErrInvalidPattern):
		return errBadRequest("invalid pattern", err)
	case errors.Is(err, cache.ErrUnknownCache):
		return errNotFound("unknown cache", err)
	case errors.Is(err, listing.ErrUnavailable), errors.Is(err, listing.ErrFetchTimeout):
		return newHTTPError(http.StatusServiceUnavailable, "unavailable", "listings are temporarily unavailable", err)
	default:
		return newHTTPError(http.StatusInternalServerError, "internal", "internal server error", err)
	}
}
