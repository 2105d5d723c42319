package types

import (
	"errors"
	"net/http"
)

// Failure kinds returned by the search surface
var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrNotFound             = errors.New("not found")
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	ErrRetrievalFailed      = errors.New("retrieval failed")
)

// SearchError is a failure whose Message is safe to show to callers.
// Kind is one of the Err* kinds above; internal detail never goes in Message.
type SearchError struct {
	Kind    error
	Message string
}

// NewSearchError creates a SearchError of the given kind
func NewSearchError(kind error, message string) *SearchError {
	return &SearchError{Kind: kind, Message: message}
}

func (e *SearchError) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Message
}

func (e *SearchError) Unwrap() error {
	return e.Kind
}

// StatusCode maps an error to its HTTP-class status code
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrEmbeddingUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns a message that can be shown to callers.
// Errors that are not SearchErrors collapse to a generic message.
func PublicMessage(err error) string {
	var se *SearchError
	if errors.As(err, &se) {
		return se.Error()
	}
	switch StatusCode(err) {
	case http.StatusBadRequest:
		return err.Error()
	case http.StatusServiceUnavailable:
		return "semantic search is temporarily unavailable, try keyword search"
	default:
		return "an internal error occurred while retrieving articles"
	}
}
