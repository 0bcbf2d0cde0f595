package source

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound indicates the requested file does not exist in the source.
	ErrNotFound = errors.New("source file not found")
	// ErrEmptyKey indicates an empty file identifier was provided.
	ErrEmptyKey = errors.New("file key must not be empty")
	// ErrInvalidKey indicates the file identifier contains a path traversal segment.
	ErrInvalidKey = errors.New("file key contains invalid path segment")
	// ErrUnavailable wraps transport failures talking to the source backend.
	ErrUnavailable = errors.New("file source unavailable")
)

// MapHTTPStatus maps source errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrEmptyKey) || errors.Is(err, ErrInvalidKey) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrUnavailable) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
