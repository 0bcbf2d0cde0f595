package documents

import (
	"errors"
	"net/http"
)

// Domain errors for registry operations.
var (
	ErrNotFound          = errors.New("ticket file not found")
	ErrDuplicate         = errors.New("ticket file already registered")
	ErrFileTooLarge      = errors.New("file exceeds maximum upload size")
	ErrInvalidFile       = errors.New("invalid file")
	ErrInvalidTransition = errors.New("invalid registry transition")
	ErrClaimed           = errors.New("ticket file claimed by another run")
)

// MapHTTPStatus maps registry errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) || errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrClaimed) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrFileTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	if errors.Is(err, ErrInvalidFile) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
