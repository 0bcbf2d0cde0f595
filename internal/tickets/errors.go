package tickets

import (
	"errors"
	"net/http"
)

// Per-file and per-row failure kinds. None of these abort a batch; they are
// recorded as ERROR rows or status annotations.
var (
	ErrDecodeFailure         = errors.New("unreadable file")
	ErrClassificationUnknown = errors.New("unclassified document")
	ErrExtractionIncomplete  = errors.New("extraction incomplete")
	ErrValidationUnavailable = errors.New("identifier validation unavailable")
	ErrAmbiguousIdentity     = errors.New("ambiguous identity")
	ErrNoIdentityMatch       = errors.New("no identity match")
	ErrCommitPrecondition    = errors.New("commit precondition unmet")
	ErrCommitTargetNotFound  = errors.New("commit target not found")
	ErrStoreUnavailable      = errors.New("row store unavailable")
	ErrRowNotFound           = errors.New("ticket row not found")
	ErrInvalidRow            = errors.New("invalid ticket row")
	ErrInvalidTransition     = errors.New("invalid state transition")
)

// MapHTTPStatus maps ticket errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrRowNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidRow):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrCommitPrecondition):
		return http.StatusConflict
	case errors.Is(err, ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
