package pipeline

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/manifest/internal/recovery"
	"github.com/JaimeStill/manifest/internal/roster"
	"github.com/JaimeStill/manifest/internal/tickets"
	"github.com/JaimeStill/manifest/pkg/source"
)

// Sentinel errors for pipeline operations.
var (
	ErrBusy                = errors.New("pipeline operation already running")
	ErrRegistryUnavailable = errors.New("ingestion registry unavailable")
)

// MapHTTPStatus maps operation errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrBusy):
		return http.StatusConflict
	case errors.Is(err, tickets.ErrStoreUnavailable),
		errors.Is(err, roster.ErrUnavailable),
		errors.Is(err, source.ErrUnavailable),
		errors.Is(err, ErrRegistryUnavailable),
		errors.Is(err, recovery.ErrEngineUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
