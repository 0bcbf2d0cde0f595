package pipeline

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/manifest/internal/matching"
	"github.com/JaimeStill/manifest/pkg/handlers"
	"github.com/JaimeStill/manifest/pkg/routes"
)

// Operations is the set of batch operations exposed over HTTP.
type Operations interface {
	IngestAndExtract(ctx context.Context) (IngestReport, error)
	MatchPending(ctx context.Context) (matching.Summary, error)
	CommitApproved(ctx context.Context) (CommitReport, error)
}

// Handler triggers pipeline operations over HTTP.
type Handler struct {
	ops    Operations
	logger *slog.Logger
}

// NewHandler creates a Handler for ops.
func NewHandler(ops Operations, logger *slog.Logger) *Handler {
	return &Handler{
		ops:    ops,
		logger: logger.With("handler", "pipeline"),
	}
}

// Routes returns the route group definition for pipeline triggers.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/pipeline",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/ingest", Handler: h.Ingest},
			{Method: "POST", Pattern: "/match", Handler: h.Match},
			{Method: "POST", Pattern: "/commit", Handler: h.Commit},
		},
	}
}

// Ingest drains the inbox and returns the ingestion report.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	report, err := h.ops.IngestAndExtract(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, report)
}

// Match suggests identities for pending rows.
func (h *Handler) Match(w http.ResponseWriter, r *http.Request) {
	summary, err := h.ops.MatchPending(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, summary)
}

// Commit commits approved rows and returns the commit report.
func (h *Handler) Commit(w http.ResponseWriter, r *http.Request) {
	report, err := h.ops.CommitApproved(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, report)
}
