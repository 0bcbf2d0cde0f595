package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strconv"

	"github.com/JaimeStill/manifest/pkg/handlers"
	"github.com/JaimeStill/manifest/pkg/routes"
	"github.com/JaimeStill/manifest/pkg/source"
)

type inboxHandler struct {
	src    source.System
	logger *slog.Logger
}

func newInboxHandler(src source.System, logger *slog.Logger) *inboxHandler {
	return &inboxHandler{
		src:    src,
		logger: logger.With("handler", "inbox"),
	}
}

func (h *inboxHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/inbox",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.list},
			{Method: "GET", Pattern: "/download/{id...}", Handler: h.download},
		},
	}
}

// list returns the files awaiting the next ingestion run.
func (h *inboxHandler) list(w http.ResponseWriter, r *http.Request) {
	objects, err := h.src.List(r.Context())
	if err != nil {
		handlers.RespondError(
			w, h.logger,
			source.MapHTTPStatus(err), err,
		)
		return
	}
	if objects == nil {
		objects = []source.Object{}
	}

	handlers.RespondJSON(w, http.StatusOK, objects)
}

func (h *inboxHandler) download(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	data, err := h.src.Download(r.Context(), id)
	if err != nil {
		handlers.RespondError(
			w, h.logger,
			source.MapHTTPStatus(err), err,
		)
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set(
		"Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", path.Base(id)),
	)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
