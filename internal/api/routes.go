package api

import (
	"net/http"

	"github.com/JaimeStill/manifest/internal/config"
	"github.com/JaimeStill/manifest/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	runtime *Runtime,
) {
	groups := []routes.Group{
		domain.Tickets.Handler().Routes(),
		domain.Pipeline.Handler().Routes(),
		newInboxHandler(runtime.Source, runtime.Logger).routes(),
	}
	if domain.Documents != nil {
		groups = append(groups, domain.Documents.Handler(cfg.API.MaxUploadSizeBytes()).Routes())
	}

	routes.Register(mux, groups...)
}
