// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"net/http"

	"github.com/JaimeStill/manifest/internal/config"
	"github.com/JaimeStill/manifest/pkg/auth"
	"github.com/JaimeStill/manifest/pkg/middleware"
	"github.com/JaimeStill/manifest/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
// A nil verifier leaves the routes unauthenticated.
func NewModule(cfg *config.Config, runtime *Runtime, domain *Domain, verifier auth.Verifier) *module.Module {
	mux := http.NewServeMux()
	registerRoutes(mux, domain, cfg, runtime)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Logger))
	if verifier != nil {
		m.Use(auth.Middleware(verifier, runtime.Logger))
	}

	return m
}
