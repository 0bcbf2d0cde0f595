package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/JaimeStill/manifest/internal/api"
	"github.com/JaimeStill/manifest/internal/config"
	"github.com/JaimeStill/manifest/internal/infrastructure"
	"github.com/JaimeStill/manifest/pkg/auth"
	"github.com/JaimeStill/manifest/pkg/middleware"
	"github.com/JaimeStill/manifest/pkg/module"
	"github.com/JaimeStill/manifest/pkg/openapi"
	"github.com/JaimeStill/manifest/web/scalar"
)

const specPath = "/openapi.json"

type Modules struct {
	API    *module.Module
	Scalar *module.Module
	spec   []byte
}

func NewModules(ctx context.Context, infra *infrastructure.Infrastructure, cfg *config.Config) (*Modules, error) {
	runtime := api.NewRuntime(cfg, infra)

	domain, err := api.NewDomain(cfg, runtime)
	if err != nil {
		return nil, err
	}

	var verifier auth.Verifier
	if cfg.Auth.Enabled() {
		oidc, err := auth.NewOIDC(ctx, &cfg.Auth)
		if err != nil {
			return nil, fmt.Errorf("auth init failed: %w", err)
		}
		verifier = oidc
	}

	spec, err := openapi.MarshalJSON(api.NewSpec(cfg))
	if err != nil {
		return nil, fmt.Errorf("openapi spec: %w", err)
	}

	scalarModule := scalar.NewModule("/scalar", specPath)
	scalarModule.Use(middleware.Logger(infra.Logger))

	return &Modules{
		API:    api.NewModule(cfg, runtime, domain, verifier),
		Scalar: scalarModule,
		spec:   spec,
	}, nil
}

func (m *Modules) Mount(router *module.Router) {
	router.Mount(m.API)
	router.Mount(m.Scalar)
	router.HandleNative("GET "+specPath, openapi.ServeSpec(m.spec))
}

func buildRouter(infra *infrastructure.Infrastructure) *module.Router {
	router := module.NewRouter()

	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	router.HandleNative("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !infra.Lifecycle.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "not ready"})
			return
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	})

	return router
}
