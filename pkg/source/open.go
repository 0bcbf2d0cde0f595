package source

import (
	"context"
	"fmt"
	"log/slog"
)

// New creates the configured source backend.
func New(ctx context.Context, cfg *Config, logger *slog.Logger) (System, error) {
	switch cfg.Backend {
	case BackendAzure:
		return NewAzure(cfg, logger)
	case BackendDrive:
		return NewDrive(ctx, cfg, logger)
	case BackendGCS:
		return NewGCS(ctx, cfg, logger)
	case BackendLocal:
		return NewLocal(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown source backend %q", cfg.Backend)
	}
}
