// Package infrastructure provides core service initialization for application startup.
// It assembles common dependencies (logging, database, file source, workbook)
// that domain systems require.
package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/JaimeStill/manifest/internal/commit"
	"github.com/JaimeStill/manifest/internal/config"
	"github.com/JaimeStill/manifest/pkg/database"
	"github.com/JaimeStill/manifest/pkg/lifecycle"
	"github.com/JaimeStill/manifest/pkg/retry"
	"github.com/JaimeStill/manifest/pkg/sheets"
	"github.com/JaimeStill/manifest/pkg/source"
)

// Infrastructure holds the core systems required by all domain modules.
// Database is nil when persistence is in memory.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Source    source.System
	Workbook  *sheets.Workbook
	Ledger    commit.Ledger
	Retry     retry.Policy
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(ctx context.Context, cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := cfg.Log.NewLogger(os.Stderr)
	policy := cfg.Retry.Policy()

	infra := &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Retry:     policy,
	}

	if cfg.UsesDatabase() {
		db, err := database.New(&cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("database init failed: %w", err)
		}
		infra.Database = db
		infra.Ledger = commit.NewPostgresLedger(db.Connection())
	} else {
		logger.Warn("persistence in memory: registry disabled, commit ledger is per process")
		infra.Ledger = commit.NewMemoryLedger()
	}

	src, err := source.New(ctx, &cfg.Source, logger)
	if err != nil {
		return nil, fmt.Errorf("source init failed: %w", err)
	}
	infra.Source = src

	book, err := sheets.Open(ctx, &cfg.Sheets, logger, policy)
	if err != nil {
		return nil, fmt.Errorf("sheets init failed: %w", err)
	}
	infra.Workbook = book

	return infra, nil
}

// Start registers all infrastructure systems with the lifecycle coordinator.
func (i *Infrastructure) Start() error {
	if i.Database != nil {
		if err := i.Database.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("database start failed: %w", err)
		}
	}
	if err := i.Source.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("source start failed: %w", err)
	}

	i.Lifecycle.OnShutdown(func() {
		<-i.Lifecycle.Context().Done()
		if err := i.Workbook.Close(); err != nil {
			i.Logger.Error("workbook close failed", "error", err)
		}
	})
	return nil
}
