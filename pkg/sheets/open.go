package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/JaimeStill/manifest/pkg/retry"
)

// Workbook pairs the ticket and master tables the service operates on.
type Workbook struct {
	Tickets Table
	Master  Table
	closer  func() error
}

// NewWorkbook wraps two existing tables.
func NewWorkbook(tickets, master Table) *Workbook {
	return &Workbook{Tickets: tickets, Master: master}
}

// Close releases backend resources.
func (w *Workbook) Close() error {
	if w.closer == nil {
		return nil
	}
	return w.closer()
}

// Open builds the ticket and master tables for the configured backend.
func Open(ctx context.Context, cfg *Config, logger *slog.Logger, policy retry.Policy) (*Workbook, error) {
	switch cfg.Backend {
	case BackendGoogle:
		svc, err := NewGoogleService(ctx, cfg.CredentialsFile)
		if err != nil {
			return nil, err
		}
		return &Workbook{
			Tickets: NewGoogle(svc, cfg.SpreadsheetID, cfg.TicketSheet, cfg.TicketInput, policy, logger),
			Master:  NewGoogle(svc, cfg.SpreadsheetID, cfg.MasterSheet, cfg.MasterInput, policy, logger),
		}, nil

	case BackendXLSX:
		if err := os.MkdirAll(filepath.Dir(cfg.XLSXPath), 0o755); err != nil {
			return nil, fmt.Errorf("prepare workbook dir: %w", err)
		}
		x, err := OpenXLSX(cfg.XLSXPath, cfg.TicketSheet, cfg.MasterSheet)
		if err != nil {
			return nil, err
		}
		logger.Info("using local workbook", "system", "sheets", "path", cfg.XLSXPath)
		return &Workbook{
			Tickets: x.Table(cfg.TicketSheet),
			Master:  x.Table(cfg.MasterSheet),
			closer:  x.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown sheets backend %q", cfg.Backend)
	}
}
