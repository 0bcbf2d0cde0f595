package api

import (
	"fmt"

	"github.com/JaimeStill/manifest/internal/classify"
	"github.com/JaimeStill/manifest/internal/commit"
	"github.com/JaimeStill/manifest/internal/config"
	"github.com/JaimeStill/manifest/internal/documents"
	"github.com/JaimeStill/manifest/internal/extract"
	"github.com/JaimeStill/manifest/internal/matching"
	"github.com/JaimeStill/manifest/internal/pipeline"
	"github.com/JaimeStill/manifest/internal/pnr"
	"github.com/JaimeStill/manifest/internal/preprocess"
	"github.com/JaimeStill/manifest/internal/recovery"
	"github.com/JaimeStill/manifest/internal/roster"
	"github.com/JaimeStill/manifest/internal/tickets"
)

// Domain holds all domain systems that comprise the API.
// Documents is nil when persistence is in memory.
type Domain struct {
	Tickets   tickets.System
	Documents documents.System
	Pipeline  *pipeline.Pipeline
}

// NewDomain creates all domain systems from the runtime. The CLI and the
// function entry point share it with the HTTP server.
func NewDomain(cfg *config.Config, runtime *Runtime) (*Domain, error) {
	logger := runtime.Logger

	rows := tickets.NewStore(runtime.Workbook.Tickets, logger)
	guests := roster.NewStore(runtime.Workbook.Master, cfg.Commit.Layout(), logger)

	recognizer, err := recovery.New(&cfg.OCR, runtime.Retry, logger)
	if err != nil {
		return nil, fmt.Errorf("ocr init failed: %w", err)
	}

	lookup, err := pnr.New(&cfg.PNR, runtime.Retry, logger)
	if err != nil {
		return nil, fmt.Errorf("pnr init failed: %w", err)
	}

	domain := &Domain{
		Tickets: tickets.New(rows, logger, runtime.Pagination),
	}

	rt := &pipeline.Runtime{
		Source:     runtime.Source,
		Recoverer:  preprocess.New(&cfg.Preprocess, recognizer, nil, logger),
		Classifier: classify.New(classify.DefaultVocabulary()),
		Extractor:  extract.New(lookup, logger),
		Rows:       rows,
		Roster:     guests,
		Matcher:    matching.New(cfg.Matching),
		Committer:  commit.NewRouter(rows, guests, runtime.Ledger, cfg.Commit, logger),
		Retry:      runtime.Retry,
		Logger:     logger,
	}

	if runtime.Database != nil {
		domain.Documents = documents.New(
			runtime.Database.Connection(),
			runtime.Source,
			logger,
			runtime.Pagination,
		)
		rt.Registry = domain.Documents
	}

	domain.Pipeline = pipeline.New(rt, cfg.Pipeline)
	return domain, nil
}
