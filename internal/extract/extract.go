// Package extract turns recovered ticket text into per-passenger tickets.
// Each document category has its own strategy; every input yields at least
// one ticket, and documents that cannot be extracted yield exactly one
// ERROR ticket carrying whatever partial data was found.
package extract

import (
	"context"
	"log/slog"

	"github.com/JaimeStill/manifest/internal/pnr"
	"github.com/JaimeStill/manifest/internal/tickets"
)

// Input is one classified document.
type Input struct {
	Source   string
	Category tickets.Category
	Document tickets.RecoveredDocument
	Text     string
}

// Strategy extracts tickets for a single category.
type Strategy interface {
	Extract(ctx context.Context, in Input) []tickets.Ticket
}

// Extractor dispatches documents to the strategy for their category.
type Extractor struct {
	strategies map[tickets.Category]Strategy
	logger     *slog.Logger
}

// New creates an Extractor with the train and flight strategies.
func New(lookup pnr.Lookup, logger *slog.Logger) *Extractor {
	logger = logger.With("system", "extract")
	return &Extractor{
		strategies: map[tickets.Category]Strategy{
			tickets.CategoryTrain:  NewTrain(lookup, logger),
			tickets.CategoryFlight: Flight{},
		},
		logger: logger,
	}
}

// Register replaces or adds the strategy for category.
func (e *Extractor) Register(category tickets.Category, s Strategy) {
	e.strategies[category] = s
}

// Extract returns the tickets for one document. Decode failures and
// unclassified documents become a single ERROR ticket.
func (e *Extractor) Extract(ctx context.Context, in Input) []tickets.Ticket {
	if in.Text == "" {
		in.Text = in.Document.Text()
	}
	partial := tickets.Ticket{Source: in.Source}

	if in.Document.DecodeFailure {
		reason := tickets.ErrDecodeFailure.Error()
		if in.Document.Reason != "" {
			reason += ": " + in.Document.Reason
		}
		return []tickets.Ticket{tickets.Failed(partial, reason)}
	}

	s, ok := e.strategies[in.Category]
	if !ok {
		return []tickets.Ticket{tickets.Failed(partial, tickets.ErrClassificationUnknown.Error())}
	}

	out := s.Extract(ctx, in)
	if len(out) == 0 {
		return []tickets.Ticket{tickets.Failed(partial, tickets.ErrExtractionIncomplete.Error())}
	}

	for _, t := range out {
		if t.Category == tickets.CategoryError {
			e.logger.InfoContext(ctx, "extraction failed", "source", in.Source, "reason", t.Reason)
		}
	}
	return out
}
