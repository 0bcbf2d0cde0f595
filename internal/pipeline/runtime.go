package pipeline

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/manifest/internal/commit"
	"github.com/JaimeStill/manifest/internal/documents"
	"github.com/JaimeStill/manifest/internal/extract"
	"github.com/JaimeStill/manifest/internal/matching"
	"github.com/JaimeStill/manifest/internal/roster"
	"github.com/JaimeStill/manifest/internal/tickets"
	"github.com/JaimeStill/manifest/pkg/retry"
	"github.com/JaimeStill/manifest/pkg/source"
)

// Source is the file inbox the pipeline drains.
type Source interface {
	List(ctx context.Context) ([]source.Object, error)
	Download(ctx context.Context, id string) ([]byte, error)
	MoveToProcessed(ctx context.Context, id string) error
}

// Registry records which files have already produced rows and which run
// holds a file being extracted. It is optional: without one every listed
// file is extracted and rows already in the sheet are skipped.
type Registry interface {
	Register(ctx context.Context, cmd documents.RegisterCommand) (*documents.Document, error)
	Complete(ctx context.Context, id uuid.UUID, cmd documents.CompleteCommand) (*documents.Document, error)
	Archive(ctx context.Context, id uuid.UUID) error
	Release(ctx context.Context, id uuid.UUID) error
}

// Recoverer turns a file into recovered text.
type Recoverer interface {
	Recover(ctx context.Context, f tickets.File) (tickets.RecoveredDocument, error)
}

// Classifier decides the category of recovered text.
type Classifier interface {
	Classify(text string) tickets.Category
}

// Extractor turns a classified document into tickets.
type Extractor interface {
	Extract(ctx context.Context, in extract.Input) []tickets.Ticket
}

// RowStore is the ticket sheet.
type RowStore interface {
	EnsureHeader(ctx context.Context) error
	Rows(ctx context.Context) ([]tickets.Row, error)
	Append(ctx context.Context, batch []tickets.Ticket) ([]tickets.Row, error)
	Write(ctx context.Context, rows ...tickets.Row) error
}

// RosterLoader reads the guest roster.
type RosterLoader interface {
	Load(ctx context.Context) (*roster.Roster, error)
}

// Committer commits one approved row.
type Committer interface {
	Commit(ctx context.Context, row tickets.Row, guests *roster.Roster) (commit.Result, error)
}

// Runtime bundles the collaborators the pipeline operations require.
// It is assembled by higher-level composition code from infrastructure
// and domain systems.
type Runtime struct {
	Source     Source
	Registry   Registry
	Recoverer  Recoverer
	Classifier Classifier
	Extractor  Extractor
	Rows       RowStore
	Roster     RosterLoader
	Matcher    *matching.Matcher
	Committer  Committer
	Retry      retry.Policy
	Logger     *slog.Logger
}
