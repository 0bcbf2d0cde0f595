package documents

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/manifest/pkg/pagination"
	"github.com/JaimeStill/manifest/pkg/source"
)

// System defines the public contract for the ingestion registry.
type System interface {
	Handler(maxUploadSize int64) *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Document], error)

	Find(ctx context.Context, id uuid.UUID) (*Document, error)

	// Register claims a downloaded file for extraction, or returns the
	// existing record when identical content was already extracted. A file
	// another run holds a live claim on returns ErrClaimed.
	Register(ctx context.Context, cmd RegisterCommand) (*Document, error)
	// Complete moves a received file to extracted and drops its claim.
	Complete(ctx context.Context, id uuid.UUID, cmd CompleteCommand) (*Document, error)
	// Release drops the claim on a file that is still received so the next
	// run retries it.
	Release(ctx context.Context, id uuid.UUID) error
	// Archive marks the file as moved out of the inbox. Archiving twice is a no-op.
	Archive(ctx context.Context, id uuid.UUID) error

	Upload(ctx context.Context, cmd UploadCommand) (*source.Object, error)
}
