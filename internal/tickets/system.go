package tickets

import (
	"context"
	"io"

	"github.com/JaimeStill/manifest/pkg/pagination"
)

// System defines the public contract for ticket row operations exposed to
// reviewers.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Row], error)

	Find(ctx context.Context, number int) (*Row, error)
	Approve(ctx context.Context, number int, cmd ApproveCommand) (*Row, error)
	Export(ctx context.Context, w io.Writer) error
}

// ApproveCommand records a reviewer decision in columns P and R.
// Approved false clears the flag but keeps the name.
type ApproveCommand struct {
	Name     string `json:"name"`
	Approved bool   `json:"approved"`
}
