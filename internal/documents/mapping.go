package documents

import (
	"net/url"

	"github.com/JaimeStill/manifest/pkg/query"
	"github.com/JaimeStill/manifest/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "ticket_files", "f").
	Project("id", "ID").
	Project("source_id", "SourceID").
	Project("filename", "Filename").
	Project("content_type", "ContentType").
	Project("kind", "Kind").
	Project("size_bytes", "SizeBytes").
	Project("page_count", "PageCount").
	Project("content_hash", "ContentHash").
	Project("status", "Status").
	Project("category", "Category").
	Project("row_count", "RowCount").
	Project("reason", "Reason").
	Project("claimed_at", "ClaimedAt").
	Project("received_at", "ReceivedAt").
	Project("updated_at", "UpdatedAt")

const columns = `id, source_id, filename, content_type, kind, size_bytes, page_count,
	content_hash, status, category, row_count, reason, claimed_at, received_at, updated_at`

var defaultSort = query.SortField{
	Field:      "ReceivedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for registry queries.
// Nil fields are ignored. Filename and SourceID use case-insensitive
// contains matching; the rest match exactly.
type Filters struct {
	Status      *string `json:"status,omitempty"`
	Filename    *string `json:"filename,omitempty"`
	SourceID    *string `json:"source_id,omitempty"`
	Kind        *string `json:"kind,omitempty"`
	Category    *string `json:"category,omitempty"`
	ContentHash *string `json:"content_hash,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Status", f.Status).
		WhereContains("Filename", f.Filename).
		WhereContains("SourceID", f.SourceID).
		WhereEquals("Kind", f.Kind).
		WhereEquals("Category", f.Category).
		WhereEquals("ContentHash", f.ContentHash)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	str := func(key string) *string {
		if v := values.Get(key); v != "" {
			return &v
		}
		return nil
	}

	f.Status = str("status")
	f.Filename = str("filename")
	f.SourceID = str("source_id")
	f.Kind = str("kind")
	f.Category = str("category")
	f.ContentHash = str("content_hash")

	return f
}

func scanDocument(s repository.Scanner) (Document, error) {
	var d Document
	err := s.Scan(
		&d.ID,
		&d.SourceID,
		&d.Filename,
		&d.ContentType,
		&d.Kind,
		&d.SizeBytes,
		&d.PageCount,
		&d.ContentHash,
		&d.Status,
		&d.Category,
		&d.RowCount,
		&d.Reason,
		&d.ClaimedAt,
		&d.ReceivedAt,
		&d.UpdatedAt,
	)
	return d, err
}
