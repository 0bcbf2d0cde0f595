// Package documents keeps the ingestion registry: one record per distinct
// ticket file, keyed by content hash, following the file from receipt
// through extraction to archive.
package documents

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Registry statuses, in the order a file moves through them.
const (
	StatusReceived  = "received"
	StatusExtracted = "extracted"
	StatusArchived  = "archived"
)

// Document is the registry record for one ticket file.
type Document struct {
	ID          uuid.UUID  `json:"id"`
	SourceID    string     `json:"source_id"`
	Filename    string     `json:"filename"`
	ContentType string     `json:"content_type"`
	Kind        string     `json:"kind"`
	SizeBytes   int64      `json:"size_bytes"`
	PageCount   *int       `json:"page_count"`
	ContentHash string     `json:"content_hash"`
	Status      string     `json:"status"`
	Category    *string    `json:"category"`
	RowCount    int        `json:"row_count"`
	Reason      *string    `json:"reason"`
	ClaimedAt   *time.Time `json:"claimed_at"`
	ReceivedAt  time.Time  `json:"received_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Recorded reports whether the file's rows were already appended to the
// ticket sheet. A recorded file is never extracted again.
func (d *Document) Recorded() bool {
	return d.Status == StatusExtracted || d.Status == StatusArchived
}

// RegisterCommand carries what the pipeline knows about a downloaded file.
// A received record claimed less than ClaimTimeout ago belongs to another
// run; zero never takes over a live claim.
type RegisterCommand struct {
	SourceID     string
	Filename     string
	ContentType  string
	Kind         string
	Data         []byte
	ClaimTimeout time.Duration
}

// CompleteCommand records the extraction outcome of a registered file.
type CompleteCommand struct {
	Category string
	Pages    int
	RowCount int
	Reason   string
}

// UploadCommand places a new file in the source inbox.
type UploadCommand struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Hash returns the hex SHA-256 of data, the registry's dedupe key.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
