// Package source lists, downloads and archives the ticket files awaiting
// ingestion. Every backend exposes an inbox and a processed area; a file moves
// from the former to the latter once its rows have been recorded.
package source

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/JaimeStill/manifest/pkg/lifecycle"
)

// Object describes one file in the inbox.
type Object struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	ModifiedAt  time.Time `json:"modified_at"`
}

// System is the capability the ingestion pipeline needs from a file store.
type System interface {
	// Start registers lifecycle hooks (container or bucket readiness checks).
	Start(lc *lifecycle.Coordinator) error
	// List returns the files currently waiting in the inbox.
	List(ctx context.Context) ([]Object, error)
	// Download returns the full content of the file identified by id.
	Download(ctx context.Context, id string) ([]byte, error)
	// MoveToProcessed archives the file so later listings no longer return it.
	MoveToProcessed(ctx context.Context, id string) error
	// Upload places a new file in the inbox.
	Upload(ctx context.Context, name string, r io.Reader, contentType string) (Object, error)
}

func validateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if strings.Contains(key, "..") {
		return ErrInvalidKey
	}
	return nil
}

func joinPrefix(prefix, name string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// baseName strips the inbox prefix from an object key.
func baseName(key string) string {
	if i := strings.LastIndex(key, "/"); i >= 0 {
		return key[i+1:]
	}
	return key
}

func readAll(rc io.ReadCloser) ([]byte, error) {
	defer rc.Close()
	return io.ReadAll(rc)
}
