package documents_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/JaimeStill/manifest/internal/documents"
	"github.com/JaimeStill/manifest/pkg/query"
)

func ptr[T any](v T) *T { return &v }

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", documents.ErrNotFound, http.StatusNotFound},
		{"duplicate", documents.ErrDuplicate, http.StatusConflict},
		{"invalid transition", documents.ErrInvalidTransition, http.StatusConflict},
		{"claimed", documents.ErrClaimed, http.StatusConflict},
		{"file too large", documents.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{"invalid file", documents.ErrInvalidFile, http.StatusBadRequest},
		{"unknown error", errors.New("something else"), http.StatusInternalServerError},
		{"wrapped not found", fmt.Errorf("find failed: %w", documents.ErrNotFound), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := documents.MapHTTPStatus(tt.err)
			if got != tt.want {
				t.Errorf("MapHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestHash(t *testing.T) {
	a := documents.Hash([]byte("%PDF-1.4 ticket"))
	b := documents.Hash([]byte("%PDF-1.4 ticket"))
	c := documents.Hash([]byte("%PDF-1.4 other"))

	if a != b {
		t.Error("identical content must hash the same")
	}
	if a == c {
		t.Error("different content must hash differently")
	}
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64", len(a))
	}
}

func TestRecorded(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{documents.StatusReceived, false},
		{documents.StatusExtracted, true},
		{documents.StatusArchived, true},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			d := documents.Document{Status: tt.status}
			if got := d.Recorded(); got != tt.want {
				t.Errorf("Recorded() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFiltersFromQuery(t *testing.T) {
	t.Run("all params present", func(t *testing.T) {
		values := url.Values{
			"status":       {"extracted"},
			"filename":     {"slip"},
			"source_id":    {"inbox/slip.pdf"},
			"kind":         {"PDF"},
			"category":     {"TRAIN"},
			"content_hash": {"abc"},
		}

		f := documents.FiltersFromQuery(values)

		checks := []struct {
			name string
			got  *string
			want string
		}{
			{"Status", f.Status, "extracted"},
			{"Filename", f.Filename, "slip"},
			{"SourceID", f.SourceID, "inbox/slip.pdf"},
			{"Kind", f.Kind, "PDF"},
			{"Category", f.Category, "TRAIN"},
			{"ContentHash", f.ContentHash, "abc"},
		}
		for _, c := range checks {
			if c.got == nil || *c.got != c.want {
				t.Errorf("%s = %v, want %s", c.name, c.got, c.want)
			}
		}
	})

	t.Run("empty params yield nil fields", func(t *testing.T) {
		f := documents.FiltersFromQuery(url.Values{})

		if f.Status != nil || f.Filename != nil || f.SourceID != nil ||
			f.Kind != nil || f.Category != nil || f.ContentHash != nil {
			t.Errorf("filters = %+v, want all nil", f)
		}
	})
}

func TestFiltersApply(t *testing.T) {
	projection := query.
		NewProjectionMap("public", "ticket_files", "f").
		Project("status", "Status").
		Project("filename", "Filename").
		Project("source_id", "SourceID").
		Project("kind", "Kind").
		Project("category", "Category").
		Project("content_hash", "ContentHash")

	t.Run("no filters produces no WHERE clause", func(t *testing.T) {
		b := query.NewBuilder(projection)
		f := documents.Filters{}
		f.Apply(b)
		sql, args := b.Build()

		wantSQL := "SELECT f.status, f.filename, f.source_id, f.kind, f.category, f.content_hash FROM public.ticket_files f"
		if sql != wantSQL {
			t.Errorf("sql = %q, want %q", sql, wantSQL)
		}
		if len(args) != 0 {
			t.Errorf("args = %v, want empty", args)
		}
	})

	t.Run("source id contains filter", func(t *testing.T) {
		b := query.NewBuilder(projection)
		f := documents.Filters{SourceID: ptr("inbox")}
		f.Apply(b)
		_, args := b.Build()

		if len(args) != 1 || args[0] != "%inbox%" {
			t.Errorf("args = %v, want [%%inbox%%]", args)
		}
	})

	t.Run("multiple filters combine with AND", func(t *testing.T) {
		b := query.NewBuilder(projection)
		f := documents.Filters{
			Status:   ptr("archived"),
			Category: ptr("FLIGHT"),
			Filename: ptr("pass"),
		}
		f.Apply(b)
		_, args := b.Build()

		if len(args) != 3 {
			t.Errorf("args length = %d, want 3", len(args))
		}
	})
}
