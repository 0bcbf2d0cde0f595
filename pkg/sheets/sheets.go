// Package sheets provides row-oriented access to spreadsheet tabs.
// A Table is bound to one named sheet; ranges are A1 notation without the
// sheet prefix. Backends exist for Google Sheets and local XLSX workbooks.
package sheets

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable wraps transport failures talking to the sheet backend.
	ErrUnavailable = errors.New("sheet backend unavailable")
	// ErrInvalidRange indicates a malformed A1 range.
	ErrInvalidRange = errors.New("invalid A1 range")
)

// Table reads and writes rows of a single sheet.
type Table interface {
	// Name returns the sheet (tab) name.
	Name() string
	// Read returns the cell values in rng. Trailing empty cells and rows may be omitted.
	Read(ctx context.Context, rng string) ([][]string, error)
	// Append writes rows after the last non-empty row and returns the 1-based
	// row number of the first appended row.
	Append(ctx context.Context, rows [][]string) (int, error)
	// Update overwrites the cells starting at the top-left of rng.
	Update(ctx context.Context, rng string, rows [][]string) error
	// BatchUpdate applies several range updates in one call.
	BatchUpdate(ctx context.Context, updates []Update) error
}

// Update is a single range write within a BatchUpdate.
type Update struct {
	Range  string
	Values [][]string
}

// Cell returns row[i], or "" when the row is shorter than i+1.
func Cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
