package sheets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"
)

// XLSX is a workbook backed by a local .xlsx file. An empty path keeps the
// workbook in memory, which is how exports and tests use it.
type XLSX struct {
	mu   sync.Mutex
	file *excelize.File
	path string
}

// OpenXLSX opens path, creating the workbook when it does not exist, and
// ensures each named sheet is present.
func OpenXLSX(path string, sheetNames ...string) (*XLSX, error) {
	var f *excelize.File

	if path != "" {
		opened, err := excelize.OpenFile(path)
		switch {
		case err == nil:
			f = opened
		case errors.Is(err, fs.ErrNotExist):
			f = excelize.NewFile()
		default:
			return nil, fmt.Errorf("open workbook %s: %w", path, err)
		}
	} else {
		f = excelize.NewFile()
	}

	x := &XLSX{file: f, path: path}
	for _, name := range sheetNames {
		if err := x.ensureSheet(name); err != nil {
			f.Close()
			return nil, err
		}
	}
	return x, nil
}

// Table returns a Table bound to the named sheet.
func (x *XLSX) Table(name string) Table {
	return &xlsxTable{book: x, sheet: name}
}

// WriteTo streams the workbook as .xlsx bytes.
func (x *XLSX) WriteTo(w io.Writer) (int64, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.file.WriteTo(w)
}

// Close releases the workbook.
func (x *XLSX) Close() error {
	return x.file.Close()
}

func (x *XLSX) ensureSheet(name string) error {
	idx, err := x.file.GetSheetIndex(name)
	if err != nil {
		return fmt.Errorf("lookup sheet %s: %w", name, err)
	}
	if idx >= 0 {
		return nil
	}

	// A fresh workbook ships with an empty Sheet1; rename it for the first tab.
	if sheets := x.file.GetSheetList(); len(sheets) == 1 && sheets[0] == "Sheet1" && x.isEmpty("Sheet1") && name != "Sheet1" {
		return x.file.SetSheetName("Sheet1", name)
	}

	if _, err := x.file.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}
	return nil
}

func (x *XLSX) isEmpty(sheet string) bool {
	rows, err := x.file.GetRows(sheet)
	return err == nil && len(rows) == 0
}

func (x *XLSX) save() error {
	if x.path == "" {
		return nil
	}
	if err := x.file.SaveAs(x.path); err != nil {
		return fmt.Errorf("%w: save %s: %w", ErrUnavailable, x.path, err)
	}
	return nil
}

type xlsxTable struct {
	book  *XLSX
	sheet string
}

func (t *xlsxTable) Name() string {
	return t.sheet
}

func (t *xlsxTable) Read(ctx context.Context, rng string) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r, err := ParseRange(rng)
	if err != nil {
		return nil, err
	}

	t.book.mu.Lock()
	defer t.book.mu.Unlock()

	rows, err := t.book.file.GetRows(t.sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s!%s: %w", ErrUnavailable, t.sheet, rng, err)
	}

	end := r.EndRow
	if end == 0 || end > len(rows) {
		end = len(rows)
	}

	out := make([][]string, 0, max(end-r.StartRow+1, 0))
	for i := r.StartRow; i <= end; i++ {
		src := rows[i-1]
		row := make([]string, 0, r.Width())
		for c := r.StartCol; c <= r.EndCol && c <= len(src); c++ {
			row = append(row, src[c-1])
		}
		out = append(out, trimTrailing(row))
	}

	for len(out) > 0 && len(out[len(out)-1]) == 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (t *xlsxTable) Append(ctx context.Context, rows [][]string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	t.book.mu.Lock()
	defer t.book.mu.Unlock()

	existing, err := t.book.file.GetRows(t.sheet)
	if err != nil {
		return 0, fmt.Errorf("%w: append %s: %w", ErrUnavailable, t.sheet, err)
	}

	first := len(existing) + 1
	if err := t.write(first, 1, rows); err != nil {
		return 0, err
	}
	if err := t.book.save(); err != nil {
		return 0, err
	}
	return first, nil
}

func (t *xlsxTable) Update(ctx context.Context, rng string, rows [][]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r, err := ParseRange(rng)
	if err != nil {
		return err
	}

	t.book.mu.Lock()
	defer t.book.mu.Unlock()

	if err := t.write(r.StartRow, r.StartCol, rows); err != nil {
		return err
	}
	return t.book.save()
}

func (t *xlsxTable) BatchUpdate(ctx context.Context, updates []Update) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	parsed := make([]Range, len(updates))
	for i, u := range updates {
		r, err := ParseRange(u.Range)
		if err != nil {
			return err
		}
		parsed[i] = r
	}

	t.book.mu.Lock()
	defer t.book.mu.Unlock()

	for i, u := range updates {
		if err := t.write(parsed[i].StartRow, parsed[i].StartCol, u.Values); err != nil {
			return err
		}
	}
	return t.book.save()
}

func (t *xlsxTable) write(startRow, startCol int, rows [][]string) error {
	for i, row := range rows {
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(startCol+j, startRow+i)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrInvalidRange, err)
			}
			if err := t.book.file.SetCellStr(t.sheet, cell, v); err != nil {
				return fmt.Errorf("%w: write %s!%s: %w", ErrUnavailable, t.sheet, cell, err)
			}
		}
	}
	return nil
}

func trimTrailing(row []string) []string {
	n := len(row)
	for n > 0 && strings.TrimSpace(row[n-1]) == "" {
		n--
	}
	return row[:n]
}
