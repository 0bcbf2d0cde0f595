package tickets

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/manifest/pkg/sheets"
)

// Store persists ticket rows in the ticket sheet. Every write covers a whole
// A–R row in a single range update.
type Store struct {
	table  sheets.Table
	logger *slog.Logger
}

// NewStore binds a Store to the ticket sheet.
func NewStore(table sheets.Table, logger *slog.Logger) *Store {
	return &Store{
		table:  table,
		logger: logger.With("store", "tickets", "sheet", table.Name()),
	}
}

// EnsureHeader writes the header row when the sheet is empty.
func (s *Store) EnsureHeader(ctx context.Context) error {
	rows, err := s.table.Read(ctx, sheets.RowRange(1, FirstColumn, LastColumn))
	if err != nil {
		return fmt.Errorf("%w: read header: %w", ErrStoreUnavailable, err)
	}
	if len(rows) > 0 && !IsBlank(rows[0]) {
		return nil
	}

	if err := s.table.Update(ctx, sheets.RowRange(1, FirstColumn, LastColumn), [][]string{Header}); err != nil {
		return fmt.Errorf("%w: write header: %w", ErrStoreUnavailable, err)
	}
	s.logger.Info("ticket header written")
	return nil
}

// Rows reads every non-blank data row.
func (s *Store) Rows(ctx context.Context) ([]Row, error) {
	values, err := s.table.Read(ctx, FirstColumn+"2:"+LastColumn)
	if err != nil {
		return nil, fmt.Errorf("%w: read ticket rows: %w", ErrStoreUnavailable, err)
	}

	rows := make([]Row, 0, len(values))
	for i, cells := range values {
		if IsBlank(cells) {
			continue
		}
		rows = append(rows, RowFromValues(i+2, cells))
	}
	return rows, nil
}

// Row reads a single data row by sheet row number.
func (s *Store) Row(ctx context.Context, number int) (Row, error) {
	if number < 2 {
		return Row{}, fmt.Errorf("%w: row %d", ErrInvalidRow, number)
	}

	values, err := s.table.Read(ctx, sheets.RowRange(number, FirstColumn, LastColumn))
	if err != nil {
		return Row{}, fmt.Errorf("%w: read row %d: %w", ErrStoreUnavailable, number, err)
	}
	if len(values) == 0 || IsBlank(values[0]) {
		return Row{}, fmt.Errorf("%w: row %d", ErrRowNotFound, number)
	}
	return RowFromValues(number, values[0]), nil
}

// Append records extracted tickets as new rows and returns them numbered.
func (s *Store) Append(ctx context.Context, batch []Ticket) ([]Row, error) {
	if len(batch) == 0 {
		return nil, nil
	}

	rows := make([]Row, len(batch))
	values := make([][]string, len(batch))
	for i, t := range batch {
		rows[i] = NewRow(t)
		values[i] = rows[i].Values()
	}

	first, err := s.table.Append(ctx, values)
	if err != nil {
		return nil, fmt.Errorf("%w: append %d rows: %w", ErrStoreUnavailable, len(batch), err)
	}
	for i := range rows {
		rows[i].Number = first + i
	}

	s.logger.Info("ticket rows appended", "count", len(rows), "first_row", first)
	return rows, nil
}

// Write overwrites the given rows in place.
func (s *Store) Write(ctx context.Context, rows ...Row) error {
	if len(rows) == 0 {
		return nil
	}

	updates := make([]sheets.Update, 0, len(rows))
	for _, r := range rows {
		if r.Number < 2 {
			return fmt.Errorf("%w: row %d", ErrInvalidRow, r.Number)
		}
		updates = append(updates, sheets.Update{
			Range:  r.Range(),
			Values: [][]string{r.Values()},
		})
	}

	if err := s.table.BatchUpdate(ctx, updates); err != nil {
		return fmt.Errorf("%w: write %d rows: %w", ErrStoreUnavailable, len(rows), err)
	}
	return nil
}
