package tickets

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/JaimeStill/manifest/pkg/pagination"
	"github.com/JaimeStill/manifest/pkg/sheets"
)

type repo struct {
	store      *Store
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a ticket System over the row store.
func New(store *Store, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		store:      store,
		logger:     logger.With("system", "tickets"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Row], error) {
	page.Normalize(r.pagination)

	rows, err := r.store.Rows(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]Row, 0, len(rows))
	for _, row := range rows {
		if filters.Match(row) && matchSearch(row, page.Search) {
			matched = append(matched, row)
		}
	}
	sortRows(matched, page.Sort)

	total := len(matched)
	start := min(page.Offset(), total)
	end := min(start+page.PageSize, total)

	result := pagination.NewPageResult(matched[start:end], total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, number int) (*Row, error) {
	row, err := r.store.Row(ctx, number)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repo) Approve(ctx context.Context, number int, cmd ApproveCommand) (*Row, error) {
	row, err := r.store.Row(ctx, number)
	if err != nil {
		return nil, err
	}

	switch row.State() {
	case StateError, StateCommitted:
		return nil, fmt.Errorf("%w: row %d is %s", ErrInvalidTransition, number, row.State())
	}

	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		name = row.Approved
	}
	if cmd.Approved && name == "" {
		return nil, fmt.Errorf("%w: approved name required", ErrInvalidRow)
	}

	row.Approved = name
	row.ApprovalFlag = "FALSE"
	if cmd.Approved {
		row.ApprovalFlag = "TRUE"
	}

	if err := r.store.Write(ctx, row); err != nil {
		return nil, err
	}

	r.logger.Info("ticket row reviewed",
		"row", number,
		"approved_name", row.Approved,
		"approved", cmd.Approved,
	)
	return &row, nil
}

func (r *repo) Export(ctx context.Context, w io.Writer) error {
	rows, err := r.store.Rows(ctx)
	if err != nil {
		return err
	}

	book, err := sheets.OpenXLSX("", r.store.table.Name())
	if err != nil {
		return fmt.Errorf("create export workbook: %w", err)
	}
	defer book.Close()

	if err := WriteSheet(ctx, book.Table(r.store.table.Name()), rows); err != nil {
		return err
	}

	if _, err := book.WriteTo(w); err != nil {
		return fmt.Errorf("write export workbook: %w", err)
	}
	return nil
}

// WriteSheet writes the header and rows into table at their original row
// numbers.
func WriteSheet(ctx context.Context, table sheets.Table, rows []Row) error {
	updates := make([]sheets.Update, 0, len(rows)+1)
	updates = append(updates, sheets.Update{
		Range:  sheets.RowRange(1, FirstColumn, LastColumn),
		Values: [][]string{Header},
	})
	for _, row := range rows {
		updates = append(updates, sheets.Update{
			Range:  row.Range(),
			Values: [][]string{row.Values()},
		})
	}

	if err := table.BatchUpdate(ctx, updates); err != nil {
		return fmt.Errorf("write sheet %s: %w", table.Name(), err)
	}
	return nil
}
