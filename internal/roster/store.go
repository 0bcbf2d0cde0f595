package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JaimeStill/manifest/pkg/sheets"
)

// Roster errors.
var (
	ErrUnavailable  = errors.New("guest store unavailable")
	ErrGuestMissing = errors.New("guest row missing")
	ErrInvalidSlot  = errors.New("invalid entry slot")
)

// Layout locates the destination blocks on the Master sheet.
type Layout struct {
	ArrivalColumn   string
	DepartureColumn string
	Slots           int
}

// DefaultLayout is I:N for arrivals and AE:AJ for departures, one slot each.
func DefaultLayout() Layout {
	return Layout{ArrivalColumn: "I", DepartureColumn: "AE", Slots: 1}
}

// Start returns the 1-based first column of block b.
func (l Layout) Start(b Block) (int, error) {
	col := l.ArrivalColumn
	if b == Departure {
		col = l.DepartureColumn
	}
	return sheets.ColumnIndex(col)
}

// Range returns the A1 range of one slot of block b on row.
func (l Layout) Range(b Block, row, slot int) (string, error) {
	if slot < 0 || slot >= l.Slots {
		return "", fmt.Errorf("%w: %d of %d", ErrInvalidSlot, slot, l.Slots)
	}
	start, err := l.Start(b)
	if err != nil {
		return "", err
	}
	from := start + slot*EntryWidth
	return sheets.RowRange(row, sheets.ColumnName(from), sheets.ColumnName(from+EntryWidth-1)), nil
}

// Validate checks the columns parse and the blocks do not overlap.
func (l Layout) Validate() error {
	if l.Slots < 1 {
		return fmt.Errorf("slots must be positive")
	}
	arr, err := l.Start(Arrival)
	if err != nil {
		return fmt.Errorf("arrival column: %w", err)
	}
	dep, err := l.Start(Departure)
	if err != nil {
		return fmt.Errorf("departure column: %w", err)
	}
	span := l.Slots * EntryWidth
	if arr <= 4 || dep <= 4 {
		return fmt.Errorf("blocks must start after column D")
	}
	if arr < dep+span && dep < arr+span {
		return fmt.Errorf("arrival and departure blocks overlap")
	}
	return nil
}

func (l Layout) lastColumn() int {
	arr, _ := l.Start(Arrival)
	dep, _ := l.Start(Departure)
	return max(arr, dep) + l.Slots*EntryWidth - 1
}

// Store reads and writes the Master sheet.
type Store struct {
	table  sheets.Table
	layout Layout
	logger *slog.Logger
}

// NewStore binds a Store to the Master sheet.
func NewStore(table sheets.Table, layout Layout, logger *slog.Logger) *Store {
	return &Store{
		table:  table,
		layout: layout,
		logger: logger.With("store", "roster", "sheet", table.Name()),
	}
}

// Layout returns the block layout.
func (s *Store) Layout() Layout {
	return s.layout
}

// Load reads every guest row with a non-empty name.
func (s *Store) Load(ctx context.Context) (*Roster, error) {
	rng := "A2:" + sheets.ColumnName(s.layout.lastColumn())
	values, err := s.table.Read(ctx, rng)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrUnavailable, rng, err)
	}

	guests := make([]Guest, 0, len(values))
	for i, cells := range values {
		if g, ok := s.guestFromCells(i+2, cells); ok {
			guests = append(guests, g)
		}
	}

	s.logger.Debug("roster loaded", "guests", len(guests))
	return New(guests), nil
}

// Guest re-reads a single guest row.
func (s *Store) Guest(ctx context.Context, row int) (Guest, error) {
	rng := sheets.RowRange(row, "A", sheets.ColumnName(s.layout.lastColumn()))
	values, err := s.table.Read(ctx, rng)
	if err != nil {
		return Guest{}, fmt.Errorf("%w: read %s: %w", ErrUnavailable, rng, err)
	}
	if len(values) == 0 {
		return Guest{}, fmt.Errorf("%w: row %d", ErrGuestMissing, row)
	}
	g, ok := s.guestFromCells(row, values[0])
	if !ok {
		return Guest{}, fmt.Errorf("%w: row %d", ErrGuestMissing, row)
	}
	return g, nil
}

// WriteEntry writes e into slot of block b on the guest's row.
func (s *Store) WriteEntry(ctx context.Context, row int, b Block, slot int, e Entry) error {
	rng, err := s.layout.Range(b, row, slot)
	if err != nil {
		return err
	}
	if err := s.table.Update(ctx, rng, [][]string{e.Values()}); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrUnavailable, rng, err)
	}
	s.logger.Info("guest entry written", "row", row, "block", b, "slot", slot, "range", rng)
	return nil
}

func (s *Store) guestFromCells(row int, cells []string) (Guest, bool) {
	name := strings.TrimSpace(sheets.Cell(cells, 0))
	if name == "" {
		return Guest{}, false
	}

	g := Guest{
		Name:  name,
		Row:   row,
		Place: strings.TrimSpace(sheets.Cell(cells, 2)),
		Venue: strings.TrimSpace(sheets.Cell(cells, 3)),
	}
	g.Arrival = s.entries(cells, Arrival)
	g.Departure = s.entries(cells, Departure)
	return g, true
}

func (s *Store) entries(cells []string, b Block) []Entry {
	start, _ := s.layout.Start(b)
	out := make([]Entry, s.layout.Slots)
	for slot := range out {
		from := start - 1 + slot*EntryWidth
		slotCells := make([]string, EntryWidth)
		for i := range slotCells {
			slotCells[i] = sheets.Cell(cells, from+i)
		}
		out[slot] = entryFromCells(slotCells)
	}
	return out
}
