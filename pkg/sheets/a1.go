package sheets

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Range is a parsed A1 range. Columns and rows are 1-based; EndRow of 0
// means the range is open-ended downward.
type Range struct {
	StartCol int
	StartRow int
	EndCol   int
	EndRow   int
}

// ParseRange parses "A2:R", "I5:N5", "AE7" and similar A1 strings.
func ParseRange(s string) (Range, error) {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, "!"); i >= 0 {
		s = s[i+1:]
	}
	if s == "" {
		return Range{}, fmt.Errorf("%w: empty", ErrInvalidRange)
	}

	start, end, hasEnd := strings.Cut(s, ":")

	sc, sr, err := parseRef(start)
	if err != nil {
		return Range{}, err
	}
	if sr == 0 {
		sr = 1
	}

	r := Range{StartCol: sc, StartRow: sr, EndCol: sc, EndRow: sr}
	if !hasEnd {
		return r, nil
	}

	ec, er, err := parseRef(end)
	if err != nil {
		return Range{}, err
	}
	r.EndCol = ec
	r.EndRow = er
	if ec < sc || (er != 0 && er < sr) {
		return Range{}, fmt.Errorf("%w: %s is inverted", ErrInvalidRange, s)
	}
	return r, nil
}

// String renders the range back to A1 notation.
func (r Range) String() string {
	start := ColumnName(r.StartCol) + strconv.Itoa(r.StartRow)
	if r.EndCol == r.StartCol && r.EndRow == r.StartRow {
		return start
	}
	end := ColumnName(r.EndCol)
	if r.EndRow > 0 {
		end += strconv.Itoa(r.EndRow)
	}
	return start + ":" + end
}

// Width is the number of columns spanned.
func (r Range) Width() int {
	return r.EndCol - r.StartCol + 1
}

// ColumnName converts a 1-based column number to letters (1 -> A, 31 -> AE).
func ColumnName(n int) string {
	name, err := excelize.ColumnNumberToName(n)
	if err != nil {
		return ""
	}
	return name
}

// ColumnIndex converts column letters to a 1-based number (A -> 1, AJ -> 36).
func ColumnIndex(name string) (int, error) {
	n, err := excelize.ColumnNameToNumber(name)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidRange, err)
	}
	return n, nil
}

// RowRange builds the A1 range spanning columns from..to on a single row.
func RowRange(row int, from, to string) string {
	return fmt.Sprintf("%s%d:%s%d", from, row, to, row)
}

func parseRef(ref string) (col, row int, err error) {
	ref = strings.ToUpper(strings.TrimSpace(ref))
	i := 0
	for i < len(ref) && ref[i] >= 'A' && ref[i] <= 'Z' {
		i++
	}
	if i == 0 {
		return 0, 0, fmt.Errorf("%w: %q has no column", ErrInvalidRange, ref)
	}

	col, err = ColumnIndex(ref[:i])
	if err != nil {
		return 0, 0, err
	}

	if i == len(ref) {
		return col, 0, nil
	}

	row, err = strconv.Atoi(ref[i:])
	if err != nil || row < 1 {
		return 0, 0, fmt.Errorf("%w: %q has invalid row", ErrInvalidRange, ref)
	}
	return col, row, nil
}
