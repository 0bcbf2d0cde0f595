package commit

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/JaimeStill/manifest/internal/roster"
	"github.com/JaimeStill/manifest/internal/tickets"
)

// Route decides the destination block from the journey date alone: on or
// after cutoff is a departure.
func Route(journey, cutoff time.Time) roster.Block {
	if !day(journey).Before(day(cutoff)) {
		return roster.Departure
	}
	return roster.Arrival
}

// ParseDate reads a sheet date. ISO dates are tried first; anything else
// falls back to month-first free-form parsing.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized date %q: %w", s, err)
	}
	return day(t), nil
}

// BuildEntry assembles the guest record entry for row in block b. Arrival
// entries for trains carry the arrival date when one was extracted.
func BuildEntry(row tickets.Row, b roster.Block, dateFormat string) (roster.Entry, error) {
	date := row.JourneyDate
	t := first(row.DepartureTime, row.ArrivalTime)

	if b == roster.Arrival {
		if row.Category == tickets.CategoryTrain && row.ArrivalDate != "" {
			date = row.ArrivalDate
		}
		t = first(row.ArrivalTime, row.DepartureTime)
	}

	parsed, err := ParseDate(date)
	if err != nil {
		return roster.Entry{}, err
	}

	return roster.Entry{
		Date:    parsed.Format(dateFormat),
		Mode:    string(row.Category),
		Seat:    row.Seat,
		Number:  row.CarrierNumber,
		Carrier: row.CarrierName,
		Time:    t,
	}, nil
}

// Slot picks where e goes in entries. written is true when an identical
// entry is already present. ok is false when the block is full.
func Slot(entries []roster.Entry, e roster.Entry) (slot int, written, ok bool) {
	for i, existing := range entries {
		if !existing.Empty() && existing.Same(e) {
			return i, true, true
		}
	}
	for i, existing := range entries {
		if existing.Empty() {
			return i, false, true
		}
	}
	return -1, false, false
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func first(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
