package tickets

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/JaimeStill/manifest/pkg/sheets"
)

// Ticket sheet columns, zero-based.
const (
	ColJourneyDate = iota
	ColDepartureTime
	ColArrivalDate
	ColArrivalTime
	ColMode
	ColSeat
	ColDetails
	ColPassenger
	ColCarrierNumber
	ColCarrierName
	ColStatus
	ColPNR
	ColSource
	ColSuggested
	ColScore
	ColApproved
	ColCommitStatus
	ColApprovalFlag

	Width
)

// FirstColumn and LastColumn bound the ticket row range.
const (
	FirstColumn = "A"
	LastColumn  = "R"
)

// Header is the ticket sheet header row.
var Header = []string{
	"Journey Date", "Departure Time", "Arrival Date", "Arrival Time",
	"Mode", "Seat", "Details", "Passenger",
	"Carrier Number", "Carrier Name", "Status / Route", "PNR", "Source File",
	"Suggested Name", "Score", "Approved Name", "Commit Status", "Approved",
}

// Commit status values written to column Q.
const (
	StatusCommitted = "COMMITTED"
	StatusSuggested = "SUGGESTED"
	StatusUnmatched = "UNMATCHED"
)

const (
	errorPrefix      = "ERROR"
	unverifiedPrefix = "UNVERIFIED"
)

// State is the review lifecycle position of a row.
type State string

const (
	StateUnmatched State = "UNMATCHED"
	StateSuggested State = "SUGGESTED"
	StateApproved  State = "APPROVED"
	StateCommitted State = "COMMITTED"
	StateError     State = "ERROR"
)

// Row is a persisted ticket sheet row. Number is the 1-based sheet row.
type Row struct {
	Number int `json:"row"`
	Ticket
	Suggested    string `json:"suggested"`
	Score        string `json:"score"`
	Approved     string `json:"approved_name"`
	CommitStatus string `json:"commit_status"`
	ApprovalFlag string `json:"approval_flag"`
}

// State derives the lifecycle state from the row cells.
func (r Row) State() State {
	switch {
	case r.Category == CategoryError, hasPrefixFold(r.CommitStatus, errorPrefix):
		return StateError
	case strings.EqualFold(strings.TrimSpace(r.CommitStatus), StatusCommitted):
		return StateCommitted
	case r.IsApproved():
		return StateApproved
	case strings.TrimSpace(r.Suggested) != "",
		strings.TrimSpace(r.Approved) != "",
		Truthy(r.ApprovalFlag):
		return StateSuggested
	default:
		return StateUnmatched
	}
}

// IsApproved reports whether both approval signals are present.
func (r Row) IsApproved() bool {
	return strings.TrimSpace(r.Approved) != "" && Truthy(r.ApprovalFlag)
}

// ScoreValue parses column O.
func (r Row) ScoreValue() (int, bool) {
	s := strings.TrimSpace(r.Score)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f + 0.5), true
	}
	return 0, false
}

// MarshalJSON adds the derived state.
func (r Row) MarshalJSON() ([]byte, error) {
	type plain Row
	return json.Marshal(struct {
		plain
		State State `json:"state"`
	}{plain(r), r.State()})
}

// Values encodes the row as A–R cells.
func (r Row) Values() []string {
	v := make([]string, Width)
	v[ColJourneyDate] = r.JourneyDate
	v[ColDepartureTime] = r.DepartureTime
	v[ColArrivalDate] = r.ArrivalDate
	v[ColArrivalTime] = r.ArrivalTime
	v[ColMode] = string(r.Category)
	v[ColSeat] = r.Seat
	v[ColDetails] = r.Details
	v[ColPassenger] = r.Passenger
	v[ColCarrierNumber] = r.CarrierNumber
	v[ColCarrierName] = r.CarrierName
	v[ColStatus] = encodeStatus(r.Ticket)
	v[ColPNR] = r.PNR
	v[ColSource] = r.Source
	v[ColSuggested] = r.Suggested
	v[ColScore] = r.Score
	v[ColApproved] = r.Approved
	v[ColCommitStatus] = r.CommitStatus
	v[ColApprovalFlag] = r.ApprovalFlag
	return v
}

// Key identifies the extracted content of a ticket: the A–M cells as
// they read back from the sheet. Review columns N–R are excluded, so a
// reviewed row keeps the key it was appended with.
func (t Ticket) Key() string {
	v := NewRow(t).Values()[:ColSource+1]
	for i := range v {
		v[i] = strings.TrimSpace(v[i])
	}
	return strings.Join(v, "\x1f")
}

// Range returns the A1 range covering this row.
func (r Row) Range() string {
	return sheets.RowRange(r.Number, FirstColumn, LastColumn)
}

// RowFromValues decodes sheet cells into a Row. Short rows are padded.
func RowFromValues(number int, cells []string) Row {
	c := func(i int) string { return strings.TrimSpace(sheets.Cell(cells, i)) }

	r := Row{
		Number: number,
		Ticket: Ticket{
			JourneyDate:   c(ColJourneyDate),
			DepartureTime: c(ColDepartureTime),
			ArrivalDate:   c(ColArrivalDate),
			ArrivalTime:   c(ColArrivalTime),
			Category:      Category(strings.ToUpper(c(ColMode))),
			Seat:          c(ColSeat),
			Details:       c(ColDetails),
			Passenger:     c(ColPassenger),
			CarrierNumber: c(ColCarrierNumber),
			CarrierName:   c(ColCarrierName),
			PNR:           c(ColPNR),
			Source:        c(ColSource),
			Verified:      true,
		},
		Suggested:    c(ColSuggested),
		Score:        c(ColScore),
		Approved:     c(ColApproved),
		CommitStatus: c(ColCommitStatus),
		ApprovalFlag: c(ColApprovalFlag),
	}
	decodeStatus(&r.Ticket, c(ColStatus))
	return r
}

// NewRow wraps a freshly extracted ticket.
func NewRow(t Ticket) Row {
	return Row{Ticket: t}
}

// Truthy reports whether an approval flag cell reads as checked.
func Truthy(s string) bool {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRUE", "YES", "Y", "1", "X", "✓", "✔":
		return true
	}
	return false
}

// IsBlank reports whether every cell is empty.
func IsBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func encodeStatus(t Ticket) string {
	switch {
	case t.Category == CategoryError:
		return errorPrefix + ": " + t.Reason
	case t.Category == CategoryTrain && !t.Verified:
		if t.Status == "" {
			return unverifiedPrefix
		}
		return unverifiedPrefix + ": " + t.Status
	default:
		return t.Status
	}
}

func decodeStatus(t *Ticket, k string) {
	switch {
	case t.Category == CategoryError:
		t.Verified = false
		t.Reason = strings.TrimSpace(strings.TrimPrefix(trimPrefixFold(k, errorPrefix), ":"))
	case t.Category == CategoryTrain && hasPrefixFold(k, unverifiedPrefix):
		t.Verified = false
		t.Status = strings.TrimSpace(strings.TrimPrefix(trimPrefixFold(k, unverifiedPrefix), ":"))
	default:
		t.Status = k
	}
}

func hasPrefixFold(s, prefix string) bool {
	s = strings.TrimSpace(s)
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func trimPrefixFold(s, prefix string) string {
	s = strings.TrimSpace(s)
	if hasPrefixFold(s, prefix) {
		return s[len(prefix):]
	}
	return s
}
