// Package pnr looks up live train reservation status by PNR. Responses are
// validated against an embedded JSON schema before they are trusted.
package pnr

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed response.schema.json
var responseSchema []byte

// Passenger is one berth allocation on the reservation.
type Passenger struct {
	Coach     string `json:"coach"`
	BerthNo   string `json:"berth_no"`
	BerthCode string `json:"berth_code"`
	Status    string `json:"status"`
}

// Seat renders the allocation as coach/berth/code, omitting empty parts.
func (p Passenger) Seat() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{p.Coach, p.BerthNo, p.BerthCode} {
		if s != "" && s != "0" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "/")
}

// Status is a parsed reservation. The Clock flags record whether the
// service supplied a time of day alongside the date.
type Status struct {
	PNR            string      `json:"pnr"`
	TrainNumber    string      `json:"train_number"`
	TrainName      string      `json:"train_name"`
	Departure      time.Time   `json:"departure"`
	DepartureClock bool        `json:"-"`
	Arrival        time.Time   `json:"arrival"`
	ArrivalClock   bool        `json:"-"`
	Passengers     []Passenger `json:"passengers"`
}

// JourneyDate returns the departure date as YYYY-MM-DD, or "" when unknown.
func (s *Status) JourneyDate() string { return formatDate(s.Departure) }

// DepartureTime returns the departure time as HH:MM, or "" when unknown.
func (s *Status) DepartureTime() string { return formatClock(s.Departure, s.DepartureClock) }

// ArrivalDate returns the arrival date as YYYY-MM-DD, or "" when unknown.
func (s *Status) ArrivalDate() string { return formatDate(s.Arrival) }

// ArrivalTime returns the arrival time as HH:MM, or "" when unknown.
func (s *Status) ArrivalTime() string { return formatClock(s.Arrival, s.ArrivalClock) }

type response struct {
	Success bool          `json:"success"`
	Data    *responseData `json:"data"`
}

type responseData struct {
	PNRNumber     text                `json:"pnrNumber"`
	TrainNumber   text                `json:"trainNumber"`
	TrainName     string              `json:"trainName"`
	DateOfJourney string              `json:"dateOfJourney"`
	ArrivalDate   string              `json:"arrivalDate"`
	PassengerList []responsePassenger `json:"passengerList"`
}

type responsePassenger struct {
	BookingCoachID       text `json:"bookingCoachId"`
	CurrentCoachID       text `json:"currentCoachId"`
	BookingBerthNo       text `json:"bookingBerthNo"`
	CurrentBerthNo       text `json:"currentBerthNo"`
	BookingBerthCode     text `json:"bookingBerthCode"`
	CurrentBerthCode     text `json:"currentBerthCode"`
	BookingStatusDetails text `json:"bookingStatusDetails"`
	CurrentStatusDetails text `json:"currentStatusDetails"`
}

// text accepts a JSON string, number or null.
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = text(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*t = text(n.String())
	return nil
}

func compileSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("pnr-response.json", bytes.NewReader(responseSchema)); err != nil {
		return nil, err
	}
	return compiler.Compile("pnr-response.json")
}

// parse validates body against the response schema and converts it to a
// Status. ok is false when the service reported no reservation data.
func parse(schema *jsonschema.Schema, body []byte) (*Status, bool, error) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, false, err
	}
	if err := schema.Validate(doc); err != nil {
		return nil, false, err
	}

	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, false, err
	}
	if !resp.Success || resp.Data == nil {
		return nil, false, nil
	}

	d := resp.Data
	s := &Status{
		PNR:         string(d.PNRNumber),
		TrainNumber: string(d.TrainNumber),
		TrainName:   strings.TrimSpace(d.TrainName),
	}
	s.Departure, s.DepartureClock = parseTimestamp(d.DateOfJourney)
	s.Arrival, s.ArrivalClock = parseTimestamp(d.ArrivalDate)
	for _, p := range d.PassengerList {
		s.Passengers = append(s.Passengers, Passenger{
			Coach:     pick(p.CurrentCoachID, p.BookingCoachID),
			BerthNo:   pick(p.CurrentBerthNo, p.BookingBerthNo),
			BerthCode: pick(p.CurrentBerthCode, p.BookingBerthCode),
			Status:    pick(p.CurrentStatusDetails, p.BookingStatusDetails),
		})
	}
	return s, true, nil
}

// timestampLayouts are tried before falling back to dateparse.
var timestampLayouts = []string{
	"Jan 2, 2006 3:04:05 PM",
	"Jan 2, 2006 3:04 PM",
	"Jan 2, 2006",
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	clock := strings.Contains(s, ":")
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, clock
		}
	}
	if t, err := dateparse.ParseIn(s, time.UTC); err == nil {
		return t, clock
	}
	return time.Time{}, false
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}

func formatClock(t time.Time, clock bool) string {
	if t.IsZero() || !clock {
		return ""
	}
	return t.Format("15:04")
}

func pick(current, booking text) string {
	c := strings.TrimSpace(string(current))
	if c != "" && c != "0" {
		return c
	}
	return strings.TrimSpace(string(booking))
}

