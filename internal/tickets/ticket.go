// Package tickets defines the ticket row model shared by every pipeline stage:
// the files being ingested, the text recovered from them, the structured
// tickets extracted from that text, and the A–R rows persisted in the ticket
// sheet together with their review and commit state.
package tickets

import "strings"

// Category is the document class decided by classification. ERROR never
// comes out of the classifier; it marks rows whose extraction failed.
type Category string

const (
	CategoryTrain   Category = "TRAIN"
	CategoryFlight  Category = "FLIGHT"
	CategoryUnknown Category = "UNKNOWN"
	CategoryError   Category = "ERROR"
)

// Kind is the content kind of an ingested file.
type Kind string

const (
	KindPDF     Kind = "PDF"
	KindImage   Kind = "IMAGE"
	KindUnknown Kind = "UNKNOWN"
)

// File is a ticket file as listed and downloaded from the source.
type File struct {
	ID          string
	Name        string
	ContentType string
	Kind        Kind
	Data        []byte
}

// Fragment is the recognized text of one page under one enhancement pass.
type Fragment struct {
	Page       int     `json:"page"`
	Pass       string  `json:"pass"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// RecoveredDocument is the preprocessor output for one file.
type RecoveredDocument struct {
	Fragments     []Fragment `json:"fragments"`
	Pages         int        `json:"pages"`
	DecodeFailure bool       `json:"decode_failure"`
	Reason        string     `json:"reason,omitempty"`
}

// Text joins fragment text in page order.
func (d RecoveredDocument) Text() string {
	parts := make([]string, 0, len(d.Fragments))
	for _, f := range d.Fragments {
		if t := strings.TrimSpace(f.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

// Ticket is one extracted row: a single passenger on a single ticket, or a
// single ERROR record for a file that could not be extracted.
type Ticket struct {
	Category      Category `json:"category"`
	JourneyDate   string   `json:"journey_date"`
	DepartureTime string   `json:"departure_time"`
	ArrivalDate   string   `json:"arrival_date"`
	ArrivalTime   string   `json:"arrival_time"`
	Seat          string   `json:"seat"`
	Details       string   `json:"details"`
	Passenger     string   `json:"passenger"`
	CarrierNumber string   `json:"carrier_number"`
	CarrierName   string   `json:"carrier_name"`
	// Status holds booking status for trains and the route for flights.
	Status string `json:"status"`
	PNR    string `json:"pnr"`
	Source string `json:"source"`
	// Verified is false for train rows whose live lookup failed.
	Verified bool   `json:"verified"`
	Reason   string `json:"reason,omitempty"`
}

// Failed builds an ERROR ticket carrying whatever partial data was gathered.
func Failed(partial Ticket, reason string) Ticket {
	partial.Category = CategoryError
	if strings.TrimSpace(reason) == "" {
		reason = "extraction failed"
	}
	partial.Reason = reason
	partial.Verified = false
	return partial
}
