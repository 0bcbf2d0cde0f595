package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/JaimeStill/manifest/internal/tickets"
)

// carrier maps a text term or IATA prefix to an airline name.
type carrier struct {
	term string
	name string
}

// Ordered so longer names win over their prefixes.
var carriers = []carrier{
	{"air india express", "Air India Express"},
	{"air india", "Air India"},
	{"indigo", "IndiGo"},
	{"vistara", "Vistara"},
	{"spicejet", "SpiceJet"},
	{"akasa", "Akasa Air"},
	{"airasia", "AirAsia India"},
}

var carrierCodes = map[string]string{
	"6E": "IndiGo",
	"AI": "Air India",
	"IX": "Air India Express",
	"I5": "AirAsia India",
	"UK": "Vistara",
	"SG": "SpiceJet",
	"QP": "Akasa Air",
}

var (
	flightCode     = regexp.MustCompile(`(?i)\b(IX|I5|AI|6E|UK|SG|QP)\s*[-\s]*(\d{3,4})\b`)
	flightLabel    = regexp.MustCompile(`(?i)Flight\s+(?:No\.?|Number)?\s*[:=\s]*([A-Z0-9]{2})[-\s]?(\d{3,4})\b`)
	flightPNR      = regexp.MustCompile(`(?i)PNR\s*(?:No\.?|Number)?\s*[:=\-]?\s*([A-Z0-9]{6})\b`)
	flightRoute    = regexp.MustCompile(`\b([A-Z][a-z]+(?: [A-Z][a-z]+)?)(?:\s+-\s+|\s*[→–]\s*)([A-Z][a-z]+(?: [A-Z][a-z]+)?)\b`)
	flightSeat     = regexp.MustCompile(`(?i)\bseat\s*(?:no\.?)?\s*[:\-]?\s*(\d{1,2}[A-K])\b`)
	titledAdult    = regexp.MustCompile(`(?i)\b((?:Mrs|Mr|Ms|Miss|Mstr)\.?\s+[A-Z][A-Z\s]+?)\s*\((?:ADULT|CHILD)\)`)
	titledName     = regexp.MustCompile(`(?i)\b((?:Mrs|Mr|Ms|Miss|Mstr)\.?\s+[A-Z][a-z]+\s+[A-Z][a-z]+)\b`)
	leadingTitle   = regexp.MustCompile(`(?i)^(?:Mrs|Mr|Ms|Miss|Mstr)\.?\s+`)
	flightBadWords = []string{
		"ALLOWED", "ITEMS", "BAGGAGE", "BOOKING", "DETAILS", "PAYMENT",
		"TICKET", "FLIGHT", "TERMINAL", "CHECK", "INFORMATION", "IMPORTANT",
		"CONTACT", "CUSTOMER", "SUPPORT", "YATRA", "DIGI", "AVOID",
	}
	pnrNonWords = map[string]bool{"STATUS": true, "NUMBER": true, "DETAIL": true}
)

// Flight extracts flight tickets from text alone.
type Flight struct{}

func (Flight) Extract(ctx context.Context, in Input) []tickets.Ticket {
	text := in.Text
	base := tickets.Ticket{
		Category: tickets.CategoryFlight,
		Source:   in.Source,
		Verified: true,
	}

	base.CarrierNumber = flightNumber(text)
	base.CarrierName = airline(text, base.CarrierNumber)
	base.Details = strings.TrimSpace(base.CarrierName + " " + base.CarrierNumber)
	base.PNR = findFlightPNR(text)
	base.Status = route(text)
	base.JourneyDate = journeyDate(text)

	times := findTimes(text)
	if len(times) >= 2 {
		base.DepartureTime, base.ArrivalTime = times[0], times[1]
	} else if len(times) == 1 {
		base.DepartureTime = times[0]
	}

	names := flightPassengers(text)
	switch {
	case len(names) == 0:
		return []tickets.Ticket{tickets.Failed(base, "no passengers found")}
	case base.JourneyDate == "":
		partial := base
		partial.Passenger = strings.Join(names, ", ")
		return []tickets.Ticket{tickets.Failed(partial, "journey date not found")}
	case base.CarrierNumber == "" && base.PNR == "":
		partial := base
		partial.Passenger = strings.Join(names, ", ")
		return []tickets.Ticket{tickets.Failed(partial, "flight number and PNR not found")}
	}

	seats := flightSeat.FindAllStringSubmatch(text, -1)
	out := make([]tickets.Ticket, 0, len(names))
	for i, name := range names {
		t := base
		t.Passenger = name
		if len(seats) == len(names) {
			t.Seat = strings.ToUpper(seats[i][1])
		}
		out = append(out, t)
	}
	return out
}

func flightNumber(text string) string {
	if m := flightCode.FindStringSubmatch(text); m != nil {
		return strings.ToUpper(m[1]) + " " + m[2]
	}
	if m := flightLabel.FindStringSubmatch(text); m != nil {
		return strings.ToUpper(m[1]) + " " + m[2]
	}
	return ""
}

func airline(text, number string) string {
	lower := strings.ToLower(text)
	for _, c := range carriers {
		if strings.Contains(lower, c.term) {
			return c.name
		}
	}
	if code, _, ok := strings.Cut(number, " "); ok {
		return carrierCodes[code]
	}
	return ""
}

func findFlightPNR(text string) string {
	for _, m := range flightPNR.FindAllStringSubmatch(text, -1) {
		p := strings.ToUpper(m[1])
		if !pnrNonWords[p] {
			return p
		}
	}
	return ""
}

func route(text string) string {
	if m := flightRoute.FindStringSubmatch(text); m != nil {
		return m[1] + " → " + m[2]
	}
	return ""
}

// flightPassengers returns titled passenger names with the title removed,
// keeping only names that pass the plausibility filter.
func flightPassengers(text string) []string {
	var names []string
	for _, re := range []*regexp.Regexp{titledAdult, titledName} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			raw := whitespace.ReplaceAllString(strings.TrimSpace(m[1]), " ")
			if !plausibleFlightName(raw) {
				continue
			}
			name := titleCaser.String(strings.ToLower(leadingTitle.ReplaceAllString(raw, "")))
			names = appendUnique(names, name)
		}
	}
	return names
}

func plausibleFlightName(name string) bool {
	upper := strings.ToUpper(name)
	for _, bad := range flightBadWords {
		if strings.Contains(upper, bad) {
			return false
		}
	}
	return strings.Contains(name, " ") &&
		len(name) >= 5 && len(name) <= 40 &&
		!hasDigit.MatchString(name)
}
