package extract

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/JaimeStill/manifest/internal/pnr"
	"github.com/JaimeStill/manifest/internal/tickets"
)

var (
	trainBlocklist = regexp.MustCompile(`(?i)\b(CHECK TIMINGS|PASSENGER DETAILS|ELECTRONIC RESERVATION|BOOKED FROM|BOARDING AT|TRANSACTION ID|ACRONYMS|NAME|AGE|GENDER|BOOKING STATUS|CURRENT STATUS|PASSENGER STATUS|COACH|SEAT|BERTH|CHART NOT PREPARED|CATERING SERVICE)\b`)

	irctcPassenger = regexp.MustCompile(`(?i)^\d+\.\s+([A-Z!|I][A-Z!\s|I]+?)\s+(\d{1,3})\s+(MALE|FEMALE|M|F|[|I])\s+[|\s]*(CNF|WL|RAC|VEG)`)
	ixigoPassenger = regexp.MustCompile(`(?i)^\d+\.\s+([A-Z][A-Za-z\s]+?),\s*(\d{1,3})\s*,\s*([MF])\s*$`)
	appPassenger   = regexp.MustCompile(`^[A-Z][A-Z\s]{3,40}$`)
	genderAgeLine  = regexp.MustCompile(`(?i)^(MALE|FEMALE|M|F)\s*[|,]?\s*\d{1,3}\s*(YRS|YEARS|Y)?\b`)
	bookingStatus  = regexp.MustCompile(`(?i)\b(CNF|RAC|GNWL|RLWL|PQWL|TQWL|WL)\b(?:\s*/\s*|\s+)?([A-Z0-9]+(?:/[A-Z0-9]+)*)?`)

	trainNumberName = regexp.MustCompile(`\b(\d{5})\s*/\s*([A-Za-z][A-Za-z .'-]{2,40})`)
	trainLabel      = regexp.MustCompile(`(?i)train\s*(?:no\.?|number|#)?\s*[:\-]?\s*(\d{5})\b(?:\s*[-:]?\s*([A-Za-z][A-Za-z .'-]{2,40}))?`)
	trainNameStop   = regexp.MustCompile(`(?i)\s{2,}|\s(?:SLEEPER|FIRST AC|SECOND AC|THIRD AC|AC CHAIR|CHAIR CAR|EXECUTIVE|GENERAL)\b|\(`)
)

// trainPassenger is one passenger line recognized on a train ticket.
type trainPassenger struct {
	Name   string
	Seat   string
	Status string
}

// trainFields are the journey details recoverable from text alone.
type trainFields struct {
	Number        string
	Name          string
	JourneyDate   string
	DepartureTime string
	ArrivalDate   string
	ArrivalTime   string
}

// Train extracts train tickets. Live lookups enrich the locally recovered
// fields; a failed lookup leaves the rows unverified.
type Train struct {
	lookup pnr.Lookup
	logger *slog.Logger
}

// NewTrain creates the train strategy. A nil lookup disables enrichment.
func NewTrain(lookup pnr.Lookup, logger *slog.Logger) *Train {
	if lookup == nil {
		lookup = pnr.Disabled{}
	}
	return &Train{lookup: lookup, logger: logger}
}

func (s *Train) Extract(ctx context.Context, in Input) []tickets.Ticket {
	base := tickets.Ticket{
		Category: tickets.CategoryTrain,
		Source:   in.Source,
		Verified: true,
	}

	base.PNR = findTrainPNR(in.Text)
	if base.PNR == "" {
		return []tickets.Ticket{tickets.Failed(base, "PNR not found in ticket")}
	}

	local := trainDetails(in.Text)
	passengers := trainPassengers(in.Text)

	status, err := s.lookup.Lookup(ctx, base.PNR)
	if err != nil {
		s.logger.InfoContext(ctx, "recording train rows unverified", "pnr", base.PNR, "error", err)
		base.Verified = false
	}

	fields := local
	if status != nil {
		fields = merge(local, status)
	}
	base.JourneyDate = fields.JourneyDate
	base.DepartureTime = fields.DepartureTime
	base.ArrivalDate = fields.ArrivalDate
	base.ArrivalTime = fields.ArrivalTime
	base.CarrierNumber = fields.Number
	base.CarrierName = fields.Name
	base.Details = details(fields.Number, fields.Name)

	if len(passengers) == 0 {
		return []tickets.Ticket{tickets.Failed(base, "no passengers found")}
	}
	if base.JourneyDate == "" {
		partial := base
		partial.Passenger = joinNames(passengers)
		return []tickets.Ticket{tickets.Failed(partial, "journey date not found")}
	}

	out := make([]tickets.Ticket, 0, len(passengers))
	for i, p := range passengers {
		t := base
		t.Passenger = p.Name
		t.Seat = p.Seat
		t.Status = p.Status
		if status != nil && i < len(status.Passengers) {
			live := status.Passengers[i]
			if seat := live.Seat(); seat != "" {
				t.Seat = seat
			}
			if live.Status != "" {
				t.Status = live.Status
			}
		}
		out = append(out, t)
	}
	return out
}

func merge(local trainFields, status *pnr.Status) trainFields {
	pick := func(live, fallback string) string {
		if live != "" {
			return live
		}
		return fallback
	}
	return trainFields{
		Number:        pick(status.TrainNumber, local.Number),
		Name:          pick(status.TrainName, local.Name),
		JourneyDate:   pick(status.JourneyDate(), local.JourneyDate),
		DepartureTime: pick(status.DepartureTime(), local.DepartureTime),
		ArrivalDate:   pick(status.ArrivalDate(), local.ArrivalDate),
		ArrivalTime:   pick(status.ArrivalTime(), local.ArrivalTime),
	}
}

func details(number, name string) string {
	switch {
	case number != "" && name != "":
		return number + " / " + name
	default:
		return number + name
	}
}

func joinNames(passengers []trainPassenger) string {
	names := make([]string, len(passengers))
	for i, p := range passengers {
		names[i] = p.Name
	}
	return strings.Join(names, ", ")
}

// trainDetails recovers journey fields from labelled text, falling back to
// the first dates and times present.
func trainDetails(text string) trainFields {
	var f trainFields

	if m := trainNumberName.FindStringSubmatch(text); m != nil {
		f.Number, f.Name = m[1], trainName(m[2])
	} else if m := trainLabel.FindStringSubmatch(text); m != nil {
		f.Number, f.Name = m[1], trainName(m[2])
	}

	f.JourneyDate = journeyDate(text)

	times := findTimes(text)
	if seg, ok := segment(text, departLabel); ok {
		f.DepartureTime = firstTime(seg)
	}
	if seg, ok := segment(text, arriveLabel); ok {
		f.ArrivalTime = firstTime(seg)
		f.ArrivalDate = firstDate(seg)
	}
	if f.DepartureTime == "" && len(times) > 0 {
		f.DepartureTime = times[0]
	}
	if f.ArrivalTime == "" && len(times) > 1 && times[1] != f.DepartureTime {
		f.ArrivalTime = times[1]
	}
	return f
}

func trainName(raw string) string {
	if loc := trainNameStop.FindStringIndex(raw); loc != nil {
		raw = raw[:loc[0]]
	}
	return strings.ToUpper(strings.TrimSpace(strings.Trim(raw, " .-'")))
}

// trainPassengers reads IRCTC and ixigo passenger tables. Bare upper-case
// lines, as in app screenshots, are only used when neither table matched.
func trainPassengers(text string) []trainPassenger {
	ls := lines(text)

	var out []trainPassenger
	seen := map[string]bool{}
	add := func(p trainPassenger) {
		key := strings.ToUpper(p.Name)
		if p.Name == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, p)
	}

	for _, line := range ls {
		if len(line) < 4 || trainBlocklist.MatchString(line) {
			continue
		}
		if m := irctcPassenger.FindStringSubmatchIndex(line); m != nil {
			p := trainPassenger{Name: cleanName(line[m[2]:m[3]])}
			p.Seat, p.Status = parseBookingStatus(line[m[8]:])
			add(p)
			continue
		}
		if m := ixigoPassenger.FindStringSubmatch(line); m != nil {
			add(trainPassenger{Name: cleanName(m[1])})
		}
	}
	if len(out) > 0 {
		return out
	}

	var confirmed, loose []trainPassenger
	for i, line := range ls {
		if trainBlocklist.MatchString(line) || !appPassenger.MatchString(line) {
			continue
		}
		words := strings.Fields(line)
		short := false
		for _, w := range words {
			if len(w) < 2 {
				short = true
			}
		}
		if short {
			continue
		}
		p := trainPassenger{Name: cleanName(line)}
		if i+1 < len(ls) && genderAgeLine.MatchString(ls[i+1]) {
			confirmed = append(confirmed, p)
		} else {
			loose = append(loose, p)
		}
	}

	candidates := confirmed
	if len(candidates) == 0 {
		candidates = loose
	}
	for _, p := range candidates {
		add(p)
	}
	return out
}

// parseBookingStatus splits a status cell such as "CNF/B3/34/LB" or
// "WL 12" into a seat and a status.
func parseBookingStatus(s string) (seat, status string) {
	m := bookingStatus.FindStringSubmatch(s)
	if m == nil {
		return "", ""
	}
	status = strings.ToUpper(m[1])
	rest := strings.ToUpper(m[2])
	switch {
	case strings.Contains(rest, "/"):
		seat = rest
	case rest != "" && !strings.ContainsFunc(rest, isLetter):
		status += " " + rest
	}
	return seat, status
}

func isLetter(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')
}
