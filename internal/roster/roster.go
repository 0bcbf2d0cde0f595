// Package roster reads the canonical guest list from the Master sheet and
// writes travel entries into each guest's fixed arrival and departure blocks.
// Column A holds the canonical spelling of every guest name.
package roster

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/JaimeStill/manifest/internal/matching"
)

// EntryWidth is the number of columns in one travel entry slot.
const EntryWidth = 6

// Block names a destination block in a guest record.
type Block string

const (
	Arrival   Block = "ARRIVAL"
	Departure Block = "DEPARTURE"
)

// Entry is one travel entry: date, mode, seat, carrier number, carrier name
// and time, in column order.
type Entry struct {
	Date    string `json:"date"`
	Mode    string `json:"mode"`
	Seat    string `json:"seat"`
	Number  string `json:"number"`
	Carrier string `json:"carrier"`
	Time    string `json:"time"`
}

// Values returns the entry cells in column order.
func (e Entry) Values() []string {
	return []string{e.Date, e.Mode, e.Seat, e.Number, e.Carrier, e.Time}
}

// Empty reports whether every cell is blank.
func (e Entry) Empty() bool {
	for _, v := range e.Values() {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Same reports whether two entries describe the same journey. Dates compare
// by calendar day so a sheet reformatting 02/10/26 as 2/10/2026 still matches.
func (e Entry) Same(o Entry) bool {
	if !sameDate(e.Date, o.Date) {
		return false
	}
	a, b := e.Values()[1:], o.Values()[1:]
	for i := range a {
		if !strings.EqualFold(strings.TrimSpace(a[i]), strings.TrimSpace(b[i])) {
			return false
		}
	}
	return true
}

func entryFromCells(cells []string) Entry {
	get := func(i int) string {
		if i < len(cells) {
			return strings.TrimSpace(cells[i])
		}
		return ""
	}
	return Entry{
		Date:    get(0),
		Mode:    get(1),
		Seat:    get(2),
		Number:  get(3),
		Carrier: get(4),
		Time:    get(5),
	}
}

func sameDate(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if strings.EqualFold(a, b) {
		return true
	}
	ta, errA := dateparse.ParseIn(a, time.UTC)
	tb, errB := dateparse.ParseIn(b, time.UTC)
	if errA != nil || errB != nil {
		return false
	}
	return ta.Format(time.DateOnly) == tb.Format(time.DateOnly)
}

// Guest is a canonical guest record with its travel blocks.
type Guest struct {
	Name      string  `json:"name"`
	Row       int     `json:"row"`
	Place     string  `json:"place,omitempty"`
	Venue     string  `json:"venue,omitempty"`
	Arrival   []Entry `json:"arrival"`
	Departure []Entry `json:"departure"`
}

// Entries returns the slots of block b.
func (g Guest) Entries(b Block) []Entry {
	if b == Departure {
		return g.Departure
	}
	return g.Arrival
}

// Roster is a loaded snapshot of the Master sheet.
type Roster struct {
	guests []Guest
	byName map[string]int
}

// New indexes guests by folded name. The first occurrence of a name wins.
func New(guests []Guest) *Roster {
	r := &Roster{guests: guests, byName: make(map[string]int, len(guests))}
	for i, g := range guests {
		key := foldName(g.Name)
		if _, ok := r.byName[key]; !ok && key != "" {
			r.byName[key] = i
		}
	}
	return r
}

// Len returns the number of guests.
func (r *Roster) Len() int {
	return len(r.guests)
}

// Guests returns the guests in sheet order.
func (r *Roster) Guests() []Guest {
	return r.guests
}

// Find looks up a guest by exact, case-insensitive canonical name.
func (r *Roster) Find(name string) (Guest, bool) {
	i, ok := r.byName[foldName(name)]
	if !ok {
		return Guest{}, false
	}
	return r.guests[i], true
}

// Identities projects the roster for identity matching.
func (r *Roster) Identities() []matching.Identity {
	ids := make([]matching.Identity, len(r.guests))
	for i, g := range r.guests {
		ids[i] = matching.Identity{Name: g.Name, Row: g.Row, Place: g.Place, Venue: g.Venue}
	}
	return ids
}

// SameName reports whether a and b are the same canonical name.
func SameName(a, b string) bool {
	return foldName(a) == foldName(b)
}

func foldName(name string) string {
	return strings.ToUpper(strings.Join(strings.Fields(name), " "))
}
