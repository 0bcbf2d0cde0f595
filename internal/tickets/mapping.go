package tickets

import (
	"cmp"
	"net/url"
	"slices"
	"strings"

	"github.com/JaimeStill/manifest/pkg/query"
)

var defaultSort = query.SortField{Field: "Row"}

// Filters narrows row listings. Nil fields are ignored. State, Category and
// PNR match exactly; Source matches by case-insensitive substring.
type Filters struct {
	State    *string `json:"state,omitempty"`
	Category *string `json:"category,omitempty"`
	PNR      *string `json:"pnr,omitempty"`
	Source   *string `json:"source,omitempty"`
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("state"); s != "" {
		f.State = &s
	}
	if c := values.Get("category"); c != "" {
		f.Category = &c
	}
	if p := values.Get("pnr"); p != "" {
		f.PNR = &p
	}
	if s := values.Get("source"); s != "" {
		f.Source = &s
	}

	return f
}

// Match reports whether r satisfies the filters.
func (f Filters) Match(r Row) bool {
	if f.State != nil && !strings.EqualFold(string(r.State()), *f.State) {
		return false
	}
	if f.Category != nil && !strings.EqualFold(string(r.Category), *f.Category) {
		return false
	}
	if f.PNR != nil && !strings.EqualFold(r.PNR, *f.PNR) {
		return false
	}
	if f.Source != nil && !containsFold(r.Source, *f.Source) {
		return false
	}
	return true
}

func matchSearch(r Row, search *string) bool {
	if search == nil || *search == "" {
		return true
	}
	return containsFold(r.Passenger, *search) ||
		containsFold(r.Suggested, *search) ||
		containsFold(r.Approved, *search) ||
		containsFold(r.PNR, *search)
}

func sortRows(rows []Row, fields []query.SortField) {
	if len(fields) == 0 {
		fields = []query.SortField{defaultSort}
	}

	slices.SortStableFunc(rows, func(a, b Row) int {
		for _, f := range fields {
			c := compareField(a, b, f.Field)
			if f.Descending {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return cmp.Compare(a.Number, b.Number)
	})
}

func compareField(a, b Row, field string) int {
	switch strings.ToLower(field) {
	case "passenger":
		return strings.Compare(strings.ToLower(a.Passenger), strings.ToLower(b.Passenger))
	case "journeydate", "journey_date":
		return strings.Compare(a.JourneyDate, b.JourneyDate)
	case "category", "mode":
		return strings.Compare(string(a.Category), string(b.Category))
	case "state":
		return strings.Compare(string(a.State()), string(b.State()))
	case "source":
		return strings.Compare(a.Source, b.Source)
	default:
		return cmp.Compare(a.Number, b.Number)
	}
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
