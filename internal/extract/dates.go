package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

const monthNames = `(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?`

var (
	isoDate      = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	dayMonthYear = regexp.MustCompile(`(?i)\b(\d{1,2})[\s\-/]*` + monthNames + `[\s\-/,']*(\d{4}|\d{2})\b`)
	monthDayYear = regexp.MustCompile(`(?i)\b` + monthNames + `\s+(\d{1,2}),?\s+(\d{4})\b`)
	numericDate  = regexp.MustCompile(`\b(\d{1,2})[/\-.](\d{1,2})[/\-.](\d{4}|\d{2})\b`)
	clockTime    = regexp.MustCompile(`\b([01]?\d|2[0-3]):([0-5]\d)(?::[0-5]\d)?(?:\s*([AaPp][Mm]))?\b`)
	journeyLabel = labels("date of journey", "journey date", "start date", "departure")
	departLabel  = labels("departure")
	arriveLabel  = labels("arrival")
	stopLabel    = labels("arrival", "departure", "start date", "boarding", "booked", "distance", "pnr")
	bookingHints = []string{"book", "generated", "printed", "transaction", "issued"}
)

// dayFirst reads numeric dates as DD/MM/YYYY and never swaps day and month
// on overflow.
var dayFirst = []dateparse.ParserOption{
	dateparse.PreferMonthFirst(false),
	dateparse.RetryAmbiguousDateWithSwap(false),
}

// labels matches any of the given phrases case-insensitively. Alternatives
// are tried in order at each position.
func labels(phrases ...string) *regexp.Regexp {
	quoted := make([]string, len(phrases))
	for i, p := range phrases {
		quoted[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile(`(?i)` + strings.Join(quoted, "|"))
}

// dateMatch is a calendar date found in text.
type dateMatch struct {
	start, end int
	date       time.Time
}

// ISO returns the date as YYYY-MM-DD.
func (d dateMatch) ISO() string { return d.date.Format(time.DateOnly) }

// findDates returns every recognizable date in s in text order. Numeric
// dates are read day first.
func findDates(s string) []dateMatch {
	var found []dateMatch

	add := func(idx []int, y, m, d int) {
		if idx[1] < len(s) && s[idx[1]] == ':' {
			return
		}
		if t, ok := makeDate(y, m, d); ok {
			found = append(found, dateMatch{start: idx[0], end: idx[1], date: t})
		}
	}

	for _, m := range isoDate.FindAllStringSubmatchIndex(s, -1) {
		add(m, atoi(s[m[2]:m[3]]), atoi(s[m[4]:m[5]]), atoi(s[m[6]:m[7]]))
	}
	for _, m := range dayMonthYear.FindAllStringSubmatchIndex(s, -1) {
		add(m, year(s[m[6]:m[7]]), monthOf(s[m[4]:m[5]]), atoi(s[m[2]:m[3]]))
	}
	for _, m := range monthDayYear.FindAllStringSubmatchIndex(s, -1) {
		add(m, year(s[m[6]:m[7]]), monthOf(s[m[2]:m[3]]), atoi(s[m[4]:m[5]]))
	}
	for _, m := range numericDate.FindAllStringSubmatchIndex(s, -1) {
		add(m, year(s[m[6]:m[7]]), atoi(s[m[4]:m[5]]), atoi(s[m[2]:m[3]]))
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].start < found[j].start })

	out := found[:0]
	lastEnd := -1
	for _, d := range found {
		if d.start < lastEnd {
			continue
		}
		out = append(out, d)
		lastEnd = d.end
	}
	return out
}

// firstDate returns the first date in s as YYYY-MM-DD.
func firstDate(s string) string {
	if ds := findDates(s); len(ds) > 0 {
		return ds[0].ISO()
	}
	return ""
}

// findTimes returns every clock time in s as 24h HH:MM.
func findTimes(s string) []string {
	var out []string
	for _, m := range clockTime.FindAllStringSubmatch(s, -1) {
		h, mm := atoi(m[1]), atoi(m[2])
		switch strings.ToUpper(m[3]) {
		case "PM":
			if h < 12 {
				h += 12
			}
		case "AM":
			if h == 12 {
				h = 0
			}
		}
		if h > 23 {
			continue
		}
		out = append(out, pad2(h)+":"+pad2(mm))
	}
	return out
}

func firstTime(s string) string {
	if ts := findTimes(s); len(ts) > 0 {
		return ts[0]
	}
	return ""
}

// segment returns the text following the first match of label, up to the
// next stop label or the end of a short window. Offsets are taken from s
// itself so case folding never shifts them.
func segment(s string, label *regexp.Regexp) (string, bool) {
	loc := label.FindStringIndex(s)
	if loc == nil {
		return "", false
	}

	from := loc[1]
	to := min(len(s), from+48)
	if stop := stopLabel.FindStringIndex(s[from:to]); stop != nil {
		to = from + stop[0]
	}
	return s[from:to], true
}

// journeyDate prefers a labelled journey date and otherwise takes the first
// date that is not on a booking or print line.
func journeyDate(s string) string {
	if seg, ok := segment(s, journeyLabel); ok {
		if d := firstDate(seg); d != "" {
			return d
		}
	}
	for _, d := range findDates(s) {
		if !onBookingLine(s, d.start) {
			return d.ISO()
		}
	}
	return ""
}

func onBookingLine(s string, at int) bool {
	lineStart := strings.LastIndex(s[:at], "\n") + 1
	prefix := strings.ToLower(s[lineStart:at])
	for _, hint := range bookingHints {
		if strings.Contains(prefix, hint) {
			return true
		}
	}
	return false
}

// makeDate validates a candidate by handing its canonical DD/MM/YYYY form
// to dateparse, which rejects impossible days and months.
func makeDate(y, m, d int) (time.Time, bool) {
	if y < 1900 || y > 9999 || m < 1 || d < 1 {
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(fmt.Sprintf("%02d/%02d/%04d", d, m, y), time.UTC, dayFirst...)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func monthOf(s string) int {
	s = strings.ToLower(s)
	if len(s) < 3 {
		return 0
	}
	return int(months[s[:3]])
}

func year(s string) int {
	y := atoi(s)
	if len(s) == 2 {
		y += 2000
	}
	return y
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return -1
	}
	return n
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
