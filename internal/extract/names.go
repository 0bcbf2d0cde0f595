package extract

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	whitespace   = regexp.MustCompile(`\s+`)
	hasDigit     = regexp.MustCompile(`\d`)
	camelWords   = regexp.MustCompile(`[A-Z][a-z]+`)
	titleCaser   = cases.Title(language.Und)
	nameBadWords = []string{"CONFIRMED", "AVAILABLE", "BOOKING", "STATUS", "PASSENGER", "OPTION"}
)

// lines splits s into trimmed, whitespace-collapsed, non-empty lines.
func lines(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		l = whitespace.ReplaceAllString(strings.TrimSpace(l), " ")
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

// cleanName repairs common OCR damage in a recognized name and returns it
// title cased, or "" when the text is not plausibly a name.
func cleanName(raw string) string {
	name := strings.TrimSpace(raw)
	name = strings.NewReplacer("!", "I", "|", "I").Replace(name)
	name = whitespace.ReplaceAllString(name, " ")

	if hasDigit.MatchString(name) || len(name) < 3 {
		return ""
	}
	upper := strings.ToUpper(name)
	for _, bad := range nameBadWords {
		if strings.Contains(upper, bad) {
			return ""
		}
	}

	if !strings.Contains(name, " ") && len(name) > 8 {
		if parts := camelWords.FindAllString(name, -1); len(parts) >= 2 {
			return strings.Join(parts, " ")
		}
	}
	return titleCaser.String(strings.ToLower(name))
}

// appendUnique adds name unless an equal name (ignoring case) is present.
func appendUnique(names []string, name string) []string {
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return names
		}
	}
	return append(names, name)
}
