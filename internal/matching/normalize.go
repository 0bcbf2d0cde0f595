package matching

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Characters OCR commonly substitutes for letters in names.
var confusables = map[rune]rune{
	'0': 'O',
	'1': 'I',
	'5': 'S',
	'8': 'B',
	'2': 'Z',
	'6': 'G',
	'|': 'I',
	'!': 'I',
	'$': 'S',
	'@': 'A',
}

// Honorific and suffix tokens dropped before comparison.
var ignoredTokens = map[string]bool{
	"KR":    true,
	"KUMAR": true,
	"DEVI":  true,
	"SHRI":  true,
	"SMT":   true,
	"MR":    true,
	"MRS":   true,
	"MS":    true,
	"MISS":  true,
	"SRI":   true,
	"DR":    true,
	"JR":    true,
	"SR":    true,
}

// Normalize folds a name to the comparison form used on both sides of a
// match: accents stripped, upper case, OCR confusables mapped to letters,
// honorifics dropped, non-letters removed and whitespace collapsed.
func Normalize(name string) string {
	if strings.TrimSpace(name) == "" {
		return ""
	}

	folded, _, err := transform.String(
		transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		name,
	)
	if err != nil {
		folded = name
	}
	folded = strings.ToUpper(folded)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if m, ok := confusables[r]; ok {
			r = m
		}
		if unicode.IsLetter(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	tokens := strings.Fields(b.String())
	kept := tokens[:0]
	for _, t := range tokens {
		if !ignoredTokens[t] {
			kept = append(kept, t)
		}
	}
	return strings.Join(kept, " ")
}
