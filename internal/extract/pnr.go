package extract

import (
	"regexp"
	"strings"
)

var (
	spacedPNR   = regexp.MustCompile(`(?:\d[ \t]+){9}\d`)
	labelledPNR = regexp.MustCompile(`(?i)PNR\s*(?:No\.?|Number)?\s*[:=\-]?\s*([A-Z0-9]{6,10})\b`)
	barePNR     = regexp.MustCompile(`\b\d{10}\b`)
	digitRun    = regexp.MustCompile(`[0-9OoIl|!]{6,}`)

	// Ten-digit runs starting with these are phone numbers, years or
	// transaction ids rather than PNRs.
	excludedPrefixes = []string{"201", "202", "203", "982", "100"}
)

var digitConfusables = strings.NewReplacer(
	"O", "0", "o", "0",
	"I", "1", "l", "1", "|", "1", "!", "1",
)

// repairDigits maps letters OCR confuses with digits back to digits inside
// runs that are mostly digits already.
func repairDigits(s string) string {
	return digitRun.ReplaceAllStringFunc(s, func(run string) string {
		digits := 0
		for _, r := range run {
			if r >= '0' && r <= '9' {
				digits++
			}
		}
		if digits*2 < len(run) {
			return run
		}
		return digitConfusables.Replace(run)
	})
}

// findTrainPNR looks for a spaced ten-digit PNR, then a labelled one, then
// any bare ten-digit number not excluded by prefix.
func findTrainPNR(text string) string {
	text = repairDigits(text)

	for _, s := range spacedPNR.FindAllString(text, -1) {
		if p := whitespace.ReplaceAllString(s, ""); len(p) == 10 {
			return p
		}
	}

	for _, m := range labelledPNR.FindAllStringSubmatch(text, -1) {
		if hasDigit.MatchString(m[1]) {
			return strings.ToUpper(m[1])
		}
	}

	for _, c := range barePNR.FindAllString(text, -1) {
		if !excluded(c) {
			return c
		}
	}
	return ""
}

func excluded(candidate string) bool {
	for _, p := range excludedPrefixes {
		if strings.HasPrefix(candidate, p) {
			return true
		}
	}
	return false
}
