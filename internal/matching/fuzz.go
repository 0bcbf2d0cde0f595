package matching

import (
	"math"
	"slices"
	"strings"
)

// Ratio is the normalized Indel similarity of a and b in [0,100]:
// 2*LCS / (len(a)+len(b)).
func Ratio(a, b string) int {
	return round(ratio([]rune(a), []rune(b)))
}

// PartialRatio scores the shorter string against its best-aligned window in
// the longer one, including windows clipped at either edge.
func PartialRatio(a, b string) int {
	s, l := []rune(a), []rune(b)
	if len(s) > len(l) {
		s, l = l, s
	}
	if len(s) == 0 {
		return 0
	}

	m := len(s)
	best := 0.0
	for start := -(m - 1); start < len(l); start++ {
		lo := max(start, 0)
		hi := min(start+m, len(l))
		if lo >= hi {
			continue
		}
		if r := ratio(s, l[lo:hi]); r > best {
			best = r
			if best == 100 {
				break
			}
		}
	}
	return round(best)
}

// TokenSortRatio compares a and b after sorting their whitespace-separated
// tokens.
func TokenSortRatio(a, b string) int {
	return Ratio(sortTokens(a), sortTokens(b))
}

// Score is the combined similarity used for ranking: the maximum of
// PartialRatio and TokenSortRatio.
func Score(a, b string) int {
	return max(PartialRatio(a, b), TokenSortRatio(a, b))
}

func ratio(a, b []rune) float64 {
	total := len(a) + len(b)
	if total == 0 || len(a) == 0 || len(b) == 0 {
		return 0
	}
	return 200 * float64(lcs(a, b)) / float64(total)
}

func lcs(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	slices.Sort(tokens)
	return strings.Join(tokens, " ")
}

func round(f float64) int {
	return int(math.Round(f))
}
