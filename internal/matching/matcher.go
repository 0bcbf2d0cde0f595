// Package matching resolves extracted passenger names against the guest
// roster. Matching is a pure function of (name, roster): it never mutates
// either side and re-running it yields the same result.
package matching

import (
	"cmp"
	"slices"
	"strconv"

	"github.com/JaimeStill/manifest/internal/tickets"
)

// Kind classifies a match outcome.
type Kind string

const (
	KindExact         Kind = "exact"
	KindProbable      Kind = "probable"
	KindAmbiguous     Kind = "ambiguous"
	KindLowConfidence Kind = "low_confidence"
	KindNoMatch       Kind = "no_match"
)

// Suggestion prefixes that route a row to human review.
const (
	PrefixDuplicate = "DUPLICATE: "
	PrefixReview    = "REVIEW: "
)

// Identity is a roster entry a name can resolve to.
type Identity struct {
	Name  string `json:"name"`
	Row   int    `json:"row"`
	Place string `json:"place,omitempty"`
	Venue string `json:"venue,omitempty"`
}

// Candidate is a scored roster entry.
type Candidate struct {
	Identity
	Score int `json:"score"`
}

// Result is the outcome of matching one name.
type Result struct {
	Name       string      `json:"name"`
	Suggestion string      `json:"suggestion"`
	Score      int         `json:"score"`
	Ambiguous  bool        `json:"ambiguous"`
	Kind       Kind        `json:"kind"`
	Candidates []Candidate `json:"candidates,omitempty"`
}

// Matcher scores names against a roster using configured thresholds.
type Matcher struct {
	cfg Config
}

// New creates a Matcher. Zero thresholds take their defaults.
func New(cfg Config) *Matcher {
	cfg.loadDefaults()
	return &Matcher{cfg: cfg}
}

// Match ranks roster against name and classifies the best candidate.
func (m *Matcher) Match(name string, roster []Identity) Result {
	res := Result{Name: name, Kind: KindNoMatch}

	target := Normalize(name)
	if target == "" || len(roster) == 0 {
		return res
	}

	scored := make([]Candidate, 0, len(roster))
	var equal []Candidate
	for _, id := range roster {
		norm := Normalize(id.Name)
		if norm == "" {
			continue
		}
		c := Candidate{Identity: id, Score: Score(target, norm)}
		if norm == target {
			c.Score = 100
			equal = append(equal, c)
		}
		scored = append(scored, c)
	}
	if len(scored) == 0 {
		return res
	}

	slices.SortStableFunc(scored, func(a, b Candidate) int {
		return cmp.Compare(b.Score, a.Score)
	})

	best := scored[0]
	res.Score = best.Score

	for _, c := range scored {
		if c.Score < m.cfg.ConsiderScore || len(res.Candidates) == m.cfg.MaxCandidates {
			break
		}
		res.Candidates = append(res.Candidates, c)
	}

	if best.Score < m.cfg.ConsiderScore {
		return res
	}

	if len(equal) == 1 {
		res.Suggestion = equal[0].Name
		res.Score = 100
		res.Kind = KindExact
		return res
	}

	res.Suggestion = best.Name

	if len(scored) > 1 {
		second := scored[1]
		if second.Score >= m.cfg.ConsiderScore && best.Score-second.Score <= m.cfg.AmbiguityMargin {
			res.Ambiguous = true
			res.Kind = KindAmbiguous
			return res
		}
	}

	if best.Score < m.cfg.ExactScore {
		res.Ambiguous = true
		res.Kind = KindLowConfidence
		return res
	}

	res.Kind = KindProbable
	return res
}

// Cell renders the suggestion for column N.
func (r Result) Cell() string {
	switch r.Kind {
	case KindAmbiguous:
		return PrefixDuplicate + r.Suggestion
	case KindLowConfidence:
		return PrefixReview + r.Suggestion
	case KindExact, KindProbable:
		return r.Suggestion
	default:
		return ""
	}
}

// PreApproved reports whether the suggestion may be prefilled as the
// approved name. A reviewer still has to set the approval flag.
func (r Result) PreApproved() bool {
	return r.Kind == KindExact && !r.Ambiguous
}

// Err maps review outcomes to their error kind; nil when resolved.
func (r Result) Err() error {
	switch r.Kind {
	case KindAmbiguous, KindLowConfidence:
		return tickets.ErrAmbiguousIdentity
	case KindNoMatch:
		return tickets.ErrNoIdentityMatch
	default:
		return nil
	}
}

// Apply writes the result into the row's suggestion columns. The approval
// flag is never touched.
func (r Result) Apply(row *tickets.Row) {
	row.Suggested = r.Cell()
	row.Score = strconv.Itoa(r.Score)

	if row.Suggested == "" {
		row.CommitStatus = tickets.StatusUnmatched
		return
	}
	row.CommitStatus = tickets.StatusSuggested

	if r.PreApproved() && row.Approved == "" {
		row.Approved = r.Suggestion
	}
}

// Summary counts the outcomes of a batch pass.
type Summary struct {
	Matched   int `json:"matched"`
	Ambiguous int `json:"ambiguous"`
	Unmatched int `json:"unmatched"`
	Skipped   int `json:"skipped"`
}

// Pending reports whether a row still needs an identity suggestion.
func Pending(row tickets.Row) bool {
	return row.State() == tickets.StateUnmatched && row.Passenger != ""
}

// MatchRows runs Match over every pending row and returns the rows it changed.
func (m *Matcher) MatchRows(rows []tickets.Row, roster []Identity) ([]tickets.Row, Summary) {
	var sum Summary
	changed := make([]tickets.Row, 0, len(rows))

	for _, row := range rows {
		if !Pending(row) {
			sum.Skipped++
			continue
		}

		before := row.Values()
		res := m.Match(row.Passenger, roster)
		res.Apply(&row)
		if !slices.Equal(before, row.Values()) {
			changed = append(changed, row)
		}

		switch res.Kind {
		case KindExact, KindProbable:
			sum.Matched++
		case KindAmbiguous, KindLowConfidence:
			sum.Ambiguous++
		default:
			sum.Unmatched++
		}
	}
	return changed, sum
}
