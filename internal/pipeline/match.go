package pipeline

import (
	"context"

	"github.com/JaimeStill/manifest/internal/matching"
)

// MatchPending runs the identity matcher over every row still lacking a
// suggestion and writes the changed rows back.
func (p *Pipeline) MatchPending(ctx context.Context) (matching.Summary, error) {
	release, err := p.acquire()
	if err != nil {
		return matching.Summary{}, err
	}
	defer release()

	return p.match(ctx)
}

func (p *Pipeline) match(ctx context.Context) (matching.Summary, error) {
	rows, err := p.rt.Rows.Rows(ctx)
	if err != nil {
		return matching.Summary{}, err
	}

	guests, err := p.rt.Roster.Load(ctx)
	if err != nil {
		return matching.Summary{}, err
	}

	changed, summary := p.rt.Matcher.MatchRows(rows, guests.Identities())
	if err := p.rt.Rows.Write(ctx, changed...); err != nil {
		return matching.Summary{}, err
	}

	p.logger.InfoContext(ctx, "identity matching complete",
		"matched", summary.Matched,
		"ambiguous", summary.Ambiguous,
		"unmatched", summary.Unmatched,
		"skipped", summary.Skipped,
		"written", len(changed),
	)
	return summary, nil
}
