package pipeline

import (
	"context"

	"github.com/JaimeStill/manifest/internal/commit"
)

// CommitReport summarizes one commit run.
type CommitReport struct {
	Committed int             `json:"committed"`
	Skipped   int             `json:"skipped"`
	Errored   int             `json:"errored"`
	Pending   int             `json:"pending"`
	Results   []commit.Result `json:"results"`
}

func (r *CommitReport) add(res commit.Result) {
	switch res.Outcome {
	case commit.OutcomeCommitted:
		r.Committed++
	case commit.OutcomeErrored:
		r.Errored++
	case commit.OutcomePending:
		r.Pending++
	default:
		r.Skipped++
	}
	r.Results = append(r.Results, res)
}

// CommitApproved runs the commit router over every row of the ticket sheet
// against one roster snapshot, in sheet order. The router itself gates on
// row state: committed and ERROR rows come back skipped, rows still awaiting
// approval come back pending.
func (p *Pipeline) CommitApproved(ctx context.Context) (CommitReport, error) {
	release, err := p.acquire()
	if err != nil {
		return CommitReport{}, err
	}
	defer release()

	var report CommitReport

	rows, err := p.rt.Rows.Rows(ctx)
	if err != nil {
		return report, err
	}

	guests, err := p.rt.Roster.Load(ctx)
	if err != nil {
		return report, err
	}

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		res, err := p.rt.Committer.Commit(ctx, row, guests)
		if err != nil {
			p.logger.ErrorContext(ctx, "commit aborted", "row", row.Number, "error", err)
			return report, err
		}
		report.add(res)
	}

	p.logger.InfoContext(ctx, "commit complete",
		"committed", report.Committed,
		"skipped", report.Skipped,
		"errored", report.Errored,
		"pending", report.Pending,
	)
	return report, nil
}
