package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/JaimeStill/manifest/internal/commit"
	"github.com/JaimeStill/manifest/internal/matching"
	"github.com/JaimeStill/manifest/internal/pipeline"
	"github.com/JaimeStill/manifest/pkg/formatting"
	"github.com/JaimeStill/manifest/pkg/source"
)

var (
	titleColor   = color.New(color.FgWhite, color.Bold)
	okColor      = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	neutralColor = color.New(color.FgCyan)
)

// count prints a label and value, colored only when the value is non-zero.
func count(w io.Writer, label string, n int, c *color.Color) {
	if n == 0 {
		fmt.Fprintf(w, "  %-12s %d\n", label, n)
		return
	}
	fmt.Fprintf(w, "  %-12s %s\n", label, c.Sprint(n))
}

func printIngest(w io.Writer, r pipeline.IngestReport) {
	titleColor.Fprintln(w, "Ingestion")
	count(w, "files", r.Files, neutralColor)
	count(w, "extracted", r.Extracted, okColor)
	count(w, "duplicates", r.Duplicates, neutralColor)
	count(w, "deferred", r.Deferred, warnColor)

	titleColor.Fprintln(w, "Rows")
	count(w, "train", r.Rows.Train, okColor)
	count(w, "flight", r.Rows.Flight, okColor)
	count(w, "error", r.Rows.Error, errorColor)
	count(w, "unverified", r.Rows.Unverified, warnColor)

	printMatch(w, r.Matching)
}

func printMatch(w io.Writer, s matching.Summary) {
	titleColor.Fprintln(w, "Matching")
	count(w, "matched", s.Matched, okColor)
	count(w, "ambiguous", s.Ambiguous, warnColor)
	count(w, "unmatched", s.Unmatched, errorColor)
	count(w, "skipped", s.Skipped, neutralColor)
}

func printCommit(w io.Writer, r pipeline.CommitReport, verbose bool) {
	titleColor.Fprintln(w, "Commit")
	count(w, "committed", r.Committed, okColor)
	count(w, "pending", r.Pending, warnColor)
	count(w, "skipped", r.Skipped, neutralColor)
	count(w, "errored", r.Errored, errorColor)

	for _, res := range r.Results {
		switch {
		case res.Outcome == commit.OutcomeErrored:
			fmt.Fprintf(w, "  row %-5d %s %s\n", res.Row, errorColor.Sprint("ERROR"), res.Reason)
		case res.Outcome == commit.OutcomeCommitted && verbose:
			fmt.Fprintf(w, "  row %-5d %s %s %s slot %d\n", res.Row, okColor.Sprint("OK"), res.Guest, res.Block, res.Slot)
		case verbose:
			fmt.Fprintf(w, "  row %-5d %s %s\n", res.Row, neutralColor.Sprint(string(res.Outcome)), res.Reason)
		}
	}
}

func printInbox(w io.Writer, objects []source.Object) {
	if len(objects) == 0 {
		okColor.Fprintln(w, "Inbox is empty.")
		return
	}

	titleColor.Fprintf(w, "Inbox (%d)\n", len(objects))
	for _, o := range objects {
		fmt.Fprintf(w, "  %-40s %10s  %s\n", o.Name, formatting.FormatBytes(o.Size, 1), neutralColor.Sprint(o.ContentType))
	}
}
