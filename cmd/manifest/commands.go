package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
)

func runIngest(ctx context.Context, a *app, args []string) error {
	if err := flag.NewFlagSet("ingest", flag.ExitOnError).Parse(args); err != nil {
		return err
	}

	report, err := a.domain.Pipeline.IngestAndExtract(ctx)
	printIngest(a.out, report)
	return err
}

func runMatch(ctx context.Context, a *app, args []string) error {
	if err := flag.NewFlagSet("match", flag.ExitOnError).Parse(args); err != nil {
		return err
	}

	summary, err := a.domain.Pipeline.MatchPending(ctx)
	if err != nil {
		return err
	}
	printMatch(a.out, summary)
	return nil
}

func runCommit(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("commit", flag.ExitOnError)
	verbose := fs.Bool("v", false, "Print every row outcome")
	if err := fs.Parse(args); err != nil {
		return err
	}

	report, err := a.domain.Pipeline.CommitApproved(ctx)
	printCommit(a.out, report, *verbose)
	return err
}

func runExport(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	output := fs.String("o", "tickets.xlsx", "Output file (- for stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var w io.Writer = a.out
	if *output != "-" {
		f, err := os.Create(*output)
		if err != nil {
			return fmt.Errorf("create %s: %w", *output, err)
		}
		defer f.Close()
		w = f
	}

	if err := a.domain.Tickets.Export(ctx, w); err != nil {
		return err
	}
	if *output != "-" {
		fmt.Fprintf(a.out, "wrote %s\n", *output)
	}
	return nil
}

func runInbox(ctx context.Context, a *app, args []string) error {
	if err := flag.NewFlagSet("inbox", flag.ExitOnError).Parse(args); err != nil {
		return err
	}

	objects, err := a.infra.Source.List(ctx)
	if err != nil {
		return err
	}
	printInbox(a.out, objects)
	return nil
}
