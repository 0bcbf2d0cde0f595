// Command manifest runs the ticket pipeline operations from a terminal or a
// scheduled job.
//
// Usage:
//
//	manifest [-no-color] <command> [flags]
//
// Commands:
//
//	ingest   drain the inbox into ticket rows, then suggest guest names
//	match    suggest guest names for rows still lacking one
//	commit   write approved rows into the master sheet
//	export   write the ticket sheet as an XLSX workbook
//	inbox    list files awaiting ingestion
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/JaimeStill/manifest/internal/api"
	"github.com/JaimeStill/manifest/internal/config"
	"github.com/JaimeStill/manifest/internal/infrastructure"
)

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, app *app, args []string) error
}

var commands = []command{
	{"ingest", "ingest and extract inbox files", runIngest},
	{"match", "suggest guest names for pending rows", runMatch},
	{"commit", "commit approved rows to guest records", runCommit},
	{"export", "export the ticket sheet as an XLSX workbook", runExport},
	{"inbox", "list files awaiting ingestion", runInbox},
}

func main() {
	noColor := flag.Bool("no-color", false, "Disable colored output")
	flag.Usage = usage
	flag.Parse()

	if *noColor || !isTerminal(os.Stdout) {
		color.NoColor = true
	}

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	cmd, ok := lookup(flag.Arg(0))
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", flag.Arg(0))
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, cmd, flag.Args()[1:]); err != nil {
		errorColor.Fprintf(os.Stderr, "%s failed: %v\n", cmd.name, err)
		os.Exit(1)
	}
}

func execute(ctx context.Context, cmd command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close(cfg)

	return cmd.run(ctx, a, args)
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintln(out, "Usage: manifest [-no-color] <command> [flags]")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(out, "  %-8s %s\n", c.name, c.usage)
	}
	fmt.Fprintln(out)
	flag.PrintDefaults()
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// app is the assembled service for one command invocation.
type app struct {
	infra  *infrastructure.Infrastructure
	domain *api.Domain
	out    io.Writer
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	infra, err := infrastructure.New(ctx, cfg)
	if err != nil {
		return nil, err
	}

	domain, err := api.NewDomain(cfg, api.NewRuntime(cfg, infra))
	if err != nil {
		return nil, err
	}

	if err := infra.Start(); err != nil {
		return nil, err
	}
	infra.Lifecycle.WaitForStartup()

	return &app{infra: infra, domain: domain, out: os.Stdout}, nil
}

func (a *app) close(cfg *config.Config) {
	if err := a.infra.Lifecycle.Shutdown(cfg.ShutdownTimeoutDuration()); err != nil {
		a.infra.Logger.Error("shutdown failed", "error", err)
	}
}
