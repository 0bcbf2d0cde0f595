// Command function hosts the pipeline as Cloud Functions. IngestTickets
// runs on inbox uploads and scheduler ticks; CommitApproved runs on a
// schedule after reviewers approve rows.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/JaimeStill/manifest/internal/api"
	"github.com/JaimeStill/manifest/internal/config"
	"github.com/JaimeStill/manifest/internal/infrastructure"
	"github.com/JaimeStill/manifest/internal/pipeline"
)

const storageEventPrefix = "google.cloud.storage.object."

var (
	instance *service
	once     sync.Once
	initErr  error
)

type service struct {
	cfg      *config.Config
	logger   *slog.Logger
	pipeline *pipeline.Pipeline
}

func init() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	functions.CloudEvent("IngestTickets", ingestTickets)
	functions.CloudEvent("CommitApproved", commitApproved)
}

func main() {
	port := "8080"
	if v := os.Getenv("PORT"); v != "" {
		port = v
	}
	if err := funcframework.Start(port); err != nil {
		log.Fatalf("funcframework.Start: %v", err)
	}
}

func load() (*service, error) {
	once.Do(func() {
		instance, initErr = newService(context.Background())
	})
	if initErr != nil {
		slog.Error("function initialization failed", "error", initErr)
	}
	return instance, initErr
}

func newService(ctx context.Context) (*service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	// Function logs are collected from stdout as structured JSON.
	cfg.Log.Format = "json"

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

	return &service{
		cfg:      cfg,
		logger:   infra.Logger.With("runtime", "function"),
		pipeline: domain.Pipeline,
	}, nil
}

func ingestTickets(ctx context.Context, e cloudevents.Event) error {
	svc, err := load()
	if err != nil {
		return err
	}
	return svc.ingest(ctx, e)
}

func commitApproved(ctx context.Context, e cloudevents.Event) error {
	svc, err := load()
	if err != nil {
		return err
	}
	return svc.commit(ctx, e)
}

func (s *service) ingest(ctx context.Context, e cloudevents.Event) error {
	logger := s.logger.With("event_id", e.ID(), "event_type", e.Type())

	run, err := shouldIngest(e, s.cfg.Source.InboxPrefix)
	if err != nil {
		logger.Error("unreadable event payload", "error", err)
		return nil
	}
	if !run {
		logger.Debug("event outside inbox, ignored", "subject", e.Subject())
		return nil
	}

	report, err := s.pipeline.IngestAndExtract(ctx)
	if errors.Is(err, pipeline.ErrBusy) {
		logger.Info("ingestion already running")
		return nil
	}
	if err != nil {
		return err
	}

	logger.Info("ingestion finished", "files", report.Files, "rows", report.Rows.Total())
	return nil
}

func (s *service) commit(ctx context.Context, e cloudevents.Event) error {
	logger := s.logger.With("event_id", e.ID(), "event_type", e.Type())

	report, err := s.pipeline.CommitApproved(ctx)
	if errors.Is(err, pipeline.ErrBusy) {
		logger.Info("pipeline busy, commit deferred to next tick")
		return nil
	}
	if err != nil {
		return err
	}

	logger.Info("commit finished",
		"committed", report.Committed,
		"pending", report.Pending,
		"errored", report.Errored,
	)
	return nil
}

type storageObject struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// shouldIngest reports whether e warrants an ingestion run. Storage events
// count only for objects inside the inbox; archiving a file writes into the
// processed area and must not trigger another run. Any other event type is
// a scheduler tick.
func shouldIngest(e cloudevents.Event, inboxPrefix string) (bool, error) {
	if !strings.HasPrefix(e.Type(), storageEventPrefix) {
		return true, nil
	}

	var obj storageObject
	if err := e.DataAs(&obj); err != nil {
		return false, fmt.Errorf("decode storage object: %w", err)
	}

	prefix := strings.Trim(inboxPrefix, "/")
	if prefix == "" {
		return true, nil
	}
	return strings.HasPrefix(obj.Name, prefix+"/"), nil
}
