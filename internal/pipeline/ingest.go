package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/manifest/internal/documents"
	"github.com/JaimeStill/manifest/internal/extract"
	"github.com/JaimeStill/manifest/internal/matching"
	"github.com/JaimeStill/manifest/internal/preprocess"
	"github.com/JaimeStill/manifest/internal/recovery"
	"github.com/JaimeStill/manifest/internal/tickets"
	"github.com/JaimeStill/manifest/pkg/retry"
	"github.com/JaimeStill/manifest/pkg/source"
)

const timeoutReason = "processing timed out"

// RowCounts tallies appended rows by outcome.
type RowCounts struct {
	Train      int `json:"train"`
	Flight     int `json:"flight"`
	Error      int `json:"error"`
	Unverified int `json:"unverified"`
}

// Total is the number of rows appended.
func (c RowCounts) Total() int {
	return c.Train + c.Flight + c.Error
}

func (c *RowCounts) add(rows []tickets.Row) {
	for _, r := range rows {
		switch r.Category {
		case tickets.CategoryTrain:
			c.Train++
			if !r.Verified {
				c.Unverified++
			}
		case tickets.CategoryFlight:
			c.Flight++
		default:
			c.Error++
		}
	}
}

// IngestReport summarizes one ingestion run.
type IngestReport struct {
	Files      int              `json:"files"`
	Extracted  int              `json:"extracted"`
	Duplicates int              `json:"duplicates"`
	Deferred   int              `json:"deferred"`
	Rows       RowCounts        `json:"rows"`
	Matching   matching.Summary `json:"matching"`
}

type fileResult struct {
	rows      []tickets.Row
	duplicate bool
	deferred  bool
}

// IngestAndExtract drains the inbox: every new file is recovered, classified
// and extracted into appended ticket rows, then archived. A file that cannot
// be read becomes one ERROR row; a file whose download fails, or that another
// run is extracting, stays in the inbox for the next run. After extraction
// the identity matcher runs over all rows still lacking a suggestion.
//
// Delivery is at least once, so a redelivered file never appends a row
// already present in the sheet.
//
// Only store, registry and OCR engine failures abort the run. Rows appended
// before the abort belong to files whose processing completed.
func (p *Pipeline) IngestAndExtract(ctx context.Context) (IngestReport, error) {
	release, err := p.acquire()
	if err != nil {
		return IngestReport{}, err
	}
	defer release()

	var report IngestReport

	if err := p.rt.Rows.EnsureHeader(ctx); err != nil {
		return report, err
	}
	if err := p.loadSheet(ctx); err != nil {
		return report, err
	}

	files, err := retry.DoValue(ctx, p.rt.Retry, p.rt.Source.List)
	if err != nil {
		return report, fmt.Errorf("list inbox: %w", err)
	}
	report.Files = len(files)
	p.logger.InfoContext(ctx, "ingestion started", "files", len(files), "workers", p.cfg.Workers)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)

	for _, obj := range files {
		g.Go(func() error {
			res, err := p.processFile(gctx, obj)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			switch {
			case res.duplicate:
				report.Duplicates++
			case res.deferred:
				report.Deferred++
			default:
				report.Extracted++
				report.Rows.add(res.rows)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		p.logger.ErrorContext(ctx, "ingestion aborted", "error", err, "rows", report.Rows.Total())
		return report, err
	}

	summary, err := p.match(ctx)
	if err != nil {
		return report, err
	}
	report.Matching = summary

	p.logger.InfoContext(ctx, "ingestion complete",
		"files", report.Files,
		"extracted", report.Extracted,
		"duplicates", report.Duplicates,
		"deferred", report.Deferred,
		"rows", report.Rows.Total(),
		"errors", report.Rows.Error,
	)
	return report, nil
}

func (p *Pipeline) processFile(ctx context.Context, obj source.Object) (res fileResult, err error) {
	logger := p.logger.With("file_id", obj.ID, "filename", obj.Name)

	data, err := retry.DoValue(ctx, p.rt.Retry, func(ctx context.Context) ([]byte, error) {
		b, err := p.rt.Source.Download(ctx, obj.ID)
		if errors.Is(err, source.ErrNotFound) {
			return nil, retry.Permanent(err)
		}
		return b, err
	})
	if err != nil {
		if ctx.Err() != nil {
			return fileResult{}, ctx.Err()
		}
		logger.WarnContext(ctx, "download failed, file left in inbox", "error", err)
		return fileResult{deferred: true}, nil
	}

	file := tickets.File{
		ID:          obj.ID,
		Name:        obj.Name,
		ContentType: obj.ContentType,
		Kind:        preprocess.DetectKind(obj.ContentType, data),
		Data:        data,
	}

	record, err := p.register(ctx, file)
	if errors.Is(err, documents.ErrClaimed) {
		logger.InfoContext(ctx, "file claimed by another run, left in inbox")
		return fileResult{deferred: true}, nil
	}
	if err != nil {
		return fileResult{}, err
	}
	if record != nil && record.Recorded() {
		logger.InfoContext(ctx, "file already extracted", "document_id", record.ID, "status", record.Status)
		p.archive(ctx, obj, record, logger)
		return fileResult{duplicate: true}, nil
	}
	if record != nil {
		claim := record.ID
		defer func() {
			if err != nil {
				p.release(ctx, claim, logger)
			}
		}()
	}

	doc, err := p.recover(ctx, file)
	if err != nil {
		return fileResult{}, err
	}

	category := tickets.CategoryUnknown
	if !doc.DecodeFailure {
		category = p.rt.Classifier.Classify(doc.Text())
	}
	logger.DebugContext(ctx, "file classified", "category", category, "pages", doc.Pages)

	batch := p.extract(ctx, file, category, doc)

	rows, err := p.append(ctx, batch)
	if err != nil {
		return fileResult{}, err
	}
	present := len(rows) == 0 && len(batch) > 0

	if record != nil {
		cmd := documents.CompleteCommand{
			Category: string(category),
			Pages:    doc.Pages,
			RowCount: len(batch),
			Reason:   doc.Reason,
		}
		if len(batch) == 1 && batch[0].Category == tickets.CategoryError {
			cmd.Category = string(tickets.CategoryError)
			cmd.Reason = batch[0].Reason
		}
		completed, err := p.rt.Registry.Complete(ctx, record.ID, cmd)
		switch {
		case errors.Is(err, documents.ErrInvalidTransition):
			logger.WarnContext(ctx, "file completed by another run", "document_id", record.ID)
		case err != nil:
			return fileResult{}, fmt.Errorf("%w: complete %s: %w", ErrRegistryUnavailable, obj.Name, err)
		default:
			record = completed
		}
	}

	if present {
		logger.InfoContext(ctx, "rows already in ticket sheet", "category", category, "rows", len(batch))
		p.archive(ctx, obj, record, logger)
		return fileResult{duplicate: true}, nil
	}

	logger.InfoContext(ctx, "file extracted", "category", category, "rows", len(rows))
	p.archive(ctx, obj, record, logger)
	return fileResult{rows: rows}, nil
}

// register records the file in the registry. Files the registry rejects as
// invalid (empty content) are processed without a record.
func (p *Pipeline) register(ctx context.Context, f tickets.File) (*documents.Document, error) {
	if p.rt.Registry == nil {
		return nil, nil
	}
	record, err := p.rt.Registry.Register(ctx, documents.RegisterCommand{
		SourceID:     f.ID,
		Filename:     f.Name,
		ContentType:  f.ContentType,
		Kind:         string(f.Kind),
		Data:         f.Data,
		ClaimTimeout: p.cfg.ClaimTimeoutDuration(),
	})
	if errors.Is(err, documents.ErrInvalidFile) {
		return nil, nil
	}
	if errors.Is(err, documents.ErrClaimed) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: register %s: %w", ErrRegistryUnavailable, f.Name, err)
	}
	return record, nil
}

// recover runs the preprocessor under the per-file timeout. A timed out
// file becomes a decode failure; cancellation of the run and an unavailable
// OCR engine are returned.
func (p *Pipeline) recover(ctx context.Context, f tickets.File) (tickets.RecoveredDocument, error) {
	fctx, cancel := context.WithTimeout(ctx, p.cfg.FileTimeoutDuration())
	defer cancel()

	doc, err := p.rt.Recoverer.Recover(fctx, f)
	if err == nil {
		return doc, nil
	}
	if ctx.Err() != nil {
		return tickets.RecoveredDocument{}, ctx.Err()
	}
	if errors.Is(err, recovery.ErrEngineUnavailable) {
		return tickets.RecoveredDocument{}, err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return tickets.RecoveredDocument{DecodeFailure: true, Reason: timeoutReason}, nil
	}
	return tickets.RecoveredDocument{DecodeFailure: true, Reason: err.Error()}, nil
}

func (p *Pipeline) extract(ctx context.Context, f tickets.File, category tickets.Category, doc tickets.RecoveredDocument) []tickets.Ticket {
	fctx, cancel := context.WithTimeout(ctx, p.cfg.FileTimeoutDuration())
	defer cancel()

	return p.rt.Extractor.Extract(fctx, extract.Input{
		Source:   f.Name,
		Category: category,
		Document: doc,
	})
}

// loadSheet indexes the rows already in the ticket sheet.
func (p *Pipeline) loadSheet(ctx context.Context) error {
	rows, err := p.rt.Rows.Rows(ctx)
	if err != nil {
		return err
	}

	p.appends.Lock()
	defer p.appends.Unlock()

	p.sheet = make(map[string]struct{}, len(rows))
	for _, r := range rows {
		p.sheet[r.Key()] = struct{}{}
	}
	return nil
}

// append writes the tickets of one file not already in the sheet as a
// single batch. Batches from concurrent files never interleave, and
// nothing is appended once the run has been cancelled.
func (p *Pipeline) append(ctx context.Context, batch []tickets.Ticket) ([]tickets.Row, error) {
	p.appends.Lock()
	defer p.appends.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fresh := make([]tickets.Ticket, 0, len(batch))
	for _, t := range batch {
		if _, ok := p.sheet[t.Key()]; !ok {
			fresh = append(fresh, t)
		}
	}

	rows, err := p.rt.Rows.Append(ctx, fresh)
	if err != nil {
		return nil, err
	}
	for _, t := range fresh {
		p.sheet[t.Key()] = struct{}{}
	}
	return rows, nil
}

// release drops the run's claim so the next run retries the file.
func (p *Pipeline) release(ctx context.Context, id uuid.UUID, logger *slog.Logger) {
	if err := p.rt.Registry.Release(context.WithoutCancel(ctx), id); err != nil {
		logger.WarnContext(ctx, "registry release failed", "document_id", id, "error", err)
	}
}

// archive moves the file out of the inbox. Failure leaves it for the next
// run, where the registry recognizes it as already extracted.
func (p *Pipeline) archive(ctx context.Context, obj source.Object, record *documents.Document, logger *slog.Logger) {
	err := retry.Do(ctx, p.rt.Retry, func(ctx context.Context) error {
		return p.rt.Source.MoveToProcessed(ctx, obj.ID)
	})
	if err != nil {
		logger.WarnContext(ctx, "archive failed, file left in inbox", "error", err)
		return
	}
	if record == nil {
		return
	}
	if err := p.rt.Registry.Archive(ctx, record.ID); err != nil {
		logger.WarnContext(ctx, "registry archive failed", "document_id", record.ID, "error", err)
	}
}
