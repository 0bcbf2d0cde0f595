package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/manifest/internal/classify"
	"github.com/JaimeStill/manifest/internal/commit"
	"github.com/JaimeStill/manifest/internal/documents"
	"github.com/JaimeStill/manifest/internal/extract"
	"github.com/JaimeStill/manifest/internal/matching"
	"github.com/JaimeStill/manifest/internal/pipeline"
	"github.com/JaimeStill/manifest/internal/pnr"
	"github.com/JaimeStill/manifest/internal/recovery"
	"github.com/JaimeStill/manifest/internal/roster"
	"github.com/JaimeStill/manifest/internal/tickets"
	"github.com/JaimeStill/manifest/pkg/retry"
	"github.com/JaimeStill/manifest/pkg/sheets"
	"github.com/JaimeStill/manifest/pkg/source"
)

// fakeSource is an in-memory inbox.
type fakeSource struct {
	mu          sync.Mutex
	files       map[string][]byte
	order       []string
	moved       []string
	downloadErr map[string]error
	moveErr     error
}

func newFakeSource() *fakeSource {
	return &fakeSource{files: map[string][]byte{}, downloadErr: map[string]error{}}
}

func (s *fakeSource) put(name, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = []byte(body)
	s.order = append(s.order, name)
}

func (s *fakeSource) List(ctx context.Context) ([]source.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []source.Object
	for _, name := range s.order {
		if slices.Contains(s.moved, name) {
			continue
		}
		out = append(out, source.Object{ID: name, Name: name, ContentType: "application/pdf", Size: int64(len(s.files[name]))})
	}
	return out, nil
}

func (s *fakeSource) Download(ctx context.Context, id string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.downloadErr[id]; err != nil {
		return nil, err
	}
	data, ok := s.files[id]
	if !ok {
		return nil, source.ErrNotFound
	}
	return data, nil
}

func (s *fakeSource) MoveToProcessed(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.moveErr != nil {
		return s.moveErr
	}
	s.moved = append(s.moved, id)
	return nil
}

func (s *fakeSource) movedFiles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := slices.Clone(s.moved)
	slices.Sort(out)
	return out
}

// fakeRegistry dedupes by content hash and claims received files like the
// Postgres registry.
type fakeRegistry struct {
	mu          sync.Mutex
	byHash      map[string]*documents.Document
	byID        map[uuid.UUID]*documents.Document
	completeErr error
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		byHash: map[string]*documents.Document{},
		byID:   map[uuid.UUID]*documents.Document{},
	}
}

func (r *fakeRegistry) Register(ctx context.Context, cmd documents.RegisterCommand) (*documents.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(cmd.Data) == 0 {
		return nil, documents.ErrInvalidFile
	}
	now := time.Now()
	hash := documents.Hash(cmd.Data)
	if d, ok := r.byHash[hash]; ok {
		if !d.Recorded() {
			if d.ClaimedAt != nil && now.Sub(*d.ClaimedAt) < cmd.ClaimTimeout {
				return nil, documents.ErrClaimed
			}
			d.ClaimedAt = &now
		}
		d.SourceID = cmd.SourceID
		cp := *d
		return &cp, nil
	}
	d := &documents.Document{
		ID:          uuid.New(),
		SourceID:    cmd.SourceID,
		Filename:    cmd.Filename,
		Kind:        cmd.Kind,
		ContentHash: hash,
		Status:      documents.StatusReceived,
		ClaimedAt:   &now,
	}
	r.byHash[hash] = d
	r.byID[d.ID] = d
	cp := *d
	return &cp, nil
}

func (r *fakeRegistry) Complete(ctx context.Context, id uuid.UUID, cmd documents.CompleteCommand) (*documents.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.completeErr != nil {
		return nil, r.completeErr
	}
	d, ok := r.byID[id]
	if !ok {
		return nil, documents.ErrNotFound
	}
	if d.Status != documents.StatusReceived {
		return nil, documents.ErrInvalidTransition
	}
	d.Status = documents.StatusExtracted
	d.RowCount = cmd.RowCount
	d.ClaimedAt = nil
	category := cmd.Category
	d.Category = &category
	cp := *d
	return &cp, nil
}

func (r *fakeRegistry) Archive(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byID[id]
	if !ok {
		return documents.ErrNotFound
	}
	d.Status = documents.StatusArchived
	return nil
}

func (r *fakeRegistry) Release(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byID[id]
	if !ok {
		return documents.ErrNotFound
	}
	if d.Status != documents.StatusReceived {
		return documents.ErrInvalidTransition
	}
	d.ClaimedAt = nil
	return nil
}

// claim records data as received and claimed by another run at the given
// time.
func (r *fakeRegistry) claim(data string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	hash := documents.Hash([]byte(data))
	if d, ok := r.byHash[hash]; ok {
		d.ClaimedAt = &at
		return
	}
	d := &documents.Document{
		ID:          uuid.New(),
		SourceID:    "elsewhere",
		ContentHash: hash,
		Status:      documents.StatusReceived,
		ClaimedAt:   &at,
	}
	r.byHash[hash] = d
	r.byID[d.ID] = d
}

func (r *fakeRegistry) claimed(data string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byHash[documents.Hash([]byte(data))]
	return ok && d.ClaimedAt != nil
}

func (r *fakeRegistry) status(data string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.byHash[documents.Hash([]byte(data))]; ok {
		return d.Status
	}
	return ""
}

// fakeRecoverer returns the file body as recovered text. Bodies starting
// with "corrupt" come back as decode failures.
type fakeRecoverer struct {
	mu    sync.Mutex
	calls int
	err   error
	block chan struct{}
	began chan struct{}
}

func (r *fakeRecoverer) Recover(ctx context.Context, f tickets.File) (tickets.RecoveredDocument, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()

	if r.began != nil {
		r.began <- struct{}{}
	}
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return tickets.RecoveredDocument{}, ctx.Err()
		}
	}
	if r.err != nil {
		return tickets.RecoveredDocument{}, r.err
	}

	text := string(f.Data)
	if len(text) >= 7 && text[:7] == "corrupt" {
		return tickets.RecoveredDocument{DecodeFailure: true, Reason: "invalid pdf: no pages"}, nil
	}
	return tickets.RecoveredDocument{
		Pages:     1,
		Fragments: []tickets.Fragment{{Page: 1, Pass: "original", Text: text, Confidence: 0.9}},
	}, nil
}

func (r *fakeRecoverer) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// cannedExtractor returns fixed tickets per source file and defers
// everything else to the real extractor.
type cannedExtractor struct {
	canned map[string][]tickets.Ticket
	next   *extract.Extractor
}

func (e cannedExtractor) Extract(ctx context.Context, in extract.Input) []tickets.Ticket {
	if out, ok := e.canned[in.Source]; ok && !in.Document.DecodeFailure {
		return out
	}
	return e.next.Extract(ctx, in)
}

// failingRows fails every append.
type failingRows struct {
	*tickets.Store
}

func (failingRows) Append(ctx context.Context, batch []tickets.Ticket) ([]tickets.Row, error) {
	return nil, fmt.Errorf("%w: append %d rows: quota exceeded", tickets.ErrStoreUnavailable, len(batch))
}

type harness struct {
	ctx      context.Context
	source   *fakeSource
	registry *fakeRegistry
	recover  *fakeRecoverer
	rows     *tickets.Store
	guests   *roster.Store
	master   sheets.Table
	runtime  *pipeline.Runtime
	cfg      pipeline.Config
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	book, err := sheets.OpenXLSX("", "Tickets", "Master")
	require.NoError(t, err)
	t.Cleanup(func() { book.Close() })

	master := book.Table("Master")
	require.NoError(t, master.Update(ctx, "A1:D1", [][]string{{"Name", "Phone", "Place", "Venue"}}))
	require.NoError(t, master.Update(ctx, "A2:D3", [][]string{
		{"RAMESH SHARMA", "", "Jaipur", "Hall A"},
		{"ANITA VERMA", "", "Pune", "Hall B"},
	}))

	commitCfg := commit.Config{}
	require.NoError(t, commitCfg.Finalize(nil))
	matchCfg := matching.Config{}
	require.NoError(t, matchCfg.Finalize(nil))
	cfg := pipeline.Config{Workers: 2}
	require.NoError(t, cfg.Finalize(nil))

	rows := tickets.NewStore(book.Table("Tickets"), logger)
	guests := roster.NewStore(master, commitCfg.Layout(), logger)

	h := &harness{
		ctx:      ctx,
		source:   newFakeSource(),
		registry: newFakeRegistry(),
		recover:  &fakeRecoverer{},
		rows:     rows,
		guests:   guests,
		master:   master,
		cfg:      cfg,
	}

	h.runtime = &pipeline.Runtime{
		Source:     h.source,
		Registry:   h.registry,
		Recoverer:  h.recover,
		Classifier: classify.New(classify.DefaultVocabulary()),
		Extractor: cannedExtractor{
			canned: map[string][]tickets.Ticket{
				"pair.pdf":   {trainTicket("Ramesh Sharma", "pair.pdf"), trainTicket("Kiran Qureshi", "pair.pdf")},
				"single.pdf": {trainTicket("Anita Verma", "single.pdf")},
			},
			next: extract.New(pnr.Disabled{}, logger),
		},
		Rows:      rows,
		Roster:    guests,
		Matcher:   matching.New(matchCfg),
		Committer: commit.NewRouter(rows, guests, commit.NewMemoryLedger(), commitCfg, logger),
		Logger:    logger,
	}
	return h
}

func (h *harness) pipeline() *pipeline.Pipeline {
	return pipeline.New(h.runtime, h.cfg)
}

func (h *harness) sheetRows(t *testing.T) []tickets.Row {
	t.Helper()
	rows, err := h.rows.Rows(h.ctx)
	require.NoError(t, err)
	return rows
}

const trainText = "IRCTC Train No 12345 PNR 4512345678 Passenger booking CNF"

func trainTicket(name, src string) tickets.Ticket {
	return tickets.Ticket{
		Category:      tickets.CategoryTrain,
		JourneyDate:   "2026-02-10",
		DepartureTime: "06:15",
		ArrivalDate:   "2026-02-11",
		ArrivalTime:   "09:40",
		Seat:          "B2/34/LB",
		Details:       "12345 / Rajdhani Exp",
		Passenger:     name,
		CarrierNumber: "12345",
		CarrierName:   "Rajdhani Exp",
		Status:        "CNF",
		PNR:           "4512345678",
		Source:        src,
		Verified:      true,
	}
}

func TestIngestAndExtract(t *testing.T) {
	h := newHarness(t)
	h.source.put("pair.pdf", trainText+" pair")
	h.source.put("broken.pdf", "corrupt bytes")

	report, err := h.pipeline().IngestAndExtract(h.ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Files)
	assert.Equal(t, 2, report.Extracted)
	assert.Equal(t, 0, report.Duplicates)
	assert.Equal(t, 2, report.Rows.Train)
	assert.Equal(t, 1, report.Rows.Error)
	assert.Equal(t, 3, report.Rows.Total())
	assert.Equal(t, []string{"broken.pdf", "pair.pdf"}, h.source.movedFiles())
	assert.Equal(t, documents.StatusArchived, h.registry.status(trainText+" pair"))

	rows := h.sheetRows(t)
	require.Len(t, rows, 3)

	var errorRows, trainRows []tickets.Row
	for _, r := range rows {
		if r.Category == tickets.CategoryError {
			errorRows = append(errorRows, r)
		} else {
			trainRows = append(trainRows, r)
		}
	}
	require.Len(t, errorRows, 1)
	assert.Equal(t, "broken.pdf", errorRows[0].Source)
	assert.Contains(t, errorRows[0].Reason, "unreadable file")

	require.Len(t, trainRows, 2)
	assert.Equal(t, trainRows[0].PNR, trainRows[1].PNR)
	assert.Equal(t, trainRows[0].JourneyDate, trainRows[1].JourneyDate)
	assert.NotEqual(t, trainRows[0].Passenger, trainRows[1].Passenger)
}

func TestIngestRunsIdentityMatching(t *testing.T) {
	h := newHarness(t)
	h.source.put("single.pdf", trainText+" single")

	report, err := h.pipeline().IngestAndExtract(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Matching.Matched)

	rows := h.sheetRows(t)
	require.Len(t, rows, 1)
	assert.Equal(t, "ANITA VERMA", rows[0].Suggested)
	assert.Equal(t, "ANITA VERMA", rows[0].Approved)
	assert.Equal(t, "100", rows[0].Score)
	assert.Equal(t, tickets.StateSuggested, rows[0].State())
}

func TestIngestSkipsRecordedFiles(t *testing.T) {
	h := newHarness(t)
	h.source.put("single.pdf", trainText+" single")

	_, err := h.pipeline().IngestAndExtract(h.ctx)
	require.NoError(t, err)

	// the same content arrives again under another name
	h.source.put("copy.pdf", trainText+" single")

	report, err := h.pipeline().IngestAndExtract(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Files)
	assert.Equal(t, 1, report.Duplicates)
	assert.Equal(t, 0, report.Rows.Total())
	assert.Equal(t, 1, h.recover.callCount())
	assert.Contains(t, h.source.movedFiles(), "copy.pdf")
	assert.Len(t, h.sheetRows(t), 1)
}

func TestIngestWithoutRegistry(t *testing.T) {
	h := newHarness(t)
	h.runtime.Registry = nil
	h.source.put("single.pdf", trainText+" single")

	report, err := h.pipeline().IngestAndExtract(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Extracted)
	assert.Equal(t, []string{"single.pdf"}, h.source.movedFiles())
}

func TestIngestRedeliveryAfterArchiveFailure(t *testing.T) {
	tests := []struct {
		name     string
		registry bool
		recovers int
	}{
		{"without registry", false, 2},
		{"with registry", true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			if !tt.registry {
				h.runtime.Registry = nil
			}
			h.source.moveErr = retry.Permanent(errors.New("permission denied"))
			h.source.put("single.pdf", trainText+" single")

			first, err := h.pipeline().IngestAndExtract(h.ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, first.Rows.Total())

			second, err := h.pipeline().IngestAndExtract(h.ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, second.Files)
			assert.Equal(t, 1, second.Duplicates)
			assert.Equal(t, 0, second.Rows.Total())

			assert.Len(t, h.sheetRows(t), 1)
			assert.Equal(t, tt.recovers, h.recover.callCount())
			assert.Empty(t, h.source.movedFiles())
		})
	}
}

func TestIngestRecoversFromIncompleteRecord(t *testing.T) {
	h := newHarness(t)
	h.registry.completeErr = errors.New("connection refused")
	h.source.put("pair.pdf", trainText+" pair")

	_, err := h.pipeline().IngestAndExtract(h.ctx)
	require.ErrorIs(t, err, pipeline.ErrRegistryUnavailable)
	require.Len(t, h.sheetRows(t), 2)
	assert.Equal(t, documents.StatusReceived, h.registry.status(trainText+" pair"))
	assert.False(t, h.registry.claimed(trainText+" pair"))

	h.registry.completeErr = nil

	report, err := h.pipeline().IngestAndExtract(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Duplicates)
	assert.Equal(t, 0, report.Rows.Total())
	assert.Len(t, h.sheetRows(t), 2)
	assert.Equal(t, documents.StatusArchived, h.registry.status(trainText+" pair"))
	assert.Equal(t, []string{"pair.pdf"}, h.source.movedFiles())
}

func TestIngestDefersClaimedFiles(t *testing.T) {
	h := newHarness(t)
	h.source.put("single.pdf", trainText+" single")
	h.registry.claim(trainText+" single", time.Now())

	report, err := h.pipeline().IngestAndExtract(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Deferred)
	assert.Equal(t, 0, h.recover.callCount())
	assert.Empty(t, h.sheetRows(t))
	assert.Empty(t, h.source.movedFiles())

	// the other run died and its claim went stale
	h.registry.claim(trainText+" single", time.Now().Add(-time.Hour))

	report, err = h.pipeline().IngestAndExtract(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Extracted)
	assert.Len(t, h.sheetRows(t), 1)
	assert.Equal(t, documents.StatusArchived, h.registry.status(trainText+" single"))
}

func TestIngestDefersFailedDownloads(t *testing.T) {
	h := newHarness(t)
	h.source.put("single.pdf", trainText+" single")
	h.source.put("flaky.pdf", trainText+" flaky")
	h.source.downloadErr["flaky.pdf"] = fmt.Errorf("%w: connection reset", source.ErrUnavailable)

	report, err := h.pipeline().IngestAndExtract(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Deferred)
	assert.Equal(t, 1, report.Extracted)
	assert.Equal(t, []string{"single.pdf"}, h.source.movedFiles())
}

func TestIngestAbortsOnStoreFailure(t *testing.T) {
	h := newHarness(t)
	h.runtime.Rows = failingRows{h.rows}
	h.source.put("single.pdf", trainText+" single")

	_, err := h.pipeline().IngestAndExtract(h.ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, tickets.ErrStoreUnavailable)
	assert.Empty(t, h.source.movedFiles())
	assert.Empty(t, h.sheetRows(t))
	assert.Equal(t, documents.StatusReceived, h.registry.status(trainText+" single"))
	assert.False(t, h.registry.claimed(trainText+" single"), "an aborted file must not stay claimed")
}

func TestIngestAbortsWhenEngineUnavailable(t *testing.T) {
	h := newHarness(t)
	h.recover.err = fmt.Errorf("%w: tesseract not found", recovery.ErrEngineUnavailable)
	h.source.put("single.pdf", trainText+" single")

	_, err := h.pipeline().IngestAndExtract(h.ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, recovery.ErrEngineUnavailable)
	assert.Empty(t, h.source.movedFiles())
	assert.Empty(t, h.sheetRows(t))
}

func TestIngestTimesOutSlowFiles(t *testing.T) {
	h := newHarness(t)
	h.cfg.FileTimeout = "20ms"
	h.recover.block = make(chan struct{})
	h.source.put("slow.pdf", trainText+" slow")

	report, err := h.pipeline().IngestAndExtract(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Rows.Error)

	rows := h.sheetRows(t)
	require.Len(t, rows, 1)
	assert.Equal(t, tickets.CategoryError, rows[0].Category)
	assert.Contains(t, rows[0].Reason, "processing timed out")
}

func TestOperationsAreExclusive(t *testing.T) {
	h := newHarness(t)
	h.recover.block = make(chan struct{})
	h.recover.began = make(chan struct{}, 1)
	h.source.put("single.pdf", trainText+" single")

	p := h.pipeline()
	done := make(chan error, 1)
	go func() {
		_, err := p.IngestAndExtract(h.ctx)
		done <- err
	}()

	select {
	case <-h.recover.began:
	case <-time.After(5 * time.Second):
		t.Fatal("ingestion never reached recovery")
	}

	_, err := p.CommitApproved(h.ctx)
	assert.ErrorIs(t, err, pipeline.ErrBusy)
	_, err = p.MatchPending(h.ctx)
	assert.ErrorIs(t, err, pipeline.ErrBusy)

	close(h.recover.block)
	require.NoError(t, <-done)
}

func TestCommitApproved(t *testing.T) {
	h := newHarness(t)
	h.source.put("pair.pdf", trainText+" pair")
	h.source.put("single.pdf", trainText+" single")

	p := h.pipeline()
	_, err := p.IngestAndExtract(h.ctx)
	require.NoError(t, err)

	// approve the exact matches; leave the unmatched passenger alone
	var approved int
	for _, r := range h.sheetRows(t) {
		if r.Approved != "" {
			r.ApprovalFlag = "TRUE"
			require.NoError(t, h.rows.Write(h.ctx, r))
			approved++
		}
	}
	require.Equal(t, 2, approved)

	report, err := p.CommitApproved(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Committed)
	assert.Equal(t, 1, report.Pending)
	assert.Equal(t, 0, report.Errored)
	assert.Len(t, report.Results, 3)

	first := readMaster(t, h)

	again, err := p.CommitApproved(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Committed)
	assert.Equal(t, 2, again.Skipped)
	assert.Equal(t, 1, again.Pending)
	assert.Equal(t, first, readMaster(t, h))

	for _, r := range h.sheetRows(t) {
		if r.Approved != "" {
			assert.Equal(t, tickets.StateCommitted, r.State())
		} else {
			assert.Equal(t, tickets.StateUnmatched, r.State())
		}
	}
}

func TestCommitApprovedLeavesHalfApprovedRows(t *testing.T) {
	h := newHarness(t)

	rows, err := h.rows.Append(h.ctx, []tickets.Ticket{
		trainTicket("Ramesh Sharma", "a.pdf"),
		trainTicket("Anita Verma", "b.pdf"),
	})
	require.NoError(t, err)

	rows[0].Suggested = "RAMESH SHARMA"
	rows[0].ApprovalFlag = "TRUE"
	rows[1].Suggested = "ANITA VERMA"
	rows[1].Approved = "ANITA VERMA"
	require.NoError(t, h.rows.Write(h.ctx, rows...))

	report, err := h.pipeline().CommitApproved(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Committed)
	assert.Equal(t, 2, report.Pending)

	for _, r := range h.sheetRows(t) {
		assert.Equal(t, tickets.StateSuggested, r.State())
	}
}

func TestMatchPending(t *testing.T) {
	h := newHarness(t)

	_, err := h.rows.Append(h.ctx, []tickets.Ticket{
		trainTicket("Mr. Ramesh Sharma", "a.pdf"),
		tickets.Failed(tickets.Ticket{Source: "b.pdf"}, "unclassified document"),
	})
	require.NoError(t, err)

	summary, err := h.pipeline().MatchPending(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Matched)
	assert.Equal(t, 1, summary.Skipped)

	rows := h.sheetRows(t)
	require.Len(t, rows, 2)
	assert.Equal(t, "RAMESH SHARMA", rows[0].Suggested)
}

func readMaster(t *testing.T, h *harness) [][]string {
	t.Helper()
	values, err := h.master.Read(h.ctx, "A2:AJ3")
	require.NoError(t, err)
	return values
}

func TestConfigFinalize(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		var cfg pipeline.Config
		require.NoError(t, cfg.Finalize(nil))
		assert.Equal(t, 4, cfg.Workers)
		assert.Equal(t, 5*time.Minute, cfg.FileTimeoutDuration())
		assert.Equal(t, 30*time.Minute, cfg.ClaimTimeoutDuration())
	})

	t.Run("env overrides", func(t *testing.T) {
		t.Setenv("TEST_PIPELINE_WORKERS", "8")
		t.Setenv("TEST_PIPELINE_FILE_TIMEOUT", "90s")

		var cfg pipeline.Config
		require.NoError(t, cfg.Finalize(&pipeline.Env{
			Workers:     "TEST_PIPELINE_WORKERS",
			FileTimeout: "TEST_PIPELINE_FILE_TIMEOUT",
		}))
		assert.Equal(t, 8, cfg.Workers)
		assert.Equal(t, 90*time.Second, cfg.FileTimeoutDuration())
	})

	t.Run("invalid timeout", func(t *testing.T) {
		cfg := pipeline.Config{FileTimeout: "soon"}
		assert.Error(t, cfg.Finalize(nil))
	})

	t.Run("negative workers", func(t *testing.T) {
		cfg := pipeline.Config{Workers: -1}
		assert.Error(t, cfg.Finalize(nil))
	})

	t.Run("claim shorter than file timeout", func(t *testing.T) {
		cfg := pipeline.Config{FileTimeout: "10m", ClaimTimeout: "5m"}
		assert.Error(t, cfg.Finalize(nil))
	})
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{pipeline.ErrBusy, 409},
		{fmt.Errorf("%w: read", tickets.ErrStoreUnavailable), 503},
		{fmt.Errorf("%w: read", roster.ErrUnavailable), 503},
		{pipeline.ErrRegistryUnavailable, 503},
		{recovery.ErrEngineUnavailable, 503},
		{errors.New("boom"), 500},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, pipeline.MapHTTPStatus(tt.err))
		})
	}
}
