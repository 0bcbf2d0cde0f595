package commit

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/manifest/internal/tickets"
)

var ledgerNamespace = uuid.MustParse("6f1d7c1e-54b8-4c5a-9a43-2d0b8e6f4a11")

// Ledger entry statuses.
const (
	LedgerPending   = "pending"
	LedgerCommitted = "committed"
)

// LedgerEntry records the commit of one ticket row.
type LedgerEntry struct {
	Key         uuid.UUID  `json:"key"`
	SheetRow    int        `json:"sheet_row"`
	Status      string     `json:"status"`
	GuestName   string     `json:"guest_name,omitempty"`
	Block       string     `json:"block,omitempty"`
	Slot        int        `json:"slot"`
	CommittedAt *time.Time `json:"committed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Committed reports whether the guest write for this entry already happened.
func (e *LedgerEntry) Committed() bool {
	return e.Status == LedgerCommitted
}

func (e *LedgerEntry) markCommitted(guest, block string, slot int) {
	now := time.Now().UTC()
	e.Status = LedgerCommitted
	e.GuestName = guest
	e.Block = block
	e.Slot = slot
	e.CommittedAt = &now
}

// Ledger serializes commits per row key. Do claims the entry for key, runs
// fn while holding it, and persists fn's changes only when fn succeeds.
type Ledger interface {
	Do(ctx context.Context, key uuid.UUID, sheetRow int, fn func(ctx context.Context, e *LedgerEntry) error) error
}

// Key derives a stable ledger key from the ticket content, independent of
// the row's position in the sheet.
func Key(row tickets.Row) uuid.UUID {
	parts := []string{
		string(row.Category),
		strings.ToUpper(row.PNR),
		strings.ToUpper(row.Passenger),
		row.JourneyDate,
		row.CarrierNumber,
		row.Source,
	}
	return uuid.NewSHA1(ledgerNamespace, []byte(strings.Join(parts, "\x1f")))
}

// MemoryLedger is an in-process Ledger for single-instance runs and tests.
type MemoryLedger struct {
	mu      sync.Mutex
	locks   map[uuid.UUID]*sync.Mutex
	entries map[uuid.UUID]LedgerEntry
}

// NewMemoryLedger creates an empty MemoryLedger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		locks:   make(map[uuid.UUID]*sync.Mutex),
		entries: make(map[uuid.UUID]LedgerEntry),
	}
}

func (l *MemoryLedger) Do(ctx context.Context, key uuid.UUID, sheetRow int, fn func(ctx context.Context, e *LedgerEntry) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	lock, ok := l.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[key] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()

	l.mu.Lock()
	entry, ok := l.entries[key]
	l.mu.Unlock()
	if !ok {
		entry = LedgerEntry{Key: key, Status: LedgerPending}
	}
	entry.SheetRow = sheetRow

	if err := fn(ctx, &entry); err != nil {
		return err
	}
	entry.UpdatedAt = time.Now().UTC()

	l.mu.Lock()
	l.entries[key] = entry
	l.mu.Unlock()
	return nil
}

// Entry returns the stored entry for key.
func (l *MemoryLedger) Entry(key uuid.UUID) (LedgerEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	return e, ok
}
