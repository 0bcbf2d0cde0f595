package commit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/JaimeStill/manifest/pkg/repository"
)

// PostgresLedger stores ledger entries in the commit_ledger table. Each Do
// runs in one transaction holding a row lock on the entry.
type PostgresLedger struct {
	db *sql.DB
}

// NewPostgresLedger creates a ledger over db.
func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

const (
	claimEntry = `
INSERT INTO commit_ledger (key, sheet_row, status)
VALUES ($1, $2, 'pending')
ON CONFLICT (key) DO NOTHING`

	lockEntry = `
SELECT key, sheet_row, status, COALESCE(guest_name, ''), COALESCE(block, ''),
       COALESCE(slot, 0), committed_at, updated_at
FROM commit_ledger
WHERE key = $1
FOR UPDATE`

	saveEntry = `
UPDATE commit_ledger
SET sheet_row = $2, status = $3, guest_name = NULLIF($4, ''), block = NULLIF($5, ''),
    slot = $6, committed_at = $7, updated_at = NOW()
WHERE key = $1`
)

func scanEntry(s repository.Scanner) (LedgerEntry, error) {
	var e LedgerEntry
	err := s.Scan(
		&e.Key,
		&e.SheetRow,
		&e.Status,
		&e.GuestName,
		&e.Block,
		&e.Slot,
		&e.CommittedAt,
		&e.UpdatedAt,
	)
	return e, err
}

func (l *PostgresLedger) Do(ctx context.Context, key uuid.UUID, sheetRow int, fn func(ctx context.Context, e *LedgerEntry) error) error {
	_, err := repository.WithTx(ctx, l.db, func(tx *sql.Tx) (struct{}, error) {
		if _, err := tx.ExecContext(ctx, claimEntry, key, sheetRow); err != nil {
			return struct{}{}, fmt.Errorf("claim ledger entry: %w", err)
		}

		entry, err := repository.QueryOne(ctx, tx, lockEntry, []any{key}, scanEntry)
		if err != nil {
			return struct{}{}, fmt.Errorf("lock ledger entry: %w", err)
		}
		entry.SheetRow = sheetRow

		if err := fn(ctx, &entry); err != nil {
			return struct{}{}, err
		}

		if err := repository.ExecExpectOne(ctx, tx, saveEntry,
			entry.Key,
			entry.SheetRow,
			entry.Status,
			entry.GuestName,
			entry.Block,
			entry.Slot,
			entry.CommittedAt,
		); err != nil {
			return struct{}{}, fmt.Errorf("save ledger entry: %w", err)
		}
		return struct{}{}, nil
	})
	return err
}
