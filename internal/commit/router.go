// Package commit advances approved ticket rows to COMMITTED by writing their
// travel entry into the matching guest record. Each row is committed at most
// once: a ledger entry per row serializes the check-then-write, and the guest
// block write is append-only into fixed slots so retries never duplicate.
package commit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/manifest/internal/roster"
	"github.com/JaimeStill/manifest/internal/tickets"
)

// Outcome is the result class of one commit attempt.
type Outcome string

const (
	OutcomeCommitted Outcome = "committed"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeErrored   Outcome = "errored"
	OutcomePending   Outcome = "pending"
)

// Result describes one commit attempt.
type Result struct {
	Row     int          `json:"row"`
	Outcome Outcome      `json:"outcome"`
	Block   roster.Block `json:"block,omitempty"`
	Guest   string       `json:"guest,omitempty"`
	Slot    int          `json:"slot"`
	Reason  string       `json:"reason,omitempty"`
	Err     error        `json:"-"`
}

// RowStore is the ticket row access the router needs.
type RowStore interface {
	Row(ctx context.Context, number int) (tickets.Row, error)
	Write(ctx context.Context, rows ...tickets.Row) error
}

// GuestStore is the guest record access the router needs.
type GuestStore interface {
	Guest(ctx context.Context, row int) (roster.Guest, error)
	WriteEntry(ctx context.Context, row int, b roster.Block, slot int, e roster.Entry) error
}

// Router commits approved rows.
type Router struct {
	rows   RowStore
	guests GuestStore
	ledger Ledger
	cfg    Config
	logger *slog.Logger
}

// NewRouter creates a Router. cfg is expected to be finalized.
func NewRouter(rows RowStore, guests GuestStore, ledger Ledger, cfg Config, logger *slog.Logger) *Router {
	return &Router{
		rows:   rows,
		guests: guests,
		ledger: ledger,
		cfg:    cfg,
		logger: logger.With("system", "commit"),
	}
}

// Commit runs the commit state machine for one row against a roster
// snapshot. Per-row problems are reported in Result; the returned error is
// reserved for store transport failures, which abort the batch.
func (r *Router) Commit(ctx context.Context, row tickets.Row, guests *roster.Roster) (Result, error) {
	logger := r.logger.With("row", row.Number)

	if res, done := gate(row); done {
		return res, nil
	}

	journey, err := ParseDate(row.JourneyDate)
	if err != nil {
		reason := fmt.Sprintf("invalid journey date '%s'", row.JourneyDate)
		logger.Warn("commit rejected", "reason", reason)
		return r.fail(ctx, row, reason)
	}
	block := Route(journey, r.cfg.CutoffDate())

	guest, ok := guests.Find(row.Approved)
	if !ok {
		return r.notFound(ctx, row)
	}

	entry, err := BuildEntry(row, block, r.cfg.DateFormat)
	if err != nil {
		return r.fail(ctx, row, fmt.Sprintf("invalid %s date: %v", block, err))
	}

	var res Result
	err = r.ledger.Do(ctx, Key(row), row.Number, func(ctx context.Context, le *LedgerEntry) error {
		current, err := r.rows.Row(ctx, row.Number)
		if errors.Is(err, tickets.ErrRowNotFound) {
			res = Result{Row: row.Number, Outcome: OutcomeSkipped, Reason: "row removed"}
			return nil
		}
		if err != nil {
			return err
		}
		if Key(current) != Key(row) {
			res = Result{Row: row.Number, Outcome: OutcomeSkipped, Reason: "row changed since read"}
			return nil
		}

		if le.Committed() {
			res, err = r.repair(ctx, current, le)
			return err
		}

		if gated, done := gate(current); done {
			res = gated
			return nil
		}

		fresh, err := r.guests.Guest(ctx, guest.Row)
		if err != nil {
			if errors.Is(err, roster.ErrGuestMissing) {
				res, err = r.notFound(ctx, current)
			}
			return err
		}
		if !roster.SameName(fresh.Name, current.Approved) {
			res, err = r.notFound(ctx, current)
			return err
		}

		slot, written, ok := Slot(fresh.Entries(block), entry)
		if !ok {
			res, err = r.fail(ctx, current, fmt.Sprintf("%s block full for '%s'", block, fresh.Name))
			return err
		}

		if !written {
			if err := r.guests.WriteEntry(ctx, fresh.Row, block, slot, entry); err != nil {
				return err
			}
		}

		current.CommitStatus = tickets.StatusCommitted
		if err := r.rows.Write(ctx, current); err != nil {
			return err
		}
		le.markCommitted(fresh.Name, string(block), slot)

		res = Result{
			Row:     row.Number,
			Outcome: OutcomeCommitted,
			Block:   block,
			Guest:   fresh.Name,
			Slot:    slot,
		}
		logger.Info("row committed",
			"guest", fresh.Name,
			"guest_row", fresh.Row,
			"block", block,
			"slot", slot,
			"already_present", written,
		)
		return nil
	})
	if err != nil {
		if errors.Is(err, tickets.ErrStoreUnavailable) {
			return Result{}, err
		}
		return Result{}, fmt.Errorf("%w: commit row %d: %w", tickets.ErrStoreUnavailable, row.Number, err)
	}
	return res, nil
}

// repair restores Q for a row whose ledger entry is committed but whose
// status write was lost.
func (r *Router) repair(ctx context.Context, row tickets.Row, le *LedgerEntry) (Result, error) {
	res := Result{
		Row:     row.Number,
		Outcome: OutcomeSkipped,
		Block:   roster.Block(le.Block),
		Guest:   le.GuestName,
		Slot:    le.Slot,
	}
	if row.State() == tickets.StateCommitted {
		return res, nil
	}

	row.CommitStatus = tickets.StatusCommitted
	if err := r.rows.Write(ctx, row); err != nil {
		return Result{}, err
	}
	r.logger.Info("commit status repaired", "row", row.Number, "guest", le.GuestName)
	res.Outcome = OutcomeCommitted
	return res, nil
}

func (r *Router) notFound(ctx context.Context, row tickets.Row) (Result, error) {
	reason := fmt.Sprintf("NOT FOUND: '%s'", row.Approved)
	row.CommitStatus = reason
	if err := r.rows.Write(ctx, row); err != nil {
		return Result{}, fmt.Errorf("%w: annotate row %d: %w", tickets.ErrStoreUnavailable, row.Number, err)
	}
	r.logger.Warn("approved name not in roster", "row", row.Number, "name", row.Approved)
	return Result{
		Row:     row.Number,
		Outcome: OutcomeErrored,
		Reason:  reason,
		Err:     fmt.Errorf("%w: %s", tickets.ErrCommitTargetNotFound, row.Approved),
	}, nil
}

func (r *Router) fail(ctx context.Context, row tickets.Row, reason string) (Result, error) {
	row.CommitStatus = "ERROR: " + reason
	if err := r.rows.Write(ctx, row); err != nil {
		return Result{}, fmt.Errorf("%w: annotate row %d: %w", tickets.ErrStoreUnavailable, row.Number, err)
	}
	r.logger.Warn("commit failed", "row", row.Number, "reason", reason)
	return Result{
		Row:     row.Number,
		Outcome: OutcomeErrored,
		Reason:  reason,
		Err:     errors.New(reason),
	}, nil
}

// gate applies the approval and idempotency preconditions.
func gate(row tickets.Row) (Result, bool) {
	switch row.State() {
	case tickets.StateCommitted:
		return Result{Row: row.Number, Outcome: OutcomeSkipped, Reason: "already committed"}, true
	case tickets.StateApproved:
		return Result{}, false
	case tickets.StateError:
		return Result{Row: row.Number, Outcome: OutcomeSkipped, Reason: "error row"}, true
	default:
		return Result{
			Row:     row.Number,
			Outcome: OutcomePending,
			Reason:  "awaiting approval",
			Err:     tickets.ErrCommitPrecondition,
		}, true
	}
}
