package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/JaimeStill/manifest/pkg/retry"
)

type google struct {
	svc           *gsheets.Service
	spreadsheetID string
	sheet         string
	input         string
	policy        retry.Policy
	logger        *slog.Logger
}

// NewGoogleService creates a Sheets API client. When credentialsFile is empty,
// application default credentials are used.
func NewGoogleService(ctx context.Context, credentialsFile string) (*gsheets.Service, error) {
	opts := []option.ClientOption{option.WithScopes(gsheets.SpreadsheetsScope)}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// NewGoogle binds a Table to one tab of a Google spreadsheet.
// input is the valueInputOption used for writes (RAW or USER_ENTERED).
func NewGoogle(
	svc *gsheets.Service,
	spreadsheetID, sheet, input string,
	policy retry.Policy,
	logger *slog.Logger,
) Table {
	return &google{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheet:         sheet,
		input:         input,
		policy:        policy,
		logger:        logger.With("system", "sheets", "sheet", sheet),
	}
}

func (g *google) Name() string {
	return g.sheet
}

func (g *google) Read(ctx context.Context, rng string) ([][]string, error) {
	resp, err := retry.DoValue(ctx, g.policy, func(ctx context.Context) (*gsheets.ValueRange, error) {
		r, err := g.svc.Spreadsheets.Values.
			Get(g.spreadsheetID, g.qualify(rng)).
			ValueRenderOption("FORMATTED_VALUE").
			Context(ctx).
			Do()
		return r, classify(err, true)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: read %s!%s: %w", ErrUnavailable, g.sheet, rng, err)
	}

	return fromValues(resp.Values), nil
}

// Append is only retried on rate limiting, where the API guarantees the write
// was not applied. Any other failure may have landed and is surfaced.
func (g *google) Append(ctx context.Context, rows [][]string) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	vr := &gsheets.ValueRange{Values: toValues(rows)}

	resp, err := retry.DoValue(ctx, g.policy, func(ctx context.Context) (*gsheets.AppendValuesResponse, error) {
		r, err := g.svc.Spreadsheets.Values.
			Append(g.spreadsheetID, g.qualify("A1"), vr).
			ValueInputOption(g.input).
			InsertDataOption("INSERT_ROWS").
			Context(ctx).
			Do()
		return r, classify(err, false)
	})
	if err != nil {
		return 0, fmt.Errorf("%w: append %s: %w", ErrUnavailable, g.sheet, err)
	}

	if resp.Updates == nil {
		return 0, fmt.Errorf("%w: append %s: response missing updated range", ErrUnavailable, g.sheet)
	}

	r, err := ParseRange(resp.Updates.UpdatedRange)
	if err != nil {
		return 0, err
	}

	g.logger.DebugContext(ctx, "rows appended", "range", resp.Updates.UpdatedRange, "count", len(rows))
	return r.StartRow, nil
}

func (g *google) Update(ctx context.Context, rng string, rows [][]string) error {
	vr := &gsheets.ValueRange{Values: toValues(rows)}

	err := retry.Do(ctx, g.policy, func(ctx context.Context) error {
		_, err := g.svc.Spreadsheets.Values.
			Update(g.spreadsheetID, g.qualify(rng), vr).
			ValueInputOption(g.input).
			Context(ctx).
			Do()
		return classify(err, true)
	})
	if err != nil {
		return fmt.Errorf("%w: update %s!%s: %w", ErrUnavailable, g.sheet, rng, err)
	}
	return nil
}

func (g *google) BatchUpdate(ctx context.Context, updates []Update) error {
	if len(updates) == 0 {
		return nil
	}

	data := make([]*gsheets.ValueRange, 0, len(updates))
	for _, u := range updates {
		data = append(data, &gsheets.ValueRange{
			Range:  g.qualify(u.Range),
			Values: toValues(u.Values),
		})
	}

	req := &gsheets.BatchUpdateValuesRequest{
		ValueInputOption: g.input,
		Data:             data,
	}

	err := retry.Do(ctx, g.policy, func(ctx context.Context) error {
		_, err := g.svc.Spreadsheets.Values.
			BatchUpdate(g.spreadsheetID, req).
			Context(ctx).
			Do()
		return classify(err, true)
	})
	if err != nil {
		return fmt.Errorf("%w: batch update %s (%d ranges): %w", ErrUnavailable, g.sheet, len(updates), err)
	}
	return nil
}

func (g *google) qualify(rng string) string {
	return fmt.Sprintf("'%s'!%s", g.sheet, rng)
}

// classify marks client errors as permanent. Idempotent calls retry on
// server errors and timeouts; non-idempotent calls retry on 429 only.
func classify(err error, idempotent bool) error {
	if err == nil {
		return nil
	}

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		if idempotent {
			return err
		}
		return retry.Permanent(err)
	}

	switch {
	case gerr.Code == http.StatusTooManyRequests:
		return err
	case idempotent && (gerr.Code >= 500 || gerr.Code == http.StatusRequestTimeout):
		return err
	default:
		return retry.Permanent(err)
	}
}

func toValues(rows [][]string) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		out[i] = make([]any, len(row))
		for j, v := range row {
			out[i][j] = v
		}
	}
	return out
}

func fromValues(values [][]any) [][]string {
	out := make([][]string, len(values))
	for i, row := range values {
		out[i] = make([]string, len(row))
		for j, v := range row {
			if v != nil {
				out[i][j] = fmt.Sprint(v)
			}
		}
	}
	return out
}
