package pnr

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/JaimeStill/manifest/internal/tickets"
	"github.com/JaimeStill/manifest/pkg/retry"
)

// maxBody bounds how much of a status response is read.
const maxBody = 1 << 20

// Lookup resolves a PNR to its live reservation status. Every failure wraps
// tickets.ErrValidationUnavailable; callers record the row unverified.
type Lookup interface {
	Lookup(ctx context.Context, pnr string) (*Status, error)
}

// Client calls the RapidAPI IRCTC PNR status endpoint.
type Client struct {
	http    *http.Client
	baseURL string
	host    string
	apiKey  string
	schema  *jsonschema.Schema
	policy  retry.Policy
	logger  *slog.Logger
}

// NewClient creates a Client from a finalized config. A nil httpClient gets
// one with the configured timeout.
func NewClient(cfg *Config, httpClient *http.Client, policy retry.Policy, logger *slog.Logger) (*Client, error) {
	schema, err := compileSchema()
	if err != nil {
		return nil, fmt.Errorf("compile pnr response schema: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.TimeoutDuration()}
	}
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		host:    cfg.Host,
		apiKey:  cfg.APIKey,
		schema:  schema,
		policy:  policy,
		logger:  logger.With("system", "pnr"),
	}, nil
}

// Lookup fetches and parses the reservation for pnr. Transport errors, 429
// and 5xx responses are retried; other statuses fail immediately.
func (c *Client) Lookup(ctx context.Context, pnr string) (*Status, error) {
	pnr = strings.TrimSpace(pnr)
	if pnr == "" {
		return nil, fmt.Errorf("%w: empty pnr", tickets.ErrValidationUnavailable)
	}

	body, err := retry.DoValue(ctx, c.policy, func(ctx context.Context) ([]byte, error) {
		return c.fetch(ctx, pnr)
	})
	if err != nil {
		c.logger.WarnContext(ctx, "pnr lookup failed", "pnr", pnr, "error", err)
		return nil, fmt.Errorf("%w: lookup %s: %w", tickets.ErrValidationUnavailable, pnr, err)
	}

	status, ok, err := parse(c.schema, body)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid response for %s: %w", tickets.ErrValidationUnavailable, pnr, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: no reservation data for %s", tickets.ErrValidationUnavailable, pnr)
	}

	c.logger.InfoContext(ctx, "pnr resolved",
		"pnr", pnr,
		"train", status.TrainNumber,
		"passengers", len(status.Passengers),
	)
	return status, nil
}

func (c *Client) fetch(ctx context.Context, pnr string) ([]byte, error) {
	endpoint := c.baseURL + "/getPNRStatus/" + url.PathEscape(pnr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, retry.Permanent(err)
	}
	req.Header.Set("x-rapidapi-key", c.apiKey)
	req.Header.Set("x-rapidapi-host", c.host)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	default:
		return nil, retry.Permanent(fmt.Errorf("status %d", resp.StatusCode))
	}
}

// Disabled is the Lookup used when no API key is configured.
type Disabled struct{}

func (Disabled) Lookup(ctx context.Context, pnr string) (*Status, error) {
	return nil, fmt.Errorf("%w: live lookup not configured", tickets.ErrValidationUnavailable)
}

// New returns a Client when cfg carries an API key and Disabled otherwise.
func New(cfg *Config, policy retry.Policy, logger *slog.Logger) (Lookup, error) {
	if !cfg.Enabled() {
		logger.Info("pnr lookup disabled", "system", "pnr")
		return Disabled{}, nil
	}
	return NewClient(cfg, nil, policy, logger)
}
