package pnr_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JaimeStill/manifest/internal/pnr"
	"github.com/JaimeStill/manifest/internal/tickets"
	"github.com/JaimeStill/manifest/pkg/retry"
)

const okResponse = `{
  "success": true,
  "data": {
    "pnrNumber": "6562526496",
    "trainNumber": "12817",
    "trainName": "JHARKHAND SWARNA JAYANTI EXP",
    "dateOfJourney": "Feb 13, 2026 4:25:00 PM",
    "arrivalDate": "Feb 14, 2026 6:05:00 AM",
    "passengerList": [
      {"bookingCoachId": "B2", "currentCoachId": "B3", "bookingBerthNo": 34, "currentBerthNo": 0, "currentBerthCode": "LB", "currentStatusDetails": "CNF"},
      {"bookingCoachId": "B2", "bookingBerthNo": "35", "bookingBerthCode": "MB", "currentStatusDetails": null, "bookingStatusDetails": "WL 12"}
    ]
  }
}`

func testPolicy() retry.Policy {
	return retry.Policy{
		MaxRetries:      2,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newClient(t *testing.T, srv *httptest.Server) *pnr.Client {
	t.Helper()
	cfg := &pnr.Config{BaseURL: srv.URL, APIKey: "secret"}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	c, err := pnr.NewClient(cfg, srv.Client(), testPolicy(), discardLogger())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func TestLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/getPNRStatus/6562526496" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("x-rapidapi-key") != "secret" {
			t.Errorf("missing api key header")
		}
		if r.Header.Get("x-rapidapi-host") == "" {
			t.Errorf("missing host header")
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, okResponse)
	}))
	defer srv.Close()

	status, err := newClient(t, srv).Lookup(context.Background(), "6562526496")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}

	if status.TrainNumber != "12817" {
		t.Errorf("TrainNumber = %q", status.TrainNumber)
	}
	if status.JourneyDate() != "2026-02-13" || status.DepartureTime() != "16:25" {
		t.Errorf("departure = %s %s", status.JourneyDate(), status.DepartureTime())
	}
	if status.ArrivalDate() != "2026-02-14" || status.ArrivalTime() != "06:05" {
		t.Errorf("arrival = %s %s", status.ArrivalDate(), status.ArrivalTime())
	}
	if len(status.Passengers) != 2 {
		t.Fatalf("passengers = %d, want 2", len(status.Passengers))
	}

	tests := []struct {
		seat   string
		status string
	}{
		{"B3/34/LB", "CNF"},
		{"B2/35/MB", "WL 12"},
	}
	for i, tt := range tests {
		p := status.Passengers[i]
		if p.Seat() != tt.seat {
			t.Errorf("passenger %d seat = %q, want %q", i, p.Seat(), tt.seat)
		}
		if p.Status != tt.status {
			t.Errorf("passenger %d status = %q, want %q", i, p.Status, tt.status)
		}
	}
}

func TestLookupFailures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantCalls int32
	}{
		{"unsuccessful", http.StatusOK, `{"success": false, "data": null}`, 1},
		{"schema violation", http.StatusOK, `{"success": "yes"}`, 1},
		{"not json", http.StatusOK, `<html></html>`, 1},
		{"client error", http.StatusForbidden, `{}`, 1},
		{"server error retried", http.StatusBadGateway, `{}`, 3},
		{"rate limited retried", http.StatusTooManyRequests, `{}`, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := newClient(t, srv).Lookup(context.Background(), "6562526496")
			if !errors.Is(err, tickets.ErrValidationUnavailable) {
				t.Fatalf("error = %v, want ErrValidationUnavailable", err)
			}
			if got := calls.Load(); got != tt.wantCalls {
				t.Errorf("calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestLookupRecoversAfterTransientFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, okResponse)
	}))
	defer srv.Close()

	status, err := newClient(t, srv).Lookup(context.Background(), "6562526496")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if status.PNR != "6562526496" {
		t.Errorf("PNR = %q", status.PNR)
	}
}

func TestNewDisabled(t *testing.T) {
	cfg := &pnr.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if cfg.Enabled() {
		t.Fatal("config without api key should be disabled")
	}

	lookup, err := pnr.New(cfg, testPolicy(), discardLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := lookup.Lookup(context.Background(), "6562526496"); !errors.Is(err, tickets.ErrValidationUnavailable) {
		t.Errorf("error = %v, want ErrValidationUnavailable", err)
	}
}

func TestConfigValidation(t *testing.T) {
	cfg := &pnr.Config{BaseURL: "::not a url"}
	if err := cfg.Finalize(nil); err == nil {
		t.Error("expected error for invalid base_url")
	}

	cfg = &pnr.Config{Timeout: "soon"}
	if err := cfg.Finalize(nil); err == nil {
		t.Error("expected error for invalid timeout")
	}
}
