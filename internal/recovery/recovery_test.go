package recovery_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"testing"
	"time"

	"github.com/JaimeStill/manifest/internal/recovery"
	"github.com/JaimeStill/manifest/pkg/retry"
)

type fakeRunner struct {
	out   []byte
	err   error
	name  string
	args  []string
	stdin []byte
}

func (f *fakeRunner) Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	f.name, f.args, f.stdin = name, args, stdin
	return f.out, f.err
}

type flaky struct {
	failures int
	err      error
	calls    int
}

func (f *flaky) Recognize(ctx context.Context, image []byte) (recovery.Recognition, error) {
	f.calls++
	if f.calls <= f.failures {
		return recovery.Recognition{}, f.err
	}
	return recovery.Recognition{Text: "PNR 6562526496", Confidence: 1}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastPolicy() retry.Policy {
	return retry.Policy{MaxRetries: 2, InitialInterval: time.Millisecond, Multiplier: 1}
}

func finalized(t *testing.T, cfg *recovery.Config) *recovery.Config {
	t.Helper()
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	return cfg
}

func TestTesseractInvocation(t *testing.T) {
	runner := &fakeRunner{out: []byte("IRCTC PNR : 6562526496\n")}
	tess := recovery.NewTesseract(finalized(t, &recovery.Config{}), runner)

	rec, err := tess.Recognize(context.Background(), []byte("png-bytes"))
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}

	if runner.name != "tesseract" {
		t.Errorf("binary = %q", runner.name)
	}
	want := []string{"stdin", "stdout", "-l", "eng", "--psm", "6", "--oem", "3", "-c", "preserve_interword_spaces=1"}
	if !slices.Equal(runner.args, want) {
		t.Errorf("args = %v, want %v", runner.args, want)
	}
	if string(runner.stdin) != "png-bytes" {
		t.Errorf("stdin = %q", runner.stdin)
	}
	if rec.Text != "IRCTC PNR : 6562526496\n" {
		t.Errorf("Text = %q", rec.Text)
	}
	if rec.Confidence != 1 {
		t.Errorf("Confidence = %v, want 1", rec.Confidence)
	}
}

func TestTesseractErrors(t *testing.T) {
	cfg := finalized(t, &recovery.Config{})

	t.Run("empty image", func(t *testing.T) {
		_, err := recovery.NewTesseract(cfg, &fakeRunner{}).Recognize(context.Background(), nil)
		if !errors.Is(err, recovery.ErrRecognitionFailed) {
			t.Errorf("error = %v, want ErrRecognitionFailed", err)
		}
	})

	t.Run("engine failure", func(t *testing.T) {
		runner := &fakeRunner{err: errors.New("exit status 1")}
		_, err := recovery.NewTesseract(cfg, runner).Recognize(context.Background(), []byte("x"))
		if !errors.Is(err, recovery.ErrRecognitionFailed) {
			t.Errorf("error = %v, want ErrRecognitionFailed", err)
		}
	})

	t.Run("missing binary", func(t *testing.T) {
		missing := finalized(t, &recovery.Config{Binary: "tesseract-does-not-exist-on-path"})
		_, err := recovery.NewTesseract(missing, recovery.ExecRunner{}).Recognize(context.Background(), []byte("x"))
		if !errors.Is(err, recovery.ErrEngineUnavailable) {
			t.Errorf("error = %v, want ErrEngineUnavailable", err)
		}
	})
}

func TestRetrying(t *testing.T) {
	t.Run("recovers from transient failure", func(t *testing.T) {
		next := &flaky{failures: 2, err: recovery.ErrRecognitionFailed}
		r := recovery.NewRetrying(next, fastPolicy(), discardLogger())

		rec, err := r.Recognize(context.Background(), []byte("x"))
		if err != nil {
			t.Fatalf("Recognize() error = %v", err)
		}
		if next.calls != 3 {
			t.Errorf("calls = %d, want 3", next.calls)
		}
		if rec.Text == "" {
			t.Error("expected recognized text")
		}
	})

	t.Run("gives up after budget", func(t *testing.T) {
		next := &flaky{failures: 10, err: recovery.ErrRecognitionFailed}
		r := recovery.NewRetrying(next, fastPolicy(), discardLogger())

		if _, err := r.Recognize(context.Background(), []byte("x")); !errors.Is(err, recovery.ErrRecognitionFailed) {
			t.Errorf("error = %v, want ErrRecognitionFailed", err)
		}
		if next.calls != 3 {
			t.Errorf("calls = %d, want 3", next.calls)
		}
	})

	t.Run("engine unavailable is not retried", func(t *testing.T) {
		next := &flaky{failures: 10, err: recovery.ErrEngineUnavailable}
		r := recovery.NewRetrying(next, fastPolicy(), discardLogger())

		if _, err := r.Recognize(context.Background(), []byte("x")); !errors.Is(err, recovery.ErrEngineUnavailable) {
			t.Errorf("error = %v, want ErrEngineUnavailable", err)
		}
		if next.calls != 1 {
			t.Errorf("calls = %d, want 1", next.calls)
		}
	})
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		text string
		want float64
	}{
		{"", 0},
		{"   \n", 0},
		{"PNR: 6562526496", 1},
		{"ab~~", 0.5},
	}

	for _, tt := range tests {
		if got := recovery.Confidence(tt.text); got != tt.want {
			t.Errorf("Confidence(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestNew(t *testing.T) {
	t.Run("tesseract", func(t *testing.T) {
		r, err := recovery.New(finalized(t, &recovery.Config{}), fastPolicy(), discardLogger())
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if _, ok := r.(*recovery.Retrying); !ok {
			t.Errorf("New() = %T, want *recovery.Retrying", r)
		}
	})

	t.Run("unknown engine", func(t *testing.T) {
		cfg := &recovery.Config{Engine: "abbyy"}
		if err := cfg.Finalize(nil); err == nil {
			t.Error("expected validation error for unknown engine")
		}
	})
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  recovery.Config
	}{
		{"psm out of range", recovery.Config{PSM: 14}},
		{"oem out of range", recovery.Config{OEM: 4}},
		{"bad timeout", recovery.Config{Timeout: "later"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Finalize(nil); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
