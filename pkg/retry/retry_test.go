package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JaimeStill/manifest/pkg/retry"
)

func fastPolicy(retries int) retry.Policy {
	return retry.Policy{
		MaxRetries:      retries,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2,
	}
}

func TestDo(t *testing.T) {
	errTransient := errors.New("transient")

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := retry.Do(context.Background(), fastPolicy(3), func(context.Context) error {
			calls++
			if calls < 3 {
				return errTransient
			}
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls != 3 {
			t.Errorf("calls = %d, want 3", calls)
		}
	})

	t.Run("returns last error when budget spent", func(t *testing.T) {
		calls := 0
		err := retry.Do(context.Background(), fastPolicy(2), func(context.Context) error {
			calls++
			return errTransient
		})
		if !errors.Is(err, errTransient) {
			t.Fatalf("err = %v, want transient", err)
		}
		if calls != 3 {
			t.Errorf("calls = %d, want 3", calls)
		}
	})

	t.Run("stops on permanent error", func(t *testing.T) {
		calls := 0
		errBad := errors.New("bad request")
		err := retry.Do(context.Background(), fastPolicy(5), func(context.Context) error {
			calls++
			return retry.Permanent(errBad)
		})
		if !errors.Is(err, errBad) {
			t.Fatalf("err = %v, want wrapped bad request", err)
		}
		if !retry.IsPermanent(err) {
			t.Error("expected permanent marker")
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})

	t.Run("honors cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		p := fastPolicy(5)
		p.InitialInterval = time.Hour
		p.MaxInterval = time.Hour

		calls := 0
		err := retry.Do(ctx, p, func(context.Context) error {
			calls++
			cancel()
			return errTransient
		})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})

	t.Run("invokes OnRetry", func(t *testing.T) {
		var attempts []int
		p := fastPolicy(2)
		p.OnRetry = func(attempt int, _ error) { attempts = append(attempts, attempt) }

		retry.Do(context.Background(), p, func(context.Context) error { return errTransient })

		if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
			t.Errorf("attempts = %v, want [1 2]", attempts)
		}
	})
}

func TestDoValue(t *testing.T) {
	calls := 0
	v, err := retry.DoValue(context.Background(), fastPolicy(2), func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("flaky")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "ok" {
		t.Errorf("value = %q, want ok", v)
	}
}

func TestPermanentNil(t *testing.T) {
	if retry.Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}
}

func TestConfigFinalize(t *testing.T) {
	t.Setenv("TEST_RETRY_MAX", "7")

	c := retry.Config{}
	if err := c.Finalize(&retry.Env{MaxRetries: "TEST_RETRY_MAX"}); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	p := c.Policy()
	if p.MaxRetries != 7 {
		t.Errorf("max retries = %d, want 7", p.MaxRetries)
	}
	if p.InitialInterval != time.Second {
		t.Errorf("initial interval = %v, want 1s", p.InitialInterval)
	}
	if !p.Jitter {
		t.Error("jitter should default on")
	}

	bad := retry.Config{InitialInterval: "soon"}
	if err := bad.Finalize(nil); err == nil {
		t.Error("expected error for invalid initial_interval")
	}
}
