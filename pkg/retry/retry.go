// Package retry runs operations against external collaborators with bounded
// exponential backoff. Errors marked Permanent, and context cancellation, end
// the loop immediately.
package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// Policy is the runtime form of Config.
type Policy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	MaxElapsedTime  time.Duration
	Jitter          bool

	// OnRetry, when set, runs before each retry attempt.
	OnRetry func(attempt int, err error)
}

// DefaultPolicy mirrors the defaults applied by Config.Finalize.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:      3,
		InitialInterval: time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
		MaxElapsedTime:  2 * time.Minute,
		Jitter:          true,
	}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Nil stays nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Do executes op until it succeeds, returns a permanent error, the retry
// budget is spent, or ctx is done. The delay before attempt n is
// InitialInterval * Multiplier^(n-1), plus up to 25% jitter, capped at MaxInterval.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	var lastErr error
	start := time.Now()

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := p.delay(attempt)
			if p.MaxElapsedTime > 0 && time.Since(start)+delay > p.MaxElapsedTime {
				return lastErr
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}

			if p.OnRetry != nil {
				p.OnRetry(attempt, lastErr)
			}
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if IsPermanent(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
	}

	return lastErr
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := Do(ctx, p, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	return result, err
}

func (p Policy) delay(attempt int) time.Duration {
	d := float64(p.InitialInterval)
	for i := 1; i < attempt; i++ {
		d *= p.Multiplier
	}
	if p.Jitter {
		d += d * 0.25 * rand.Float64()
	}
	if p.MaxInterval > 0 {
		return min(time.Duration(d), p.MaxInterval)
	}
	return time.Duration(d)
}
