package resilience

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// ExhaustedError reports that every allowed attempt failed on a
// retryable error. Last is the failure observed on the final attempt.
type ExhaustedError struct {
	Attempts int
	Last     error
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("resilience: retries exhausted after %d attempts: %v", e.Attempts, e.Last)
}

// Unwrap returns the last underlying failure.
func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// IsExhausted checks if an error reports retry exhaustion.
func IsExhausted(err error) bool {
	var e *ExhaustedError
	return errors.As(err, &e)
}

// RetryConfig configures retry behavior for one logical call.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the first).
	MaxAttempts int
	// Backoff is the base backoff factor. The delay before attempt n+1 is
	// Backoff * 2^(n-1), capped at MaxBackoff.
	Backoff time.Duration
	// MaxBackoff is the ceiling for any single delay.
	MaxBackoff time.Duration
	// Jitter adds randomness to each delay (0.0 to 1.0 of the delay).
	Jitter float64
	// RetryIf determines whether an error is transient. A nil RetryIf
	// retries everything except context cancellation.
	RetryIf func(error) bool
	// OnRetry is called before sleeping between attempts.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultRetryConfig returns the retry defaults: 3 attempts, a one
// second backoff factor, and a 30 second delay ceiling.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		Backoff:     time.Second,
		MaxBackoff:  30 * time.Second,
		Jitter:      0.1,
		RetryIf:     DefaultRetryIf,
	}
}

// DefaultRetryIf retries all errors except context cancellation.
func DefaultRetryIf(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Retry executes fn until it succeeds, fails on a non-retryable error,
// or exhausts cfg.MaxAttempts. Non-retryable errors propagate as-is;
// exhaustion returns an *ExhaustedError wrapping the last failure. The
// calling goroutine blocks for the duration of all attempts.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	cfg.applyDefaults()

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = err

		if !cfg.RetryIf(err) {
			return zero, err
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		delay := Delay(attempt, cfg)

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	return zero, &ExhaustedError{Attempts: cfg.MaxAttempts, Last: lastErr}
}

// RetryFunc executes a function that returns only an error.
func RetryFunc(ctx context.Context, cfg RetryConfig, fn func() error) error {
	_, err := Retry(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// Delay computes the backoff delay after the given attempt (1-based):
// Backoff * 2^(attempt-1), jittered, capped at MaxBackoff. Exported so
// long-lived reconnect loops can share the schedule without the
// single-call Retry wrapper.
func Delay(attempt int, cfg RetryConfig) time.Duration {
	cfg.applyDefaults()

	d := float64(cfg.Backoff) * math.Pow(2, float64(attempt-1))

	if d > float64(cfg.MaxBackoff) {
		d = float64(cfg.MaxBackoff)
	}

	if cfg.Jitter > 0 {
		span := d * cfg.Jitter
		d += (rand.Float64()*2 - 1) * span
	}

	if d < 0 {
		d = float64(cfg.Backoff)
	}

	return time.Duration(d)
}

func (c *RetryConfig) applyDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.Backoff <= 0 {
		c.Backoff = time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Second
	}
	if c.RetryIf == nil {
		c.RetryIf = DefaultRetryIf
	}
}
