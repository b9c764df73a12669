package retry

// Package retry wraps upstream calls in a per-attempt timeout plus bounded
// retries with jittered backoff. Classification of transient failures lives
// here so callers and tests share one definition.

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

const (
	baseBackoff = 200 * time.Millisecond
	jitterSpan  = 120 * time.Millisecond
)

// statusCoder is implemented by upstream errors that carry an HTTP status.
type statusCoder interface {
	StatusCode() int
}

// transientMarkers are message fragments that indicate a transient network
// failure when no status code is available.
var transientMarkers = []string{
	"timeout",
	"network",
	"fetch failed",
	"temporarily unavailable",
	"econnreset",
	"enotfound",
}

// TimeoutError reports that a single attempt exceeded its deadline.
type TimeoutError struct {
	Name    string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Name, e.Timeout)
}

// IsTimeout reports whether err is (or wraps) an attempt timeout.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// Retryable reports whether err is worth another attempt. Timeouts are
// retryable; status-carrying errors retry on 408, 429 and 5xx; otherwise a
// small set of transient message markers decides.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || IsTimeout(err) {
		return true
	}
	var sc statusCoder
	if errors.As(err, &sc) {
		status := sc.StatusCode()
		return status == 408 || status == 429 || status >= 500
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Options configures a Do call. MaxRetries counts retries after the first
// attempt, so MaxRetries=2 allows three attempts total.
type Options struct {
	// Name labels the operation in timeout errors and retry callbacks.
	Name string
	// Timeout bounds each individual attempt; zero disables the bound.
	Timeout time.Duration
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int
	// OnRetry is called before each retry sleep; attempt is 1-based.
	OnRetry func(attempt int, err error)
	// Sleep is injectable for tests; defaults to a context-aware sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Do runs fn with per-attempt timeouts and retries transient failures.
// Non-retryable errors return immediately; the last error is returned when
// attempts are exhausted.
func Do[T any](ctx context.Context, opts Options, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var lastErr error
	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if opts.OnRetry != nil {
				opts.OnRetry(attempt, lastErr)
			}
			if err := sleep(ctx, backoff(attempt)); err != nil {
				return zero, err
			}
		}

		result, err := runAttempt(ctx, opts, fn)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !Retryable(err) {
			return zero, err
		}
		if ctx.Err() != nil {
			return zero, lastErr
		}
	}
	return zero, lastErr
}

func runAttempt[T any](ctx context.Context, opts Options, fn func(ctx context.Context) (T, error)) (T, error) {
	attemptCtx := ctx
	cancel := func() {}
	if opts.Timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
	}
	defer cancel()

	result, err := fn(attemptCtx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		// The attempt deadline fired, not the caller's context.
		return result, &TimeoutError{Name: opts.Name, Timeout: opts.Timeout}
	}
	return result, err
}

// backoff doubles per attempt from the base, plus jitter so concurrent
// callers do not retry in lockstep.
func backoff(attempt int) time.Duration {
	d := baseBackoff << (attempt - 1)
	return d + time.Duration(rand.Int63n(int64(jitterSpan)))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
