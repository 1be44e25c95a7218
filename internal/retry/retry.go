// Package retry wraps provider calls with transient-failure classification
// and an escalating backoff schedule.
package retry

import (
	"context"
	"strings"
	"time"
)

// StatusCoder is implemented by errors that carry an HTTP status from an
// upstream provider.
type StatusCoder interface {
	StatusCode() int
}

// RateLimited is implemented by errors that carry a provider-specific
// rate-limit marker independent of the HTTP status.
type RateLimited interface {
	IsRateLimit() bool
}

type Options struct {
	MaxRetries  int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	ShouldRetry func(error) bool
}

func DefaultOptions() Options {
	return Options{
		MaxRetries:  3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    15 * time.Second,
		ShouldRetry: IsRetryable,
	}
}

// The first escalation steps are fixed rather than purely exponential: the
// first retry goes out immediately since a transient blip often clears at
// once, then delays climb to spare provider quota.
var delaySchedule = []time.Duration{
	0,
	2 * time.Second,
	5 * time.Second,
	10 * time.Second,
	15 * time.Second,
}

var retryablePatterns = []string{
	"rate limit",
	"rate_limit",
	"too many requests",
	"timeout",
	"timed out",
	"deadline exceeded",
	"connection reset",
	"connection refused",
	"no such host",
	"temporary failure in name resolution",
	"server_error",
}

// IsRetryable classifies an error. Errors with an HTTP status in
// {429, 502, 503, 504} or a transient-looking message are retryable; statuses
// {400, 401, 403, 404} and anything unclassified are not, so a broken request
// fails fast instead of burning quota.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if rl, ok := err.(RateLimited); ok && rl.IsRateLimit() {
		return true
	}

	if sc, ok := err.(StatusCoder); ok {
		switch sc.StatusCode() {
		case 429, 502, 503, 504:
			return true
		case 400, 401, 403, 404:
			return false
		}
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range retryablePatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}

	return false
}

// Delay returns the backoff before the given retry attempt (attempt 1 is the
// first retry). Beyond the fixed schedule the delay doubles per attempt,
// always capped at opts.MaxDelay.
func Delay(attempt int, opts Options) time.Duration {
	if attempt <= 0 {
		return 0
	}

	var d time.Duration
	if attempt <= len(delaySchedule) {
		d = delaySchedule[attempt-1]
	} else {
		d = opts.BaseDelay
		for i := 1; i < attempt; i++ {
			d *= 2
			if opts.MaxDelay > 0 && d >= opts.MaxDelay {
				d = opts.MaxDelay
				break
			}
		}
	}

	if opts.MaxDelay > 0 && d > opts.MaxDelay {
		d = opts.MaxDelay
	}
	return d
}

// Do runs fn up to opts.MaxRetries+1 times, sleeping the scheduled delay
// between attempts. It returns the last error once attempts are exhausted or
// as soon as the error is classified non-retryable. The backoff sleep
// respects ctx cancellation.
func Do[T any](ctx context.Context, fn func(ctx context.Context) (T, error), opts Options) (T, error) {
	var zero T

	shouldRetry := opts.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsRetryable
	}

	var lastErr error
	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, Delay(attempt, opts)); err != nil {
				return zero, err
			}
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}

		lastErr = err
		if !shouldRetry(err) {
			return zero, err
		}
	}

	return zero, lastErr
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
