package bankfeed

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"rentledger/internal/infrastructure/bankfeed"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 1 * time.Second
	DefaultMaxDelay    = 30 * time.Second
)

// RetryOptions configures the retrier. The zero value is not usable; build
// one with DefaultRetryOptions and override fields as needed.
type RetryOptions struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// OnRetry is called before each sleep with the failed attempt's error,
	// the 1-based attempt number and the chosen delay.
	OnRetry func(err error, attempt int, delay time.Duration)
	// Sleep is swapped out in tests. Defaults to a context-aware sleep.
	Sleep func(ctx context.Context, d time.Duration) error
	// Now is swapped out in tests for HTTP-date Retry-After handling.
	Now func() time.Time
}

// DefaultRetryOptions returns the standard retry configuration
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
		Sleep:       sleepCtx,
		Now:         time.Now,
	}
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

// Retry runs op up to opts.MaxAttempts times, sleeping between failures
// with exponential backoff: min(BaseDelay * 2^n, MaxDelay) for the n-th
// retry. A Retry-After header on a 429 response overrides the computed
// delay. Non-retryable errors propagate immediately; once
// attempts are exhausted the last error is returned unwrapped.
func Retry[T any](ctx context.Context, opts RetryOptions, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepCtx
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return zero, err
		}
		if attempt == opts.MaxAttempts {
			break
		}

		delay := backoffDelay(opts.BaseDelay, opts.MaxDelay, attempt-1)
		if override, ok := retryAfterDelay(err, opts.Now()); ok {
			delay = override
		}
		if opts.OnRetry != nil {
			opts.OnRetry(err, attempt, delay)
		}
		if err := opts.Sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
	return zero, lastErr
}

// backoffDelay computes min(base * 2^n, max) for retry number n.
func backoffDelay(base, max time.Duration, n int) time.Duration {
	delay := base
	for i := 0; i < n; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}

// retryAfterDelay extracts a Retry-After override from a rate-limit
// response. Only 429s honour the header; other retryable statuses keep
// the exponential backoff. The header value may be a delay in seconds or
// an HTTP-date.
func retryAfterDelay(err error, now time.Time) (time.Duration, bool) {
	var apiErr *bankfeed.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusTooManyRequests || apiErr.RetryAfter == "" {
		return 0, false
	}

	if seconds, parseErr := strconv.Atoi(apiErr.RetryAfter); parseErr == nil {
		if seconds < 0 {
			return 0, true
		}
		return time.Duration(seconds) * time.Second, true
	}
	if at, parseErr := http.ParseTime(apiErr.RetryAfter); parseErr == nil {
		d := at.Sub(now)
		if d < 0 {
			return 0, true
		}
		return d, true
	}
	return 0, false
}

// IsRetryable reports whether an error is transient: HTTP 408, 429 or
// 5xx, timeouts, and connection-level failures. Client errors like
// 401/403/404 are never retried.
func IsRetryable(err error) bool {
	var apiErr *bankfeed.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusRequestTimeout,
			apiErr.StatusCode == http.StatusTooManyRequests,
			apiErr.StatusCode >= 500:
			return true
		}
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}
