package cache

import (
	"context"
	"errors"
	"time"
)

// RetryableError wraps an error to indicate it should trigger a retry.
type RetryableError struct{ Err error }

// Retryable wraps an error as a RetryableError.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// Error returns the error message of the wrapped error.
func (e *RetryableError) Error() string { return e.Err.Error() }

// Unwrap returns the wrapped error.
func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable checks if an error is wrapped with RetryableError.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// RetryPolicy controls [RetryWithPolicy].
type RetryPolicy struct {
	Attempts int           // total calls including the first, at least 1
	Delay    time.Duration // wait before the second call, doubled afterwards
}

// DefaultRetryPolicy is three attempts starting at one second.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Delay: time.Second}

// RetryWithBackoff retries fn with [DefaultRetryPolicy].
// Only errors wrapped with Retryable will trigger retries.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	return RetryWithPolicy(ctx, DefaultRetryPolicy, fn)
}

// RetryWithPolicy retries fn with exponential backoff according to p.
// Non-retryable errors and context cancellation stop immediately.
func RetryWithPolicy(ctx context.Context, p RetryPolicy, fn func() error) error {
	attempts := max(p.Attempts, 1)
	delay := p.Delay
	var lastErr error

	for i := 0; i < attempts; i++ {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !IsRetryable(err) {
			return err
		}

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return lastErr
}
