package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy is a reusable retry policy: a bounded number of attempts with
// exponential backoff and a predicate deciding which errors are worth
// retrying. The same policy serves owner-resolution lookups under rate
// limiting and slippage retries on swap submission.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration
	// Multiplier scales the delay after each failed attempt.
	Multiplier float64
	// Retryable reports whether an error should be retried. A nil
	// predicate retries every error.
	Retryable func(error) bool
}

// Do runs op until it succeeds, the attempts are exhausted, the error
// is not retryable, or ctx is done. op receives the zero-based attempt
// index so callers can escalate per attempt (e.g. slippage tolerance).
func (p Policy) Do(ctx context.Context, op func(attempt int) error) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.BaseDelay
	eb.Multiplier = p.Multiplier
	eb.RandomizationFactor = 0
	eb.MaxElapsedTime = 0 // the attempt cap is the only limit
	eb.Reset()

	attempt := 0
	operation := func() error {
		err := op(attempt)
		attempt++
		if err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(p.MaxAttempts-1)), ctx)
	return backoff.Retry(operation, b)
}
