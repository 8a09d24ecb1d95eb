package retry

import (
	"context"
	"time"
)

// Policy bounds how often and how patiently a call is retried.
type Policy struct {
	Attempts  int
	Base      time.Duration
	Retryable func(error) bool
}

// Do runs fn until it succeeds, returns a non-retryable error, or the attempts are used up.
// fn receives the zero-based attempt number. The last error is returned.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = fn(ctx, attempt); err == nil {
			return nil
		}
		if attempt == attempts-1 || (p.Retryable != nil && !p.Retryable(err)) {
			return err
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(ExponentialBackoff(attempt, p.Base)):
		}
	}
	return err
}
