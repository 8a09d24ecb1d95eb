package orchestrator

import (
	"context"
	"errors"
	"time"

	"simcheck/internal/apperr"
	"simcheck/internal/retry"
)

// CallPolicy bounds every external call made on behalf of one item.
type CallPolicy struct {
	Timeout  time.Duration
	Attempts int
	Base     time.Duration
}

// call runs fn under a per-attempt timeout and retries retryable failures.
func call[T any](ctx context.Context, p CallPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := retry.Do(ctx, retry.Policy{
		Attempts:  p.Attempts,
		Base:      p.Base,
		Retryable: apperr.IsRetryable,
	}, func(ctx context.Context, _ int) error {
		cctx := ctx
		if p.Timeout > 0 {
			var cancel context.CancelFunc
			cctx, cancel = context.WithTimeout(ctx, p.Timeout)
			defer cancel()
		}
		v, err := fn(cctx)
		if err != nil {
			if ctx.Err() == nil && errors.Is(cctx.Err(), context.DeadlineExceeded) {
				return apperr.Upstream("call timed out", err)
			}
			return err
		}
		out = v
		return nil
	})
	return out, err
}
