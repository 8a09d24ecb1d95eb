package orchestrator

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Result is one item's output or error, at the item's input index.
type Result[T any] struct {
	Value T
	Err   error
}

// Run calls fn for every item with at most limit calls in flight and waits for
// all of them. Results keep input order regardless of completion order. An item
// error never cancels its siblings; once ctx is done, items that have not
// started yet are recorded with ctx.Err() and fn is not called for them.
func Run[In, Out any](ctx context.Context, limit int, items []In, fn func(ctx context.Context, item In) (Out, error)) []Result[Out] {
	results := make([]Result[Out], len(items))
	if limit <= 0 {
		limit = 1
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			v, err := fn(ctx, item)
			results[i] = Result[Out]{Value: v, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
