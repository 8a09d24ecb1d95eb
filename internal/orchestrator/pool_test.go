package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simcheck/internal/apperr"
)

func TestRunKeepsInputOrder(t *testing.T) {
	items := []int{5, 1, 4, 2, 3}
	var inFlight, peak atomic.Int32

	results := Run(context.Background(), 2, items, func(_ context.Context, n int) (string, error) {
		cur := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(time.Duration(n) * time.Millisecond)
		if n == 4 {
			return "", errors.New("four failed")
		}
		return fmt.Sprintf("item-%d", n), nil
	})

	require.Len(t, results, len(items))
	for i, n := range items {
		if n == 4 {
			assert.EqualError(t, results[i].Err, "four failed")
			continue
		}
		assert.NoError(t, results[i].Err)
		assert.Equal(t, fmt.Sprintf("item-%d", n), results[i].Value)
	}
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestRunCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	results := Run(ctx, 4, []string{"a", "b", "c"}, func(context.Context, string) (int, error) {
		calls.Add(1)
		return 1, nil
	})

	assert.Zero(t, calls.Load())
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}

func TestRunZeroLimit(t *testing.T) {
	results := Run(context.Background(), 0, []int{1, 2}, func(_ context.Context, n int) (int, error) {
		return n * 10, nil
	})
	assert.Equal(t, 10, results[0].Value)
	assert.Equal(t, 20, results[1].Value)
}

func TestCall(t *testing.T) {
	policy := CallPolicy{Timeout: 50 * time.Millisecond, Attempts: 2, Base: time.Millisecond}

	tests := []struct {
		name      string
		fn        func(calls int) (string, error)
		wantCalls int
		wantErr   error
	}{
		{
			name:      "success",
			fn:        func(int) (string, error) { return "ok", nil },
			wantCalls: 1,
		},
		{
			name: "upstream failure is retried once",
			fn: func(calls int) (string, error) {
				if calls == 1 {
					return "", apperr.Upstream("engine", errors.New("503"))
				}
				return "ok", nil
			},
			wantCalls: 2,
		},
		{
			name:      "validation failure is not retried",
			fn:        func(int) (string, error) { return "", apperr.Validation("bad input") },
			wantCalls: 1,
			wantErr:   apperr.ErrValidation,
		},
		{
			name:      "persistent upstream failure gives up",
			fn:        func(int) (string, error) { return "", apperr.Upstream("engine", errors.New("503")) },
			wantCalls: 2,
			wantErr:   apperr.ErrUpstreamUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			got, err := call(context.Background(), policy, func(context.Context) (string, error) {
				calls++
				return tt.fn(calls)
			})
			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ok", got)
		})
	}
}

func TestCallTimeoutIsUpstream(t *testing.T) {
	policy := CallPolicy{Timeout: 10 * time.Millisecond, Attempts: 1}
	_, err := call(context.Background(), policy, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	assert.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
