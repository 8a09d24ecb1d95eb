package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errTransient = errors.New("transient")

func TestDo(t *testing.T) {
	retryable := func(err error) bool { return errors.Is(err, errTransient) }

	tests := []struct {
		name      string
		attempts  int
		failures  []error
		wantCalls int
		wantErr   error
	}{
		{"first try succeeds", 2, nil, 1, nil},
		{"one retry then success", 2, []error{errTransient}, 2, nil},
		{"retries exhausted", 2, []error{errTransient, errTransient, errTransient}, 2, errTransient},
		{"permanent error not retried", 3, []error{errors.New("bad request")}, 1, nil},
		{"zero attempts runs once", 0, []error{errTransient}, 1, errTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Do(context.Background(), Policy{Attempts: tt.attempts, Base: time.Millisecond, Retryable: retryable},
				func(_ context.Context, attempt int) error {
					assert.Equal(t, calls, attempt)
					calls++
					if calls <= len(tt.failures) {
						return tt.failures[calls-1]
					}
					return nil
				})
			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else if tt.name == "permanent error not retried" {
				assert.EqualError(t, err, "bad request")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDoStopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, Policy{Attempts: 5, Base: time.Hour}, func(context.Context, int) error {
		calls++
		cancel()
		return errTransient
	})
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 1, calls)
}
