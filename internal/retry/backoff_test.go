package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		name    string
		attempt int
		base    time.Duration
		want    time.Duration
	}{
		{name: "first attempt waits base", attempt: 0, base: 100 * time.Millisecond, want: 100 * time.Millisecond},
		{name: "doubles", attempt: 1, base: 100 * time.Millisecond, want: 200 * time.Millisecond},
		{name: "fourth retry", attempt: 4, base: 100 * time.Millisecond, want: 1600 * time.Millisecond},
		{name: "second base", attempt: 2, base: time.Second, want: 4 * time.Second},
		{name: "zero base", attempt: 3, base: 0, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExponentialBackoff(tt.attempt, tt.base))
		})
	}
}

func TestDoWaitsBackoffBetweenAttempts(t *testing.T) {
	base := 20 * time.Millisecond
	var at []time.Time
	err := Do(context.Background(), Policy{Attempts: 3, Base: base}, func(context.Context, int) error {
		at = append(at, time.Now())
		return errors.New("busy")
	})
	assert.EqualError(t, err, "busy")
	if assert.Len(t, at, 3) {
		assert.GreaterOrEqual(t, at[1].Sub(at[0]), ExponentialBackoff(0, base))
		assert.GreaterOrEqual(t, at[2].Sub(at[1]), ExponentialBackoff(1, base))
	}
}
