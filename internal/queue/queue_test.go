package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"simcheck/internal/logger"
)

func TestEnqueueWithRetry(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(*MockQueue)
		attempts  int
		wantErr   bool
		wantCalls int
	}{
		{
			name: "first attempt succeeds",
			setup: func(q *MockQueue) {
				q.On("Enqueue", mock.Anything, mock.Anything).Return(nil).Once()
			},
			attempts:  3,
			wantCalls: 1,
		},
		{
			name: "succeeds after a failure",
			setup: func(q *MockQueue) {
				q.On("Enqueue", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()
				q.On("Enqueue", mock.Anything, mock.Anything).Return(nil).Once()
			},
			attempts:  3,
			wantCalls: 2,
		},
		{
			name: "all attempts fail",
			setup: func(q *MockQueue) {
				q.On("Enqueue", mock.Anything, mock.Anything).Return(errors.New("broker down"))
			},
			attempts:  2,
			wantErr:   true,
			wantCalls: 2,
		},
		{
			name: "zero attempts still tries once",
			setup: func(q *MockQueue) {
				q.On("Enqueue", mock.Anything, mock.Anything).Return(nil).Once()
			},
			attempts:  0,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := new(MockQueue)
			tt.setup(q)

			err := EnqueueWithRetry(context.Background(), q, Task{Type: TaskTypeCompare}, tt.attempts, time.Millisecond)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			q.AssertNumberOfCalls(t, "Enqueue", tt.wantCalls)
		})
	}
}

func TestEnqueueWithRetryStopsOnCancel(t *testing.T) {
	q := new(MockQueue)
	q.On("Enqueue", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := EnqueueWithRetry(ctx, q, Task{Type: TaskTypeWebCheck}, 5, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	q.AssertNumberOfCalls(t, "Enqueue", 1)
}

func TestJobTaskPayload(t *testing.T) {
	task, err := NewJobTask(TaskTypeWebCheck, "alice", "job-1", "job-2")
	require.NoError(t, err)
	assert.Equal(t, TaskTypeWebCheck, task.Type)
	assert.NotEmpty(t, task.ID)

	p, err := DecodeJobPayload(task)
	require.NoError(t, err)
	assert.Equal(t, "alice", p.OwnerID)
	assert.Equal(t, []string{"job-1", "job-2"}, p.JobIDs)

	_, err = NewJobTask(TaskTypeCompare, "alice")
	assert.Error(t, err)

	_, err = DecodeJobPayload(Task{Type: TaskTypeCompare, Payload: []byte(`{"job_ids":[]}`)})
	assert.Error(t, err)

	_, err = DecodeJobPayload(Task{Type: TaskTypeCompare, Payload: []byte(`not json`)})
	assert.Error(t, err)
}

func TestHandleMessage(t *testing.T) {
	q := &natsQueue{log: logger.Discard()}

	task, err := NewJobTask(TaskTypeCompare, "", "job-1")
	require.NoError(t, err)
	body, err := json.Marshal(task)
	require.NoError(t, err)

	var got Task
	q.handleMessage(context.Background(), &nats.Msg{Data: body}, func(_ context.Context, t Task) error {
		got = t
		return nil
	})
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, task.Payload, got.Payload)

	called := false
	q.handleMessage(context.Background(), &nats.Msg{Data: []byte("garbage")}, func(context.Context, Task) error {
		called = true
		return nil
	})
	assert.False(t, called, "undecodable messages are dropped")
}
