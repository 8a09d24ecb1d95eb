package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"simcheck/internal/retry"
)

// TaskType enumerates supported task categories.
type TaskType string

const (
	TaskTypeCompare  TaskType = "compare"
	TaskTypeWebCheck TaskType = "webcheck"
)

// Task represents a unit of work handed from the gateway to a worker.
type Task struct {
	ID          uuid.UUID
	Type        TaskType
	Payload     []byte
	Attempts    int
	MaxAttempts int
	NotBefore   time.Time
}

type Handler func(context.Context, Task) error

// Queue exposes a minimal contract to enqueue and consume tasks.
type Queue interface {
	Enqueue(ctx context.Context, task Task) error
	Worker(ctx context.Context, taskType TaskType, handler Handler) error
}

// JobPayload names the persisted jobs a task should run. Jobs are already
// stored as queued when the task is published.
type JobPayload struct {
	OwnerID string   `json:"owner_id"`
	JobIDs  []string `json:"job_ids"`
}

// NewJobTask builds a task carrying job ids for the given type.
func NewJobTask(taskType TaskType, owner string, jobIDs ...string) (Task, error) {
	if len(jobIDs) == 0 {
		return Task{}, errors.New("at least one job id required")
	}
	body, err := json.Marshal(JobPayload{OwnerID: owner, JobIDs: jobIDs})
	if err != nil {
		return Task{}, err
	}
	return Task{ID: uuid.New(), Type: taskType, Payload: body}, nil
}

// DecodeJobPayload reverses NewJobTask.
func DecodeJobPayload(task Task) (JobPayload, error) {
	var p JobPayload
	if err := json.Unmarshal(task.Payload, &p); err != nil {
		return JobPayload{}, fmt.Errorf("decode %s payload: %w", task.Type, err)
	}
	if len(p.JobIDs) == 0 {
		return JobPayload{}, fmt.Errorf("%s payload has no job ids", task.Type)
	}
	return p, nil
}

// EnqueueWithRetry attempts to enqueue with retries and exponential backoff.
func EnqueueWithRetry(ctx context.Context, q Queue, task Task, attempts int, base time.Duration) error {
	if attempts <= 0 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		if err := q.Enqueue(ctx, task); err == nil {
			return nil
		} else if attempt == attempts-1 {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retry.ExponentialBackoff(attempt, base)):
		}
	}
	return nil
}
