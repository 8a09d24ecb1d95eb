package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"simcheck/internal/app"
	"simcheck/internal/apperr"
	"simcheck/internal/httputil"
	"simcheck/internal/queue"
)

func main() {
	deps, err := app.Build()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer deps.Close()
	if deps.Queue == nil {
		deps.Log.Error("worker requires QUEUE_PROVIDER=nats")
		os.Exit(1)
	}
	deps.Log.Info("worker starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return deps.Queue.Worker(ctx, queue.TaskTypeCompare, compareTask(deps))
	})
	g.Go(func() error {
		return deps.Queue.Worker(ctx, queue.TaskTypeWebCheck, webCheckTask(deps))
	})
	g.Go(func() error {
		return httputil.ServeHealth(ctx, deps, "worker")
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		deps.Log.Error("worker stopped", "err", err)
	}
}

// compareTask runs each comparison job named by the task. Jobs that finish,
// even in total outage, are not redelivered; only persistence failures are.
func compareTask(deps app.Deps) queue.Handler {
	return func(ctx context.Context, task queue.Task) error {
		payload, err := queue.DecodeJobPayload(task)
		if err != nil {
			deps.Log.Error("dropping malformed task", "task_id", task.ID, "err", err)
			return nil
		}
		for _, id := range payload.JobIDs {
			log := deps.Log.With("job_id", id, "task_id", task.ID)
			job, err := deps.Comparer.RunJob(ctx, id)
			switch {
			case errors.Is(err, apperr.ErrNotFound):
				log.Warn("comparison job no longer exists")
			case errors.Is(err, apperr.ErrTotalOutage):
				log.Error("comparison job finished without any score", "err", err)
			case err != nil:
				return err
			default:
				log.Info("comparison job done", "pairs", len(job.PairResults))
			}
		}
		return nil
	}
}

func webCheckTask(deps app.Deps) queue.Handler {
	return func(ctx context.Context, task queue.Task) error {
		payload, err := queue.DecodeJobPayload(task)
		if err != nil {
			deps.Log.Error("dropping malformed task", "task_id", task.ID, "err", err)
			return nil
		}
		log := deps.Log.With("task_id", task.ID, "jobs", len(payload.JobIDs))
		jobs, err := deps.WebChecker.RunJobs(ctx, payload.JobIDs)
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			log.Warn("web check job no longer exists", "err", err)
		case errors.Is(err, apperr.ErrTotalOutage):
			log.Error("web check jobs finished without any score", "err", err)
		case err != nil:
			return err
		default:
			log.Info("web check jobs done", "done", len(jobs))
		}
		return nil
	}
}
