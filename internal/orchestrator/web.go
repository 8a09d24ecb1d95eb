package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"simcheck/internal/apperr"
	"simcheck/internal/cache"
	"simcheck/internal/reports"
	"simcheck/internal/scoring"
	"simcheck/internal/store"
	"simcheck/internal/websearch"
)

// WebChecker runs one web-originality job per document.
type WebChecker struct {
	store    store.Store
	texts    *TextLoader
	provider websearch.Provider
	reports  ReportSink
	cache    cache.Cache
	cacheTTL time.Duration
	opts     Options
	log      *slog.Logger
	now      func() time.Time
}

func NewWebChecker(st store.Store, texts *TextLoader, provider websearch.Provider, sink ReportSink, opts Options, log *slog.Logger) *WebChecker {
	return &WebChecker{
		store:    st,
		texts:    texts,
		provider: provider,
		reports:  sink,
		cache:    cache.NewNoOpCache(),
		opts:     opts,
		log:      log,
		now:      time.Now,
	}
}

// WithCache enables result caching for ttl. A zero ttl leaves caching off.
func (w *WebChecker) WithCache(c cache.Cache, ttl time.Duration) *WebChecker {
	if c != nil && ttl > 0 {
		w.cache = c
		w.cacheTTL = ttl
	}
	return w
}

// CheckWeb prepares and runs one job per distinct document in ids.
func (w *WebChecker) CheckWeb(ctx context.Context, owner string, ids []string) ([]store.WebCheckJob, error) {
	jobs, err := w.Prepare(ctx, owner, ids)
	if err != nil {
		return nil, err
	}
	return w.Run(ctx, jobs)
}

// Prepare validates the selection and persists one queued job per document,
// ordered by document id.
func (w *WebChecker) Prepare(ctx context.Context, owner string, ids []string) ([]store.WebCheckJob, error) {
	distinct := distinctSorted(ids)
	if len(distinct) == 0 {
		return nil, apperr.Validation("at least one document is required")
	}

	docs := make([]store.Document, 0, len(distinct))
	for _, id := range distinct {
		doc, err := w.store.GetDocument(ctx, id)
		if err != nil {
			return nil, err
		}
		if doc.Status != store.StatusReady {
			return nil, apperr.Validation("document %s is not ready (status %s)", id, doc.Status)
		}
		docs = append(docs, doc)
	}

	created := w.now().UTC()
	jobs := make([]store.WebCheckJob, 0, len(docs))
	for _, doc := range docs {
		job := store.WebCheckJob{
			ID:            uuid.NewString(),
			OwnerID:       owner,
			DocumentID:    doc.ID,
			DocumentTitle: doc.Title,
			State:         store.JobQueued,
			CreatedAt:     created,
		}
		if err := w.store.SaveWebCheckJob(ctx, job); err != nil {
			return nil, fmt.Errorf("save web check job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// RunJobs loads persisted jobs and runs those not yet done. Results keep the
// order of jobIDs.
func (w *WebChecker) RunJobs(ctx context.Context, jobIDs []string) ([]store.WebCheckJob, error) {
	jobs := make([]store.WebCheckJob, 0, len(jobIDs))
	var pending []int
	for _, id := range jobIDs {
		job, err := w.store.GetWebCheckJob(ctx, id)
		if err != nil {
			return nil, err
		}
		if job.State != store.JobDone {
			pending = append(pending, len(jobs))
		}
		jobs = append(jobs, job)
	}
	if len(pending) == 0 {
		return jobs, nil
	}

	todo := make([]store.WebCheckJob, len(pending))
	for i, idx := range pending {
		todo[i] = jobs[idx]
	}
	done, err := w.Run(ctx, todo)
	for i, idx := range pending {
		if i < len(done) {
			jobs[idx] = done[i]
		}
	}
	return jobs, err
}

// Run checks every job's document concurrently and persists each finished job.
// Item failures are recorded on the job result; the returned error is set only
// for persistence failures or a total outage.
func (w *WebChecker) Run(ctx context.Context, jobs []store.WebCheckJob) ([]store.WebCheckJob, error) {
	for i := range jobs {
		jobs[i].State = store.JobRunning
		if err := w.store.SaveWebCheckJob(ctx, jobs[i]); err != nil {
			jobs[i].State = store.JobQueued
			w.abandon(ctx, jobs[:i], err)
			return jobs, fmt.Errorf("save web check job: %w", err)
		}
	}

	results := Run(ctx, w.opts.WorkerLimit, jobs, func(ctx context.Context, job store.WebCheckJob) (store.WebCheckResult, error) {
		return w.check(ctx, job)
	})

	var saveErr error
	upstream := 0
	for i := range jobs {
		log := w.log.With("job_id", jobs[i].ID, "document_id", jobs[i].DocumentID)
		if err := results[i].Err; err != nil {
			jobs[i].Result = store.WebCheckResult{Status: store.ItemFailed, Error: err.Error()}
			if errors.Is(err, apperr.ErrUpstreamUnavailable) {
				upstream++
			}
			log.Warn("web check failed", "err", err)
		} else {
			jobs[i].Result = results[i].Value
			log.Info("web check finished", "score", jobs[i].Result.SimilarityScore, "cached", jobs[i].Result.Cached)
		}
		completed := w.now().UTC()
		jobs[i].State = store.JobDone
		jobs[i].CompletedAt = &completed
		if err := w.store.SaveWebCheckJob(context.WithoutCancel(ctx), jobs[i]); err != nil && saveErr == nil {
			saveErr = fmt.Errorf("save web check job: %w", err)
		}
	}
	if saveErr != nil {
		return jobs, saveErr
	}
	if len(jobs) > 0 && upstream == len(jobs) {
		return jobs, fmt.Errorf("%w: %d of %d web checks", apperr.ErrTotalOutage, upstream, len(jobs))
	}
	return jobs, nil
}

// abandon finishes jobs already marked running when the batch cannot start,
// so none of them is left running.
func (w *WebChecker) abandon(ctx context.Context, jobs []store.WebCheckJob, cause error) {
	completed := w.now().UTC()
	for i := range jobs {
		jobs[i].State = store.JobDone
		jobs[i].CompletedAt = &completed
		jobs[i].Result = store.WebCheckResult{Status: store.ItemFailed, Error: "web check not started: " + cause.Error()}
		if err := w.store.SaveWebCheckJob(context.WithoutCancel(ctx), jobs[i]); err != nil {
			w.log.Error("failed to finish abandoned web check job", "job_id", jobs[i].ID, "err", err)
		}
	}
}

func (w *WebChecker) check(ctx context.Context, job store.WebCheckJob) (store.WebCheckResult, error) {
	log := w.log.With("job_id", job.ID, "document_id", job.DocumentID)

	doc, err := w.store.GetDocument(ctx, job.DocumentID)
	if err != nil {
		return store.WebCheckResult{}, err
	}

	if w.cacheTTL > 0 {
		hit, err := w.cache.GetWebCheck(ctx, doc.ID, doc.ContentHash)
		if err != nil {
			log.Warn("web check cache lookup failed", "err", err)
		} else if hit != nil {
			res := hit.Result
			res.Cached = true
			res.ReportRef = ""
			if hit.Report != nil {
				res.ReportRef = w.storeReport(ctx, log, job, *hit.Report)
			}
			return res, nil
		}
	}

	src, err := w.texts.Load(ctx, doc)
	if err != nil {
		return store.WebCheckResult{}, err
	}
	out, err := call(ctx, w.opts.Call, func(ctx context.Context) (websearch.Outcome, error) {
		return w.provider.Check(ctx, src)
	})
	if err != nil {
		return store.WebCheckResult{}, err
	}

	res := store.WebCheckResult{
		SimilarityScore: scoring.Clamp(out.Score),
		Summary:         out.Summary,
		Status:          store.ItemOK,
		Sources:         out.Sources,
	}
	if out.Report != nil {
		res.ReportRef = w.storeReport(ctx, log, job, *out.Report)
	}

	if w.cacheTTL > 0 {
		entry := cache.WebCheckEntry{Result: res, Report: out.Report}
		entry.Result.ReportRef = ""
		if err := w.cache.SetWebCheck(ctx, doc.ID, doc.ContentHash, entry, w.cacheTTL); err != nil {
			log.Warn("web check cache store failed", "err", err)
		}
	}
	return res, nil
}

func (w *WebChecker) storeReport(ctx context.Context, log *slog.Logger, job store.WebCheckJob, art reports.Artifact) string {
	if art.Kind == "" {
		art.Kind = store.ReportWeb
	}
	r, err := w.reports.Create(ctx, job.OwnerID, store.Origin{JobID: job.ID, DocumentIDs: []string{job.DocumentID}}, art)
	if err != nil {
		log.Error("failed to store web report", "err", err)
		return ""
	}
	return r.ID
}
