package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"simcheck/internal/apperr"
	"simcheck/internal/reports"
	"simcheck/internal/scoring"
	"simcheck/internal/store"
)

// ReportSink persists report artifacts produced while running a job.
type ReportSink interface {
	Create(ctx context.Context, owner string, origin store.Origin, art reports.Artifact) (store.Report, error)
}

// Options configures fan-out and the policy applied to each external call.
type Options struct {
	WorkerLimit int
	Call        CallPolicy
}

// Comparer runs pairwise comparison jobs.
type Comparer struct {
	store   store.Store
	texts   *TextLoader
	engine  scoring.Engine
	reports ReportSink
	opts    Options
	log     *slog.Logger
	now     func() time.Time
}

func NewComparer(st store.Store, texts *TextLoader, engine scoring.Engine, sink ReportSink, opts Options, log *slog.Logger) *Comparer {
	return &Comparer{store: st, texts: texts, engine: engine, reports: sink, opts: opts, log: log, now: time.Now}
}

// Compare prepares and runs a job for ids in one call.
func (c *Comparer) Compare(ctx context.Context, owner string, ids []string) (store.ComparisonJob, error) {
	job, err := c.Prepare(ctx, owner, ids)
	if err != nil {
		return store.ComparisonJob{}, err
	}
	return c.Run(ctx, job)
}

// Prepare validates the selection and persists a queued job.
func (c *Comparer) Prepare(ctx context.Context, owner string, ids []string) (store.ComparisonJob, error) {
	distinct := distinctSorted(ids)
	if len(distinct) < 2 {
		return store.ComparisonJob{}, apperr.Validation("need at least two distinct documents")
	}
	if err := c.checkReady(ctx, distinct); err != nil {
		return store.ComparisonJob{}, err
	}

	job := store.ComparisonJob{
		ID:          uuid.NewString(),
		OwnerID:     owner,
		DocumentIDs: distinct,
		State:       store.JobQueued,
		CreatedAt:   c.now().UTC(),
	}
	if err := c.store.SaveComparisonJob(ctx, job); err != nil {
		return store.ComparisonJob{}, fmt.Errorf("save comparison job: %w", err)
	}
	return job, nil
}

func (c *Comparer) checkReady(ctx context.Context, ids []string) error {
	for _, id := range ids {
		doc, err := c.store.GetDocument(ctx, id)
		if err != nil {
			return err
		}
		if doc.Status != store.StatusReady {
			return apperr.Validation("document %s is not ready (status %s)", id, doc.Status)
		}
	}
	return nil
}

// RunJob loads a persisted job and runs it. A job that is already done is
// returned unchanged.
func (c *Comparer) RunJob(ctx context.Context, jobID string) (store.ComparisonJob, error) {
	job, err := c.store.GetComparisonJob(ctx, jobID)
	if err != nil {
		return store.ComparisonJob{}, err
	}
	if job.State == store.JobDone {
		return job, nil
	}
	return c.Run(ctx, job)
}

type pair struct {
	a, b int
}

type pairOutcome struct {
	score     float64
	reportRef string
}

// Run scores every pair of the job's documents and persists the finished job.
// Item failures are recorded on their PairResult; the returned error is set
// only for persistence failures or a total outage.
func (c *Comparer) Run(ctx context.Context, job store.ComparisonJob) (store.ComparisonJob, error) {
	log := c.log.With("job_id", job.ID)

	job.State = store.JobRunning
	if err := c.store.SaveComparisonJob(ctx, job); err != nil {
		return job, fmt.Errorf("save comparison job: %w", err)
	}
	log.Info("comparison started", "documents", len(job.DocumentIDs))

	loaded := c.load(ctx, job.DocumentIDs)

	pairs := canonicalPairs(len(job.DocumentIDs))
	outcomes := Run(ctx, c.opts.WorkerLimit, pairs, func(ctx context.Context, p pair) (pairOutcome, error) {
		for _, side := range []int{p.a, p.b} {
			if err := loaded[side].Err; err != nil {
				return pairOutcome{}, fmt.Errorf("load %s: %w", job.DocumentIDs[side], err)
			}
		}
		a, b := loaded[p.a].Value.src, loaded[p.b].Value.src
		out, err := call(ctx, c.opts.Call, func(ctx context.Context) (scoring.Outcome, error) {
			return c.engine.Compare(ctx, a, b)
		})
		if err != nil {
			return pairOutcome{}, err
		}
		res := pairOutcome{score: scoring.Clamp(out.Score)}
		if out.Report != nil {
			res.reportRef = c.storeReport(ctx, log, job, a.ID, b.ID, *out.Report)
		}
		return res, nil
	})

	job.PairResults = make([]store.PairResult, len(pairs))
	failed, upstream := 0, 0
	for i, p := range pairs {
		pr := store.PairResult{
			DocAID:    job.DocumentIDs[p.a],
			DocATitle: loaded[p.a].Value.doc.Title,
			DocBID:    job.DocumentIDs[p.b],
			DocBTitle: loaded[p.b].Value.doc.Title,
			Status:    store.ItemOK,
		}
		if err := outcomes[i].Err; err != nil {
			pr.Status = store.ItemFailed
			pr.Error = err.Error()
			failed++
			if errors.Is(err, apperr.ErrUpstreamUnavailable) {
				upstream++
			}
			log.Warn("pair comparison failed", "doc_a", pr.DocAID, "doc_b", pr.DocBID, "err", err)
		} else {
			pr.SimilarityScore = outcomes[i].Value.score
			pr.ReportRef = outcomes[i].Value.reportRef
		}
		job.PairResults[i] = pr
	}

	completed := c.now().UTC()
	job.State = store.JobDone
	job.CompletedAt = &completed
	if err := c.store.SaveComparisonJob(context.WithoutCancel(ctx), job); err != nil {
		return job, fmt.Errorf("save comparison job: %w", err)
	}
	log.Info("comparison finished", "pairs", len(pairs), "failed", failed)

	if len(pairs) > 0 && upstream == len(pairs) {
		return job, fmt.Errorf("%w: %d of %d comparisons", apperr.ErrTotalOutage, upstream, len(pairs))
	}
	return job, nil
}

type loadedDoc struct {
	doc store.Document
	src scoring.Source
}

// load fetches every document and its text once per job. The record is kept
// even when text extraction fails so results can still show the title.
func (c *Comparer) load(ctx context.Context, ids []string) []Result[loadedDoc] {
	return Run(ctx, c.opts.WorkerLimit, ids, func(ctx context.Context, id string) (loadedDoc, error) {
		doc, err := c.store.GetDocument(ctx, id)
		if err != nil {
			return loadedDoc{doc: store.Document{ID: id}}, err
		}
		src, err := c.texts.Load(ctx, doc)
		return loadedDoc{doc: doc, src: src}, err
	})
}

func (c *Comparer) storeReport(ctx context.Context, log *slog.Logger, job store.ComparisonJob, a, b string, art reports.Artifact) string {
	if art.Kind == "" {
		art.Kind = store.ReportPairwise
	}
	r, err := c.reports.Create(ctx, job.OwnerID, store.Origin{JobID: job.ID, DocumentIDs: []string{a, b}}, art)
	if err != nil {
		log.Error("failed to store pair report", "doc_a", a, "doc_b", b, "err", err)
		return ""
	}
	return r.ID
}

// canonicalPairs lists index pairs (i, j) with i < j in lexicographic order.
func canonicalPairs(n int) []pair {
	out := make([]pair, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			out = append(out, pair{a: i, b: j})
		}
	}
	return out
}

func distinctSorted(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
