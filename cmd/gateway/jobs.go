package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"simcheck/internal/app"
	"simcheck/internal/apperr"
	"simcheck/internal/httputil"
	"simcheck/internal/queue"
	"simcheck/internal/results"
	"simcheck/internal/store"
)

const (
	enqueueAttempts = 3
	enqueueBase     = 200 * time.Millisecond
)

type compareRequest struct {
	DocumentIDs []string `json:"document_ids" validate:"required"`
	Threshold   float64  `json:"threshold"`
	Async       bool     `json:"async"`
}

type pairView struct {
	DocAID            string           `json:"doc_a_id"`
	DocATitle         string           `json:"doc_a_title"`
	DocBID            string           `json:"doc_b_id"`
	DocBTitle         string           `json:"doc_b_title"`
	SimilarityScore   float64          `json:"similarity_score"`
	Status            store.ItemStatus `json:"status"`
	Error             string           `json:"error,omitempty"`
	ReportViewRef     string           `json:"report_view_ref,omitempty"`
	ReportDownloadRef string           `json:"report_download_ref,omitempty"`
}

func pairViews(job store.ComparisonJob, threshold float64) []pairView {
	set := results.Filter(results.Merge([]store.ComparisonJob{job}, nil), threshold)
	out := make([]pairView, len(set))
	for i, rec := range set {
		view, download := reportRefs(rec.ReportRef)
		out[i] = pairView{
			DocAID:            rec.DocumentIDs[0],
			DocATitle:         rec.Titles[0],
			DocBID:            rec.DocumentIDs[1],
			DocBTitle:         rec.Titles[1],
			SimilarityScore:   rec.Score,
			Status:            rec.Status,
			Error:             rec.Error,
			ReportViewRef:     view,
			ReportDownloadRef: download,
		}
	}
	return out
}

// enqueue publishes job ids for the worker. Async requests need a queue.
func enqueue(ctx context.Context, deps app.Deps, taskType queue.TaskType, ownerID string, jobIDs ...string) error {
	task, err := queue.NewJobTask(taskType, ownerID, jobIDs...)
	if err != nil {
		return err
	}
	return queue.EnqueueWithRetry(ctx, deps.Queue, task, enqueueAttempts, enqueueBase)
}

func requireQueue(deps app.Deps, w http.ResponseWriter) bool {
	if deps.Queue == nil {
		httputil.Fail(deps.Log, w, "async mode requires a configured queue", nil, http.StatusBadRequest)
		return false
	}
	return true
}

func compareHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req compareRequest
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.ValidationError(deps.Log, w, err)
			return
		}
		ctx, ownerID := r.Context(), owner(r)

		if req.Async {
			if !requireQueue(deps, w) {
				return
			}
			job, err := deps.Comparer.Prepare(ctx, ownerID, req.DocumentIDs)
			if err != nil {
				httputil.FailErr(deps.Log, w, err)
				return
			}
			if err := enqueue(ctx, deps, queue.TaskTypeCompare, ownerID, job.ID); err != nil {
				httputil.Fail(deps.Log.With("job_id", job.ID), w, "failed to enqueue comparison; please retry", err, http.StatusServiceUnavailable)
				return
			}
			httputil.WriteJSON(w, http.StatusAccepted, map[string]any{
				"status": "accepted",
				"job_id": job.ID,
				"state":  job.State,
			})
			return
		}

		job, err := deps.Comparer.Compare(ctx, ownerID, req.DocumentIDs)
		if err != nil && job.ID == "" {
			httputil.FailErr(deps.Log, w, err)
			return
		}
		status, code := "success", http.StatusOK
		body := map[string]any{
			"job_id":  job.ID,
			"state":   job.State,
			"results": pairViews(job, req.Threshold),
		}
		if err != nil {
			deps.Log.Error("comparison job failed", "job_id", job.ID, "err", err)
			status, code = "error", httputil.StatusFor(err)
			body["message"] = err.Error()
		}
		body["status"] = status
		httputil.WriteJSON(w, code, body)
	}
}

type webCheckRequest struct {
	DocumentID  string   `json:"document_id" validate:"required_without=DocumentIDs"`
	DocumentIDs []string `json:"document_ids" validate:"required_without=DocumentID"`
	Async       bool     `json:"async"`
}

type webView struct {
	JobID             string            `json:"job_id"`
	DocumentID        string            `json:"document_id"`
	DocumentTitle     string            `json:"document_title"`
	State             store.JobState    `json:"state"`
	Status            store.ItemStatus  `json:"status,omitempty"`
	SimilarityScore   float64           `json:"similarity_score"`
	Summary           string            `json:"summary,omitempty"`
	Error             string            `json:"error,omitempty"`
	Cached            bool              `json:"cached,omitempty"`
	Sources           []store.WebSource `json:"sources,omitempty"`
	ReportViewRef     string            `json:"report_view_ref,omitempty"`
	ReportDownloadRef string            `json:"report_download_ref,omitempty"`
}

func toWebView(job store.WebCheckJob) webView {
	view, download := reportRefs(job.Result.ReportRef)
	return webView{
		JobID:             job.ID,
		DocumentID:        job.DocumentID,
		DocumentTitle:     job.DocumentTitle,
		State:             job.State,
		Status:            job.Result.Status,
		SimilarityScore:   job.Result.SimilarityScore,
		Summary:           job.Result.Summary,
		Error:             job.Result.Error,
		Cached:            job.Result.Cached,
		Sources:           job.Result.Sources,
		ReportViewRef:     view,
		ReportDownloadRef: download,
	}
}

func webCheckHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req webCheckRequest
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.ValidationError(deps.Log, w, err)
			return
		}
		ctx, ownerID := r.Context(), owner(r)
		single := req.DocumentID != "" && len(req.DocumentIDs) == 0
		ids := req.DocumentIDs
		if req.DocumentID != "" {
			ids = append([]string{req.DocumentID}, ids...)
		}

		if req.Async {
			if !requireQueue(deps, w) {
				return
			}
			jobs, err := deps.WebChecker.Prepare(ctx, ownerID, ids)
			if err != nil {
				httputil.FailErr(deps.Log, w, err)
				return
			}
			jobIDs := make([]string, len(jobs))
			for i, j := range jobs {
				jobIDs[i] = j.ID
			}
			if err := enqueue(ctx, deps, queue.TaskTypeWebCheck, ownerID, jobIDs...); err != nil {
				httputil.Fail(deps.Log, w, "failed to enqueue web check; please retry", err, http.StatusServiceUnavailable)
				return
			}
			body := map[string]any{"status": "accepted", "job_ids": jobIDs, "state": store.JobQueued}
			if single {
				body["job_id"] = jobIDs[0]
			}
			httputil.WriteJSON(w, http.StatusAccepted, body)
			return
		}

		jobs, err := deps.WebChecker.CheckWeb(ctx, ownerID, ids)
		if err != nil && len(jobs) == 0 {
			httputil.FailErr(deps.Log, w, err)
			return
		}
		code := http.StatusOK
		if err != nil {
			deps.Log.Error("web check failed", "err", err)
			code = httputil.StatusFor(err)
		}

		if single {
			writeSingleWebCheck(deps, w, jobs[0], code)
			return
		}
		views := make([]webView, len(jobs))
		for i, j := range jobs {
			views[i] = toWebView(j)
		}
		status := "success"
		if code != http.StatusOK {
			status = "error"
		}
		httputil.WriteJSON(w, code, map[string]any{"status": status, "results": views})
	}
}

func writeSingleWebCheck(deps app.Deps, w http.ResponseWriter, job store.WebCheckJob, code int) {
	if job.Result.Status == store.ItemFailed {
		if code == http.StatusOK {
			code = http.StatusInternalServerError
		}
		httputil.WriteJSON(w, code, map[string]any{
			"status":  "error",
			"job_id":  job.ID,
			"message": job.Result.Error,
		})
		return
	}
	view, download := reportRefs(job.Result.ReportRef)
	httputil.WriteJSON(w, code, map[string]any{
		"status":              "success",
		"job_id":              job.ID,
		"similarity_score":    job.Result.SimilarityScore,
		"summary":             job.Result.Summary,
		"cached":              job.Result.Cached,
		"sources":             job.Result.Sources,
		"report_view_ref":     view,
		"report_download_ref": download,
	})
}

// ownedComparison hides jobs of other owners behind NotFound.
func ownedComparison(ctx context.Context, deps app.Deps, ownerID, id string) (store.ComparisonJob, error) {
	job, err := deps.Store.GetComparisonJob(ctx, id)
	if err != nil {
		return store.ComparisonJob{}, err
	}
	if job.OwnerID != ownerID {
		return store.ComparisonJob{}, apperr.NotFound("comparison job", id)
	}
	return job, nil
}

func ownedWebCheck(ctx context.Context, deps app.Deps, ownerID, id string) (store.WebCheckJob, error) {
	job, err := deps.Store.GetWebCheckJob(ctx, id)
	if err != nil {
		return store.WebCheckJob{}, err
	}
	if job.OwnerID != ownerID {
		return store.WebCheckJob{}, apperr.NotFound("web check job", id)
	}
	return job, nil
}

func comparisonJobHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := ownedComparison(r.Context(), deps, owner(r), chi.URLParam(r, "id"))
		if err != nil {
			httputil.FailErr(deps.Log, w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"status":       "success",
			"job_id":       job.ID,
			"state":        job.State,
			"document_ids": job.DocumentIDs,
			"created_at":   job.CreatedAt,
			"completed_at": job.CompletedAt,
			"results":      pairViews(job, 0),
		})
	}
}

func webJobHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := ownedWebCheck(r.Context(), deps, owner(r), chi.URLParam(r, "id"))
		if err != nil {
			httputil.FailErr(deps.Log, w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"status":       "success",
			"job":          toWebView(job),
			"created_at":   job.CreatedAt,
			"completed_at": job.CompletedAt,
		})
	}
}

type resultsRequest struct {
	ComparisonJobIDs []string `json:"comparison_job_ids"`
	WebJobIDs        []string `json:"web_job_ids"`
	Threshold        float64  `json:"threshold"`
}

func resultsHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resultsRequest
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.ValidationError(deps.Log, w, err)
			return
		}
		if len(req.ComparisonJobIDs) == 0 && len(req.WebJobIDs) == 0 {
			httputil.Fail(deps.Log, w, "at least one job id is required", nil, http.StatusBadRequest)
			return
		}
		ctx, ownerID := r.Context(), owner(r)

		comparisons := make([]store.ComparisonJob, 0, len(req.ComparisonJobIDs))
		for _, id := range req.ComparisonJobIDs {
			job, err := ownedComparison(ctx, deps, ownerID, id)
			if err != nil {
				httputil.FailErr(deps.Log, w, err)
				return
			}
			comparisons = append(comparisons, job)
		}
		web := make([]store.WebCheckJob, 0, len(req.WebJobIDs))
		for _, id := range req.WebJobIDs {
			job, err := ownedWebCheck(ctx, deps, ownerID, id)
			if err != nil {
				httputil.FailErr(deps.Log, w, err)
				return
			}
			web = append(web, job)
		}

		set := results.Filter(results.Merge(comparisons, web), req.Threshold)
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"status": "success", "results": set})
	}
}
