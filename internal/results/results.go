// Package results flattens finished comparison and web-check jobs into one
// list of scored records and filters them by score.
package results

import (
	"math"
	"slices"
	"strings"

	"simcheck/internal/store"
)

type Kind string

const (
	KindPairwise Kind = "pairwise"
	KindWeb      Kind = "web"
)

// ResultRecord is one pair comparison or one web check with a normalized Score.
type ResultRecord struct {
	Kind        Kind             `json:"kind"`
	JobID       string           `json:"job_id"`
	DocumentIDs []string         `json:"document_ids"`
	Titles      []string         `json:"titles"`
	Score       float64          `json:"score"`
	Status      store.ItemStatus `json:"status"`
	Summary     string           `json:"summary,omitempty"`
	ReportRef   string           `json:"report_ref,omitempty"`
	Error       string           `json:"error,omitempty"`
}

type ResultSet []ResultRecord

// Merge lists every pair result of every comparison job, keeping the given job
// order and each job's pair order, then every web result by document id.
func Merge(comparisons []store.ComparisonJob, web []store.WebCheckJob) ResultSet {
	n := len(web)
	for _, job := range comparisons {
		n += len(job.PairResults)
	}
	out := make(ResultSet, 0, n)
	for _, job := range comparisons {
		for _, pr := range job.PairResults {
			out = append(out, ResultRecord{
				Kind:        KindPairwise,
				JobID:       job.ID,
				DocumentIDs: []string{pr.DocAID, pr.DocBID},
				Titles:      []string{pr.DocATitle, pr.DocBTitle},
				Score:       pr.SimilarityScore,
				Status:      pr.Status,
				ReportRef:   pr.ReportRef,
				Error:       pr.Error,
			})
		}
	}
	web = slices.Clone(web)
	slices.SortStableFunc(web, func(a, b store.WebCheckJob) int {
		return strings.Compare(a.DocumentID, b.DocumentID)
	})
	for _, job := range web {
		out = append(out, ResultRecord{
			Kind:        KindWeb,
			JobID:       job.ID,
			DocumentIDs: []string{job.DocumentID},
			Titles:      []string{job.DocumentTitle},
			Score:       job.Result.SimilarityScore,
			Status:      job.Result.Status,
			Summary:     job.Result.Summary,
			ReportRef:   job.Result.ReportRef,
			Error:       job.Result.Error,
		})
	}
	return out
}

// Filter keeps records scoring at least threshold. Failed records score 0.
// A negative or NaN threshold keeps everything.
func Filter(set ResultSet, threshold float64) ResultSet {
	if threshold < 0 || math.IsNaN(threshold) {
		threshold = 0
	}
	out := make(ResultSet, 0, len(set))
	for _, r := range set {
		if r.EffectiveScore() >= threshold {
			out = append(out, r)
		}
	}
	return out
}

// EffectiveScore is the score used for filtering.
func (r ResultRecord) EffectiveScore() float64 {
	if r.Status == store.ItemFailed || math.IsNaN(r.Score) {
		return 0
	}
	return r.Score
}
