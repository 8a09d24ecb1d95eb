package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"simcheck/internal/apperr"
	"simcheck/internal/logger"
	"simcheck/internal/scoring"
	"simcheck/internal/store"
)

func TestComparePairCount(t *testing.T) {
	for n := 2; n <= 5; n++ {
		f := newFixture()
		ids := make([]string, n)
		texts := []string{essay1, essay3, essay4, essay1 + " " + essay3, essay4 + " " + essay1}
		for i := 0; i < n; i++ {
			ids[i] = string(rune('e'-i)) + "-doc"
			f.addDoc(t, ids[i], "Doc "+ids[i], texts[i])
		}
		c := NewComparer(f.store, f.texts, scoring.NewTFIDF(), f.reports, f.opts, logger.Discard())

		job, err := c.Compare(context.Background(), "alice", ids)
		require.NoError(t, err)
		assert.Equal(t, store.JobDone, job.State)
		assert.NotNil(t, job.CompletedAt)
		require.Len(t, job.PairResults, n*(n-1)/2)
		for _, pr := range job.PairResults {
			assert.Equal(t, store.ItemOK, pr.Status)
			assert.GreaterOrEqual(t, pr.SimilarityScore, 0.0)
			assert.LessOrEqual(t, pr.SimilarityScore, 100.0)
			assert.Less(t, pr.DocAID, pr.DocBID)
		}
	}
}

func TestCompareCanonicalOrder(t *testing.T) {
	f := newFixture()
	f.addDoc(t, "doc-c", "C", essay4)
	f.addDoc(t, "doc-a", "A", essay1)
	f.addDoc(t, "doc-b", "B", essay3)
	c := NewComparer(f.store, f.texts, scoring.NewTFIDF(), f.reports, f.opts, logger.Discard())

	job, err := c.Compare(context.Background(), "alice", []string{"doc-c", "doc-a", "doc-b", "doc-a"})
	require.NoError(t, err)

	assert.Equal(t, []string{"doc-a", "doc-b", "doc-c"}, job.DocumentIDs)
	var got [][2]string
	for _, pr := range job.PairResults {
		got = append(got, [2]string{pr.DocAID, pr.DocBID})
	}
	assert.Equal(t, [][2]string{{"doc-a", "doc-b"}, {"doc-a", "doc-c"}, {"doc-b", "doc-c"}}, got)
	assert.Equal(t, "A", job.PairResults[0].DocATitle)
	assert.Equal(t, "B", job.PairResults[0].DocBTitle)

	stored, err := f.store.GetComparisonJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.PairResults, stored.PairResults)
	assert.Equal(t, store.JobDone, stored.State)
}

func TestCompareScores(t *testing.T) {
	f := newFixture()
	f.addDoc(t, "essay1", "Essay 1", essay1)
	f.addDoc(t, "essay2", "Essay 2", essay1)
	f.addDoc(t, "essay3", "Essay 3", essay3)
	c := NewComparer(f.store, f.texts, scoring.NewTFIDF(), f.reports, f.opts, logger.Discard())

	job, err := c.Compare(context.Background(), "alice", []string{"essay1", "essay2", "essay3"})
	require.NoError(t, err)
	require.Len(t, job.PairResults, 3)

	assert.Equal(t, 100.0, job.PairResults[0].SimilarityScore, "essay1 vs essay2")
	assert.Less(t, job.PairResults[1].SimilarityScore, 10.0, "essay1 vs essay3")
	assert.Less(t, job.PairResults[2].SimilarityScore, 10.0, "essay2 vs essay3")

	reps, err := f.reports.List(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, reps, 3)
	for _, pr := range job.PairResults {
		assert.NotEmpty(t, pr.ReportRef)
	}
}

func TestComparePrepareValidation(t *testing.T) {
	f := newFixture()
	f.addDoc(t, "doc-a", "A", essay1)
	f.addDoc(t, "doc-b", "B", essay3)
	pending := f.addDoc(t, "doc-p", "P", essay4)
	require.NoError(t, f.store.UpdateDocumentStatus(context.Background(), pending.ID, store.StatusPending))

	tests := []struct {
		name    string
		ids     []string
		wantErr error
		msg     string
	}{
		{name: "empty", ids: nil, wantErr: apperr.ErrValidation, msg: "need at least two distinct documents"},
		{name: "single", ids: []string{"doc-a"}, wantErr: apperr.ErrValidation, msg: "need at least two distinct documents"},
		{name: "same id twice", ids: []string{"doc-a", "doc-a"}, wantErr: apperr.ErrValidation, msg: "need at least two distinct documents"},
		{name: "blank ids ignored", ids: []string{"doc-a", "", ""}, wantErr: apperr.ErrValidation, msg: "need at least two distinct documents"},
		{name: "unknown id", ids: []string{"doc-a", "missing"}, wantErr: apperr.ErrNotFound},
		{name: "not ready", ids: []string{"doc-a", "doc-p"}, wantErr: apperr.ErrValidation, msg: "not ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := new(scoring.MockEngine)
			c := NewComparer(f.store, f.texts, engine, f.reports, f.opts, logger.Discard())

			_, err := c.Compare(context.Background(), "alice", tt.ids)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.msg != "" {
				assert.Contains(t, err.Error(), tt.msg)
			}
			engine.AssertNotCalled(t, "Compare", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func sourceID(id string) interface{} {
	return mock.MatchedBy(func(s scoring.Source) bool { return s.ID == id })
}

func TestComparePartialFailure(t *testing.T) {
	f := newFixture()
	f.addDoc(t, "doc-a", "A", essay1)
	f.addDoc(t, "doc-b", "B", essay3)
	f.addDoc(t, "doc-c", "C", essay4)

	engine := new(scoring.MockEngine)
	engine.On("Compare", mock.Anything, sourceID("doc-a"), sourceID("doc-c")).Return(scoring.Outcome{}, errors.New("engine crashed"))
	engine.On("Compare", mock.Anything, mock.Anything, mock.Anything).Return(scoring.Outcome{Score: 42.5}, nil)

	c := NewComparer(f.store, f.texts, engine, f.reports, f.opts, logger.Discard())
	job, err := c.Compare(context.Background(), "alice", []string{"doc-a", "doc-b", "doc-c"})
	require.NoError(t, err)
	assert.Equal(t, store.JobDone, job.State)
	require.Len(t, job.PairResults, 3)

	var ok, failed int
	for _, pr := range job.PairResults {
		switch pr.Status {
		case store.ItemOK:
			ok++
			assert.Equal(t, 42.5, pr.SimilarityScore)
			assert.Empty(t, pr.ReportRef, "no artifact means no report")
		case store.ItemFailed:
			failed++
			assert.Equal(t, "doc-a", pr.DocAID)
			assert.Equal(t, "doc-c", pr.DocBID)
			assert.Zero(t, pr.SimilarityScore)
			assert.Contains(t, pr.Error, "engine crashed")
		}
	}
	assert.Equal(t, 2, ok)
	assert.Equal(t, 1, failed)
}

func TestCompareScoresAreClamped(t *testing.T) {
	f := newFixture()
	f.addDoc(t, "doc-a", "A", essay1)
	f.addDoc(t, "doc-b", "B", essay3)
	f.addDoc(t, "doc-c", "C", essay4)

	engine := new(scoring.MockEngine)
	engine.On("Compare", mock.Anything, sourceID("doc-a"), mock.Anything).Return(scoring.Outcome{Score: 180}, nil)
	engine.On("Compare", mock.Anything, mock.Anything, mock.Anything).Return(scoring.Outcome{Score: -3}, nil)

	c := NewComparer(f.store, f.texts, engine, f.reports, f.opts, logger.Discard())
	job, err := c.Compare(context.Background(), "alice", []string{"doc-a", "doc-b", "doc-c"})
	require.NoError(t, err)
	assert.Equal(t, 100.0, job.PairResults[0].SimilarityScore)
	assert.Equal(t, 100.0, job.PairResults[1].SimilarityScore)
	assert.Equal(t, 0.0, job.PairResults[2].SimilarityScore)
}

func TestCompareTotalOutage(t *testing.T) {
	f := newFixture()
	f.addDoc(t, "doc-a", "A", essay1)
	f.addDoc(t, "doc-b", "B", essay3)
	f.addDoc(t, "doc-c", "C", essay4)

	engine := new(scoring.MockEngine)
	engine.On("Compare", mock.Anything, mock.Anything, mock.Anything).
		Return(scoring.Outcome{}, apperr.Upstream("scoring engine", errors.New("503")))

	c := NewComparer(f.store, f.texts, engine, f.reports, f.opts, logger.Discard())
	job, err := c.Compare(context.Background(), "alice", []string{"doc-a", "doc-b", "doc-c"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrTotalOutage)
	assert.Equal(t, store.JobDone, job.State)
	for _, pr := range job.PairResults {
		assert.Equal(t, store.ItemFailed, pr.Status)
	}
}

func TestCompareDocumentGoneBeforeRun(t *testing.T) {
	f := newFixture()
	f.addDoc(t, "doc-a", "A", essay1)
	f.addDoc(t, "doc-b", "B", essay1)
	f.addDoc(t, "doc-c", "C", essay3)

	c := NewComparer(f.store, f.texts, scoring.NewTFIDF(), f.reports, f.opts, logger.Discard())
	job, err := c.Prepare(context.Background(), "alice", []string{"doc-a", "doc-b", "doc-c"})
	require.NoError(t, err)
	assert.Equal(t, store.JobQueued, job.State)

	require.NoError(t, f.store.DeleteDocument(context.Background(), "doc-c"))

	job, err = c.RunJob(context.Background(), job.ID)
	require.NoError(t, err)
	require.Len(t, job.PairResults, 3)
	assert.Equal(t, store.ItemOK, job.PairResults[0].Status)
	assert.Equal(t, store.ItemFailed, job.PairResults[1].Status)
	assert.Contains(t, job.PairResults[1].Error, "not found")
	assert.Equal(t, store.ItemFailed, job.PairResults[2].Status)
}

func TestRunJobSkipsFinishedJob(t *testing.T) {
	f := newFixture()
	f.addDoc(t, "doc-a", "A", essay1)
	f.addDoc(t, "doc-b", "B", essay3)

	engine := new(scoring.MockEngine)
	engine.On("Compare", mock.Anything, mock.Anything, mock.Anything).Return(scoring.Outcome{Score: 10}, nil).Once()

	c := NewComparer(f.store, f.texts, engine, f.reports, f.opts, logger.Discard())
	job, err := c.Compare(context.Background(), "alice", []string{"doc-a", "doc-b"})
	require.NoError(t, err)

	again, err := c.RunJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.PairResults, again.PairResults)
	engine.AssertNumberOfCalls(t, "Compare", 1)

	_, err = c.RunJob(context.Background(), "no-such-job")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
