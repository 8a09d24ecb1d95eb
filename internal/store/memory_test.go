package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simcheck/internal/apperr"
)

func TestMemoryStoreDocuments(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	first, err := s.CreateDocument(ctx, Document{Title: "Essay", OwnerID: "alice", Filename: "a.txt"})
	require.NoError(t, err)
	second, err := s.CreateDocument(ctx, Document{Title: "Thesis", OwnerID: "bob", Filename: "b.pdf"})
	require.NoError(t, err)
	third, err := s.CreateDocument(ctx, Document{Title: "Notes", OwnerID: "alice", Filename: "c.docx"})
	require.NoError(t, err)

	assert.NotEmpty(t, first.ID)
	assert.Equal(t, StatusReady, first.Status)
	assert.False(t, first.UploadedAt.IsZero())

	all, err := s.ListDocuments(ctx, DocumentFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID, second.ID, third.ID}, ids(all))

	owner := "alice"
	mine, err := s.ListDocuments(ctx, DocumentFilter{OwnerID: &owner})
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID, third.ID}, ids(mine))

	require.NoError(t, s.UpdateDocumentTitle(ctx, first.ID, "Essay v2"))
	got, err := s.GetDocument(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Essay v2", got.Title)

	require.NoError(t, s.DeleteDocument(ctx, second.ID))
	_, err = s.GetDocument(ctx, second.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, s.DeleteDocument(ctx, second.ID), apperr.ErrNotFound)

	_, err = s.CreateDocument(ctx, Document{ID: second.ID, Title: "again"})
	assert.ErrorIs(t, err, apperr.ErrConflict, "deleted ids must not be reused")
}

func TestMemoryStoreFindDocumentByHash(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	doc, err := s.CreateDocument(ctx, Document{Title: "a", OwnerID: "alice", ContentHash: "abc"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		owner   string
		hash    string
		wantErr error
	}{
		{name: "same owner and hash", owner: "alice", hash: "abc"},
		{name: "other owner", owner: "bob", hash: "abc", wantErr: apperr.ErrNotFound},
		{name: "other hash", owner: "alice", hash: "def", wantErr: apperr.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.FindDocumentByHash(ctx, tt.owner, tt.hash)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, doc.ID, got.ID)
		})
	}
}

func TestMemoryStoreDeduplicatedUnique(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	first, err := s.CreateDocument(ctx, Document{OwnerID: "alice", ContentHash: "abc", Deduplicated: true})
	require.NoError(t, err)
	assert.True(t, first.Deduplicated)

	tests := []struct {
		name    string
		doc     Document
		wantErr error
	}{
		{name: "same owner and hash", doc: Document{OwnerID: "alice", ContentHash: "abc", Deduplicated: true}, wantErr: apperr.ErrConflict},
		{name: "plain upload may repeat bytes", doc: Document{OwnerID: "alice", ContentHash: "abc"}},
		{name: "other owner", doc: Document{OwnerID: "bob", ContentHash: "abc", Deduplicated: true}},
		{name: "other hash", doc: Document{OwnerID: "alice", ContentHash: "def", Deduplicated: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateDocument(ctx, tt.doc)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}

	require.NoError(t, s.DeleteDocument(ctx, first.ID))
	_, err = s.CreateDocument(ctx, Document{OwnerID: "alice", ContentHash: "abc", Deduplicated: true})
	assert.NoError(t, err, "deleting the original frees the content hash")
}

func TestMemoryStoreJobsAreCopied(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	job := ComparisonJob{
		ID:          "job-1",
		DocumentIDs: []string{"a", "b"},
		State:       JobDone,
		PairResults: []PairResult{{DocAID: "a", DocBID: "b", SimilarityScore: 42, Status: ItemOK}},
	}
	require.NoError(t, s.SaveComparisonJob(ctx, job))
	job.PairResults[0].SimilarityScore = 99

	got, err := s.GetComparisonJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, 42.0, got.PairResults[0].SimilarityScore)

	_, err = s.GetWebCheckJob(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMemoryStoreReports(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.CreateReport(ctx, Report{ID: "old.txt", OwnerID: "alice", CreatedAt: base}))
	require.NoError(t, s.CreateReport(ctx, Report{ID: "new.txt", OwnerID: "alice", CreatedAt: base.Add(time.Minute)}))
	require.NoError(t, s.CreateReport(ctx, Report{ID: "bob.txt", OwnerID: "bob", CreatedAt: base}))

	err := s.CreateReport(ctx, Report{ID: "old.txt", OwnerID: "alice"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	list, err := s.ListReports(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new.txt", list[0].ID)
	assert.Equal(t, "old.txt", list[1].ID)

	require.NoError(t, s.DeleteReport(ctx, "old.txt"))
	assert.ErrorIs(t, s.DeleteReport(ctx, "old.txt"), apperr.ErrNotFound)
}

func TestMemoryStoreConcurrentCreates(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreateDocument(ctx, Document{Title: "doc"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	all, err := s.ListDocuments(ctx, DocumentFilter{})
	require.NoError(t, err)
	seen := make(map[string]bool)
	for _, d := range all {
		assert.False(t, seen[d.ID], "duplicate id %s", d.ID)
		seen[d.ID] = true
	}
	assert.Len(t, all, 50)
}

func ids(docs []Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}
