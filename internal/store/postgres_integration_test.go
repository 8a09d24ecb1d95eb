//go:build integration

package store

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simcheck/internal/apperr"
)

func startPostgres(t *testing.T) *PostgresStore {
	t.Helper()
	pool, err := dockertest.NewPool("")
	require.NoError(t, err)
	pool.MaxWait = 60 * time.Second

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env:        []string{"POSTGRES_PASSWORD=secret", "POSTGRES_DB=simcheck"},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Purge(resource) })

	dsn := fmt.Sprintf("postgres://postgres:secret@%s/simcheck?sslmode=disable", resource.GetHostPort("5432/tcp"))
	require.NoError(t, pool.Retry(func() error {
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			return err
		}
		defer db.Close()
		return db.Ping()
	}))

	s, err := NewPostgres(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPostgresStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := startPostgres(t)

	a, err := s.CreateDocument(ctx, Document{Title: "A", OwnerID: "alice", Filename: "a.txt", StorageRef: "documents/a.txt", ContentHash: "h1"})
	require.NoError(t, err)
	b, err := s.CreateDocument(ctx, Document{Title: "B", OwnerID: "alice", Filename: "b.txt", StorageRef: "documents/b.txt"})
	require.NoError(t, err)

	docs, err := s.ListDocuments(ctx, DocumentFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, b.ID}, ids(docs))

	found, err := s.FindDocumentByHash(ctx, "alice", "h1")
	require.NoError(t, err)
	assert.Equal(t, a.ID, found.ID)

	d1, err := s.CreateDocument(ctx, Document{Title: "D", OwnerID: "alice", Filename: "d.txt", StorageRef: "documents/d.txt", ContentHash: "h2", Deduplicated: true})
	require.NoError(t, err)
	assert.True(t, d1.Deduplicated)
	_, err = s.CreateDocument(ctx, Document{Title: "D2", OwnerID: "alice", Filename: "d.txt", StorageRef: "documents/d2.txt", ContentHash: "h2", Deduplicated: true})
	assert.ErrorIs(t, err, apperr.ErrConflict)
	require.NoError(t, s.DeleteDocument(ctx, d1.ID))

	done := time.Now().UTC()
	job := ComparisonJob{
		ID:          "job-1",
		OwnerID:     "alice",
		DocumentIDs: []string{a.ID, b.ID},
		State:       JobDone,
		PairResults: []PairResult{{DocAID: a.ID, DocBID: b.ID, SimilarityScore: 12.5, Status: ItemOK}},
		CreatedAt:   done,
		CompletedAt: &done,
	}
	require.NoError(t, s.SaveComparisonJob(ctx, job))
	got, err := s.GetComparisonJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, job.PairResults, got.PairResults)
	assert.Equal(t, JobDone, got.State)

	report := Report{ID: "r.txt", OwnerID: "alice", Kind: ReportPairwise, Origin: Origin{JobID: "job-1", DocumentIDs: []string{a.ID, b.ID}}, ContentType: "text/plain", StorageRef: "reports/r.txt"}
	require.NoError(t, s.CreateReport(ctx, report))
	assert.ErrorIs(t, s.CreateReport(ctx, report), apperr.ErrConflict)

	reports, err := s.ListReports(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, report.Origin, reports[0].Origin)

	require.NoError(t, s.DeleteReport(ctx, "r.txt"))
	assert.ErrorIs(t, s.DeleteReport(ctx, "r.txt"), apperr.ErrNotFound)
	assert.ErrorIs(t, s.DeleteDocument(ctx, "missing"), apperr.ErrNotFound)
}
