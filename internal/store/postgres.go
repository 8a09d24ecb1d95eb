package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"

	"simcheck/internal/apperr"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	s := &PostgresStore{db: db}
	if err := s.migrate(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	// Advisory lock keeps the gateway and worker from migrating at the same time.
	const lockID = 424242017

	var acquired bool
	err := s.db.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, lockID).Scan(&acquired)
	if err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	if !acquired {
		// Another service is running migrations; wait briefly and skip
		time.Sleep(2 * time.Second)
		return nil
	}
	defer func() {
		_, _ = s.db.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, lockID)
	}()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			seq BIGSERIAL,
			title TEXT NOT NULL,
			owner_id TEXT NOT NULL DEFAULT '',
			filename TEXT NOT NULL,
			content_type TEXT NOT NULL DEFAULT '',
			size BIGINT NOT NULL DEFAULT 0,
			content_hash TEXT NOT NULL DEFAULT '',
			storage_ref TEXT NOT NULL,
			status TEXT NOT NULL,
			uploaded_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			deduplicated BOOLEAN NOT NULL DEFAULT false
		);`,
		`ALTER TABLE documents ADD COLUMN IF NOT EXISTS deduplicated BOOLEAN NOT NULL DEFAULT false;`,
		`CREATE INDEX IF NOT EXISTS documents_owner_hash_idx ON documents(owner_id, content_hash);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS documents_dedup_uidx ON documents(owner_id, content_hash) WHERE deduplicated AND status = 'ready';`,
		`CREATE TABLE IF NOT EXISTS comparison_jobs (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL DEFAULT '',
			document_ids TEXT[] NOT NULL,
			state TEXT NOT NULL,
			pair_results JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			completed_at TIMESTAMPTZ
		);`,
		`CREATE TABLE IF NOT EXISTS web_check_jobs (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL DEFAULT '',
			document_id TEXT NOT NULL,
			document_title TEXT NOT NULL DEFAULT '',
			state TEXT NOT NULL,
			result JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			completed_at TIMESTAMPTZ
		);`,
		`CREATE TABLE IF NOT EXISTS reports (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL DEFAULT '',
			kind TEXT NOT NULL,
			job_id TEXT NOT NULL,
			document_ids TEXT[] NOT NULL,
			content_type TEXT NOT NULL,
			size BIGINT NOT NULL DEFAULT 0,
			storage_ref TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

const documentColumns = `id, title, owner_id, filename, content_type, size, content_hash, storage_ref, status, uploaded_at, deduplicated`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.Title, &d.OwnerID, &d.Filename, &d.ContentType, &d.Size,
		&d.ContentHash, &d.StorageRef, &d.Status, &d.UploadedAt, &d.Deduplicated)
	return d, err
}

func (s *PostgresStore) CreateDocument(ctx context.Context, doc Document) (Document, error) {
	if doc.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return Document{}, err
		}
		doc.ID = id.String()
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}
	if doc.Status == "" {
		doc.Status = StatusReady
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents(id, title, owner_id, filename, content_type, size, content_hash, storage_ref, status, uploaded_at, deduplicated)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		doc.ID, doc.Title, doc.OwnerID, doc.Filename, doc.ContentType, doc.Size,
		doc.ContentHash, doc.StorageRef, doc.Status, doc.UploadedAt, doc.Deduplicated)
	if err != nil {
		if isConstraintViolation(err, "documents_dedup_uidx") {
			return Document{}, fmt.Errorf("%w: owner %q already has content %s", apperr.ErrConflict, doc.OwnerID, doc.ContentHash)
		}
		if isUniqueViolation(err) {
			return Document{}, fmt.Errorf("%w: document %q already exists", apperr.ErrConflict, doc.ID)
		}
		return Document{}, err
	}
	return doc, nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, id string) (Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id=$1`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, apperr.NotFound("document", id)
	}
	if err != nil {
		return Document{}, fmt.Errorf("failed to get document %s: %w", id, err)
	}
	return doc, nil
}

func (s *PostgresStore) ListDocuments(ctx context.Context, filter DocumentFilter) ([]Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents`
	var args []any
	if filter.OwnerID != nil {
		query += ` WHERE owner_id=$1`
		args = append(args, *filter.OwnerID)
	}
	query += ` ORDER BY seq`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (s *PostgresStore) FindDocumentByHash(ctx context.Context, ownerID, hash string) (Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents
		WHERE owner_id=$1 AND content_hash=$2 AND status=$3 ORDER BY seq LIMIT 1`, ownerID, hash, StatusReady)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, apperr.NotFound("document with hash", hash)
	}
	return doc, err
}

func (s *PostgresStore) UpdateDocumentTitle(ctx context.Context, id, title string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE documents SET title=$1 WHERE id=$2`, title, id)
	return affectedOne(res, err, "document", id)
}

func (s *PostgresStore) UpdateDocumentStatus(ctx context.Context, id string, status DocumentStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE documents SET status=$1 WHERE id=$2`, status, id)
	return affectedOne(res, err, "document", id)
}

func (s *PostgresStore) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id=$1`, id)
	return affectedOne(res, err, "document", id)
}

func (s *PostgresStore) SaveComparisonJob(ctx context.Context, job ComparisonJob) error {
	results, err := json.Marshal(nonNilPairs(job.PairResults))
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO comparison_jobs(id, owner_id, document_ids, state, pair_results, created_at, completed_at)
		VALUES($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE SET state=excluded.state, pair_results=excluded.pair_results, completed_at=excluded.completed_at`,
		job.ID, job.OwnerID, pq.Array(job.DocumentIDs), job.State, results, job.CreatedAt, job.CompletedAt)
	return err
}

func (s *PostgresStore) GetComparisonJob(ctx context.Context, id string) (ComparisonJob, error) {
	var (
		job     ComparisonJob
		results []byte
	)
	row := s.db.QueryRowContext(ctx, `SELECT id, owner_id, document_ids, state, pair_results, created_at, completed_at
		FROM comparison_jobs WHERE id=$1`, id)
	err := row.Scan(&job.ID, &job.OwnerID, pq.Array(&job.DocumentIDs), &job.State, &results, &job.CreatedAt, &job.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ComparisonJob{}, apperr.NotFound("comparison job", id)
	}
	if err != nil {
		return ComparisonJob{}, fmt.Errorf("failed to get comparison job %s: %w", id, err)
	}
	if err := json.Unmarshal(results, &job.PairResults); err != nil {
		return ComparisonJob{}, fmt.Errorf("decode pair results for job %s: %w", id, err)
	}
	return job, nil
}

func (s *PostgresStore) SaveWebCheckJob(ctx context.Context, job WebCheckJob) error {
	result, err := json.Marshal(job.Result)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO web_check_jobs(id, owner_id, document_id, document_title, state, result, created_at, completed_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET state=excluded.state, result=excluded.result, completed_at=excluded.completed_at`,
		job.ID, job.OwnerID, job.DocumentID, job.DocumentTitle, job.State, result, job.CreatedAt, job.CompletedAt)
	return err
}

func (s *PostgresStore) GetWebCheckJob(ctx context.Context, id string) (WebCheckJob, error) {
	var (
		job    WebCheckJob
		result []byte
	)
	row := s.db.QueryRowContext(ctx, `SELECT id, owner_id, document_id, document_title, state, result, created_at, completed_at
		FROM web_check_jobs WHERE id=$1`, id)
	err := row.Scan(&job.ID, &job.OwnerID, &job.DocumentID, &job.DocumentTitle, &job.State, &result, &job.CreatedAt, &job.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return WebCheckJob{}, apperr.NotFound("web check job", id)
	}
	if err != nil {
		return WebCheckJob{}, fmt.Errorf("failed to get web check job %s: %w", id, err)
	}
	if err := json.Unmarshal(result, &job.Result); err != nil {
		return WebCheckJob{}, fmt.Errorf("decode web check result for job %s: %w", id, err)
	}
	return job, nil
}

func (s *PostgresStore) CreateReport(ctx context.Context, r Report) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reports(id, owner_id, kind, job_id, document_ids, content_type, size, storage_ref, created_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		r.ID, r.OwnerID, r.Kind, r.Origin.JobID, pq.Array(r.Origin.DocumentIDs), r.ContentType, r.Size, r.StorageRef, r.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: report %q already exists", apperr.ErrConflict, r.ID)
	}
	return err
}

const reportColumns = `id, owner_id, kind, job_id, document_ids, content_type, size, storage_ref, created_at`

func scanReport(row rowScanner) (Report, error) {
	var r Report
	err := row.Scan(&r.ID, &r.OwnerID, &r.Kind, &r.Origin.JobID, pq.Array(&r.Origin.DocumentIDs),
		&r.ContentType, &r.Size, &r.StorageRef, &r.CreatedAt)
	return r, err
}

func (s *PostgresStore) GetReport(ctx context.Context, id string) (Report, error) {
	r, err := scanReport(s.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Report{}, apperr.NotFound("report", id)
	}
	return r, err
}

func (s *PostgresStore) ListReports(ctx context.Context, ownerID string) ([]Report, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+reportColumns+` FROM reports
		WHERE owner_id=$1 ORDER BY created_at DESC, id DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Report{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteReport(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE id=$1`, id)
	return affectedOne(res, err, "report", id)
}

func affectedOne(res sql.Result, err error, kind, id string) error {
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound(kind, id)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isConstraintViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == constraint
}

func nonNilPairs(items []PairResult) []PairResult {
	if items == nil {
		return []PairResult{}
	}
	return items
}
