package store

import (
	"context"
	"time"
)

type DocumentStatus string

const (
	StatusPending DocumentStatus = "pending"
	StatusReady   DocumentStatus = "ready"
	StatusError   DocumentStatus = "error"
)

// JobState is shared by comparison and web-check jobs: queued -> running -> done.
type JobState string

const (
	JobQueued  JobState = "queued"
	JobRunning JobState = "running"
	JobDone    JobState = "done"
)

// ItemStatus records the outcome of one pair or one web check inside a done job.
type ItemStatus string

const (
	ItemOK     ItemStatus = "ok"
	ItemFailed ItemStatus = "failed"
)

type ReportKind string

const (
	ReportPairwise ReportKind = "pairwise"
	ReportWeb      ReportKind = "web"
)

type Document struct {
	ID          string
	Title       string
	OwnerID     string
	Filename    string
	ContentType string
	Size        int64
	ContentHash string
	StorageRef  string
	Status      DocumentStatus
	UploadedAt  time.Time

	// Deduplicated marks uploads made under content-hash dedup. Stores keep at
	// most one such ready document per owner and content hash.
	Deduplicated bool
}

type PairResult struct {
	DocAID          string     `json:"doc_a_id"`
	DocATitle       string     `json:"doc_a_title"`
	DocBID          string     `json:"doc_b_id"`
	DocBTitle       string     `json:"doc_b_title"`
	SimilarityScore float64    `json:"similarity_score"`
	Status          ItemStatus `json:"status"`
	ReportRef       string     `json:"report_ref,omitempty"`
	Error           string     `json:"error,omitempty"`
}

type ComparisonJob struct {
	ID          string
	OwnerID     string
	DocumentIDs []string
	State       JobState
	PairResults []PairResult
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// WebSource is one web page the provider compared the document against.
type WebSource struct {
	URL        string  `json:"url"`
	Title      string  `json:"title"`
	Similarity float64 `json:"similarity"`
}

type WebCheckResult struct {
	SimilarityScore float64     `json:"similarity_score"`
	Summary         string      `json:"summary"`
	Status          ItemStatus  `json:"status"`
	ReportRef       string      `json:"report_ref,omitempty"`
	Error           string      `json:"error,omitempty"`
	Sources         []WebSource `json:"sources,omitempty"`
	Cached          bool        `json:"cached,omitempty"`
}

type WebCheckJob struct {
	ID            string
	OwnerID       string
	DocumentID    string
	DocumentTitle string
	State         JobState
	Result        WebCheckResult
	CreatedAt     time.Time
	CompletedAt   *time.Time
}

// Origin identifies the single result a report documents.
type Origin struct {
	JobID       string
	DocumentIDs []string
}

type Report struct {
	ID          string // also the public filename
	OwnerID     string
	Kind        ReportKind
	Origin      Origin
	ContentType string
	Size        int64
	StorageRef  string
	CreatedAt   time.Time
}

// DocumentFilter narrows ListDocuments; a nil OwnerID lists every owner.
type DocumentFilter struct {
	OwnerID *string
}

// Store defines the persistence contract for document, job and report records.
// Implementations serialize writes; reads may run concurrently with them.
type Store interface {
	CreateDocument(ctx context.Context, doc Document) (Document, error)
	GetDocument(ctx context.Context, id string) (Document, error)
	ListDocuments(ctx context.Context, filter DocumentFilter) ([]Document, error)
	FindDocumentByHash(ctx context.Context, ownerID, hash string) (Document, error)
	UpdateDocumentTitle(ctx context.Context, id, title string) error
	UpdateDocumentStatus(ctx context.Context, id string, status DocumentStatus) error
	DeleteDocument(ctx context.Context, id string) error

	SaveComparisonJob(ctx context.Context, job ComparisonJob) error
	GetComparisonJob(ctx context.Context, id string) (ComparisonJob, error)
	SaveWebCheckJob(ctx context.Context, job WebCheckJob) error
	GetWebCheckJob(ctx context.Context, id string) (WebCheckJob, error)

	CreateReport(ctx context.Context, report Report) error
	GetReport(ctx context.Context, id string) (Report, error)
	ListReports(ctx context.Context, ownerID string) ([]Report, error)
	DeleteReport(ctx context.Context, id string) error
}
