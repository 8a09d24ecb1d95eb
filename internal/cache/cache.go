package cache

import (
	"context"
	"time"

	"simcheck/internal/reports"
	"simcheck/internal/store"
)

// WebCheckEntry is a finished web check as shared between jobs. Result never
// carries a report ref; Report holds the artifact so each job stores its own.
type WebCheckEntry struct {
	Result store.WebCheckResult `json:"result"`
	Report *reports.Artifact    `json:"report,omitempty"`
}

// Cache stores finished web-check results keyed by document id and content hash.
type Cache interface {
	// GetWebCheck returns nil on a miss.
	GetWebCheck(ctx context.Context, docID, contentHash string) (*WebCheckEntry, error)

	// SetWebCheck stores an entry with TTL.
	SetWebCheck(ctx context.Context, docID, contentHash string, entry WebCheckEntry, ttl time.Duration) error

	// InvalidateDocument removes every cached result for a document.
	InvalidateDocument(ctx context.Context, docID string) error

	Close() error
}
