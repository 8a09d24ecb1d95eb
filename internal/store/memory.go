package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"simcheck/internal/apperr"
)

// MemoryStore keeps records in process. Documents are listed in insertion order.
type MemoryStore struct {
	mu       sync.RWMutex
	docs     map[string]Document
	docOrder []string
	compJobs map[string]ComparisonJob
	webJobs  map[string]WebCheckJob
	reports  map[string]Report
	retired  map[string]struct{}
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		docs:     make(map[string]Document),
		compJobs: make(map[string]ComparisonJob),
		webJobs:  make(map[string]WebCheckJob),
		reports:  make(map[string]Report),
		retired:  make(map[string]struct{}),
	}
}

func (s *MemoryStore) CreateDocument(_ context.Context, doc Document) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return Document{}, err
		}
		doc.ID = id.String()
	}
	if _, exists := s.docs[doc.ID]; exists {
		return Document{}, fmt.Errorf("%w: document %q already exists", apperr.ErrConflict, doc.ID)
	}
	// Deleted ids stay retired so they are never handed out again.
	if _, gone := s.retired[doc.ID]; gone {
		return Document{}, fmt.Errorf("%w: document id %q was used before", apperr.ErrConflict, doc.ID)
	}
	if doc.Deduplicated && (doc.Status == "" || doc.Status == StatusReady) {
		for _, other := range s.docs {
			if other.Deduplicated && other.Status == StatusReady &&
				other.OwnerID == doc.OwnerID && other.ContentHash == doc.ContentHash {
				return Document{}, fmt.Errorf("%w: owner %q already has content %s", apperr.ErrConflict, doc.OwnerID, doc.ContentHash)
			}
		}
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}
	if doc.Status == "" {
		doc.Status = StatusReady
	}
	s.docs[doc.ID] = doc
	s.docOrder = append(s.docOrder, doc.ID)
	return doc, nil
}

func (s *MemoryStore) GetDocument(_ context.Context, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return Document{}, apperr.NotFound("document", id)
	}
	return doc, nil
}

func (s *MemoryStore) ListDocuments(_ context.Context, filter DocumentFilter) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Document, 0, len(s.docOrder))
	for _, id := range s.docOrder {
		doc := s.docs[id]
		if filter.OwnerID != nil && doc.OwnerID != *filter.OwnerID {
			continue
		}
		out = append(out, doc)
	}
	return out, nil
}

func (s *MemoryStore) FindDocumentByHash(_ context.Context, ownerID, hash string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.docOrder {
		doc := s.docs[id]
		if doc.OwnerID == ownerID && doc.ContentHash == hash && doc.Status == StatusReady {
			return doc, nil
		}
	}
	return Document{}, apperr.NotFound("document with hash", hash)
}

func (s *MemoryStore) UpdateDocumentTitle(_ context.Context, id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return apperr.NotFound("document", id)
	}
	doc.Title = title
	s.docs[id] = doc
	return nil
}

func (s *MemoryStore) UpdateDocumentStatus(_ context.Context, id string, status DocumentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return apperr.NotFound("document", id)
	}
	doc.Status = status
	s.docs[id] = doc
	return nil
}

func (s *MemoryStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return apperr.NotFound("document", id)
	}
	delete(s.docs, id)
	s.docOrder = slices.DeleteFunc(s.docOrder, func(v string) bool { return v == id })
	s.retired[id] = struct{}{}
	return nil
}

func (s *MemoryStore) SaveComparisonJob(_ context.Context, job ComparisonJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job.DocumentIDs = slices.Clone(job.DocumentIDs)
	job.PairResults = slices.Clone(job.PairResults)
	s.compJobs[job.ID] = job
	return nil
}

func (s *MemoryStore) GetComparisonJob(_ context.Context, id string) (ComparisonJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.compJobs[id]
	if !ok {
		return ComparisonJob{}, apperr.NotFound("comparison job", id)
	}
	job.DocumentIDs = slices.Clone(job.DocumentIDs)
	job.PairResults = slices.Clone(job.PairResults)
	return job, nil
}

func (s *MemoryStore) SaveWebCheckJob(_ context.Context, job WebCheckJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job.Result.Sources = slices.Clone(job.Result.Sources)
	s.webJobs[job.ID] = job
	return nil
}

func (s *MemoryStore) GetWebCheckJob(_ context.Context, id string) (WebCheckJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.webJobs[id]
	if !ok {
		return WebCheckJob{}, apperr.NotFound("web check job", id)
	}
	job.Result.Sources = slices.Clone(job.Result.Sources)
	return job, nil
}

func (s *MemoryStore) CreateReport(_ context.Context, report Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.reports[report.ID]; exists {
		return fmt.Errorf("%w: report %q already exists", apperr.ErrConflict, report.ID)
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	report.Origin.DocumentIDs = slices.Clone(report.Origin.DocumentIDs)
	s.reports[report.ID] = report
	return nil
}

func (s *MemoryStore) GetReport(_ context.Context, id string) (Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[id]
	if !ok {
		return Report{}, apperr.NotFound("report", id)
	}
	return r, nil
}

func (s *MemoryStore) ListReports(_ context.Context, ownerID string) ([]Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Report, 0, len(s.reports))
	for _, r := range s.reports {
		if r.OwnerID == ownerID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) DeleteReport(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[id]; !ok {
		return apperr.NotFound("report", id)
	}
	delete(s.reports, id)
	return nil
}
