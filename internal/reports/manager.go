// Package reports owns the lifecycle of generated report artifacts: creation
// from engine output, listing, view/download resolution and confirmed deletion.
package reports

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"simcheck/internal/apperr"
	"simcheck/internal/blob"
	"simcheck/internal/keylock"
	"simcheck/internal/store"
)

const (
	DispositionInline     = "inline"
	DispositionAttachment = "attachment"

	keyPrefix      = "reports/"
	createAttempts = 3
)

// Handle resolves to a report's byte stream.
type Handle struct {
	Report      store.Report
	Disposition string
	blobs       blob.Store
}

// Open returns the artifact bytes; the caller closes the reader.
func (h Handle) Open(ctx context.Context) (io.ReadCloser, error) {
	rc, _, err := h.blobs.Open(ctx, h.Report.StorageRef)
	if errors.Is(err, blob.ErrNotFound) {
		return nil, apperr.NotFound("report", h.Report.ID)
	}
	return rc, err
}

type Manager struct {
	store store.Store
	blobs blob.Store
	locks *keylock.Mutex
	log   *slog.Logger
	now   func() time.Time
}

func NewManager(st store.Store, blobs blob.Store, log *slog.Logger) *Manager {
	return &Manager{store: st, blobs: blobs, locks: keylock.New(), log: log, now: time.Now}
}

// Create stores an artifact and its record. The filename is derived from the
// artifact name and gets a random suffix if it is already taken.
func (m *Manager) Create(ctx context.Context, owner string, origin store.Origin, art Artifact) (store.Report, error) {
	if len(art.Body) == 0 {
		return store.Report{}, apperr.Validation("report artifact is empty")
	}
	base := sanitizeName(art.Name)
	if base == "" {
		base = "report"
	}
	ext := sanitizeExt(art.Ext)
	contentType := art.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	filename := base + ext
	var lastErr error
	for attempt := 0; attempt < createAttempts; attempt++ {
		if attempt > 0 {
			filename = base + "_" + randomSuffix() + ext
		}
		r, err := m.create(ctx, filename, store.Report{
			ID:          filename,
			OwnerID:     owner,
			Kind:        art.Kind,
			Origin:      origin,
			ContentType: contentType,
			Size:        int64(len(art.Body)),
			StorageRef:  keyPrefix + filename,
			CreatedAt:   m.now().UTC(),
		}, art.Body)
		if err == nil {
			return r, nil
		}
		if !errors.Is(err, apperr.ErrConflict) {
			return store.Report{}, err
		}
		lastErr = err
	}
	return store.Report{}, lastErr
}

func (m *Manager) create(ctx context.Context, filename string, r store.Report, body []byte) (store.Report, error) {
	unlock := m.locks.Lock(filename)
	defer unlock()

	if err := m.blobs.Put(ctx, r.StorageRef, body, r.ContentType); err != nil {
		return store.Report{}, err
	}
	if err := m.store.CreateReport(ctx, r); err != nil {
		if delErr := m.blobs.Delete(ctx, r.StorageRef); delErr != nil {
			m.log.Error("failed to remove orphaned report artifact", "report", filename, "err", delErr)
		}
		return store.Report{}, err
	}
	m.log.Info("report created", "report", filename, "kind", r.Kind, "job_id", r.Origin.JobID)
	return r, nil
}

// List returns the owner's reports, newest first.
func (m *Manager) List(ctx context.Context, owner string) ([]store.Report, error) {
	return m.store.ListReports(ctx, owner)
}

func (m *Manager) ResolveView(ctx context.Context, owner, id string) (Handle, error) {
	return m.resolve(ctx, owner, id, DispositionInline)
}

func (m *Manager) ResolveDownload(ctx context.Context, owner, id string) (Handle, error) {
	return m.resolve(ctx, owner, id, DispositionAttachment)
}

func (m *Manager) resolve(ctx context.Context, owner, id, disposition string) (Handle, error) {
	r, err := m.get(ctx, owner, id)
	if err != nil {
		return Handle{}, err
	}
	return Handle{Report: r, Disposition: disposition, blobs: m.blobs}, nil
}

// get hides other owners' reports behind NotFound.
func (m *Manager) get(ctx context.Context, owner, id string) (store.Report, error) {
	r, err := m.store.GetReport(ctx, id)
	if err != nil {
		return store.Report{}, err
	}
	if r.OwnerID != owner {
		return store.Report{}, apperr.NotFound("report", id)
	}
	return r, nil
}

// Delete removes the report record and its artifact. Documents are never touched.
func (m *Manager) Delete(ctx context.Context, owner, id string, confirmed bool) error {
	if !confirmed {
		return apperr.Validation("deletion requires confirmation")
	}
	unlock := m.locks.Lock(id)
	defer unlock()

	r, err := m.get(ctx, owner, id)
	if err != nil {
		return err
	}
	if err := m.store.DeleteReport(ctx, id); err != nil {
		return err
	}
	if err := m.blobs.Delete(ctx, r.StorageRef); err != nil {
		m.log.Error("report record deleted but artifact removal failed", "report", id, "err", err)
	}
	m.log.Info("report deleted", "report", id)
	return nil
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func sanitizeName(name string) string {
	name = unsafeName.ReplaceAllString(strings.TrimSpace(name), "_")
	return strings.Trim(name, "._")
}

func sanitizeExt(ext string) string {
	ext = strings.TrimPrefix(sanitizeName(ext), ".")
	if ext == "" {
		return ".txt"
	}
	return "." + ext
}

func randomSuffix() string {
	b := make([]byte, 3)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
