package documents

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"simcheck/internal/apperr"
	"simcheck/internal/blob"
	"simcheck/internal/extract"
	"simcheck/internal/keylock"
	"simcheck/internal/orchestrator"
	"simcheck/internal/store"
)

const (
	DedupNone        = "none"
	DedupContentHash = "content-hash"

	keyPrefix = "documents/"
)

// FileInput is one file to register. Size is the declared size and may be zero.
type FileInput struct {
	Filename string
	Title    string
	OwnerID  string
	Size     int64
	Body     io.Reader
}

// UploadOutcome carries one file's result inside a batch.
type UploadOutcome struct {
	Filename string
	Document store.Document
	Err      error
}

type UploadOptions struct {
	AllowedExtensions []string
	MaxSize           int64
	Dedup             string
	WorkerLimit       int
}

// Uploader validates files, stores their bytes and creates document records.
type Uploader struct {
	store   store.Store
	blobs   blob.Store
	opts    UploadOptions
	allowed []string
	dedup   *keylock.Mutex // held per owner and content hash from lookup to create
	log     *slog.Logger
	now     func() time.Time
}

func NewUploader(st store.Store, blobs blob.Store, opts UploadOptions, log *slog.Logger) *Uploader {
	allowed := make([]string, 0, len(opts.AllowedExtensions))
	for _, ext := range opts.AllowedExtensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			allowed = append(allowed, ext)
		}
	}
	if opts.Dedup == "" {
		opts.Dedup = DedupNone
	}
	return &Uploader{store: st, blobs: blobs, opts: opts, allowed: allowed, dedup: keylock.New(), log: log, now: time.Now}
}

// Register stores one file and returns its ready document. With content-hash
// dedup an existing ready document of the same owner and bytes is returned.
func (u *Uploader) Register(ctx context.Context, in FileInput) (store.Document, error) {
	filename := filepath.Base(strings.TrimSpace(in.Filename))
	if filename == "" || filename == "." || filename == "/" {
		return store.Document{}, apperr.Validation("filename is required")
	}
	if in.Body == nil {
		return store.Document{}, apperr.Validation("file %s has no content", filename)
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if !slices.Contains(u.allowed, ext) {
		return store.Document{}, apperr.Validation("file type %q is not allowed (allowed: %s)", ext, strings.Join(u.allowed, ", "))
	}
	if u.opts.MaxSize > 0 && in.Size > u.opts.MaxSize {
		return store.Document{}, u.tooLarge(filename)
	}

	data, err := u.read(in.Body)
	if err != nil {
		return store.Document{}, err
	}
	switch {
	case len(data) == 0:
		return store.Document{}, apperr.Validation("file %s is empty", filename)
	case u.opts.MaxSize > 0 && int64(len(data)) > u.opts.MaxSize:
		return store.Document{}, u.tooLarge(filename)
	}

	text, err := extract.Text(filename, data)
	if err != nil {
		return store.Document{}, apperr.Validation("cannot read %s: %v", filename, err)
	}
	if err := extract.RequireText(filename, text); err != nil {
		return store.Document{}, err
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	log := u.log.With("filename", filename, "owner_id", in.OwnerID)

	if u.opts.Dedup == DedupContentHash {
		unlock := u.dedup.Lock(in.OwnerID + "\x00" + hash)
		defer unlock()
		existing, err := u.store.FindDocumentByHash(ctx, in.OwnerID, hash)
		switch {
		case err == nil:
			log.Info("duplicate upload resolved to existing document", "document_id", existing.ID)
			return existing, nil
		case !errors.Is(err, apperr.ErrNotFound):
			return store.Document{}, fmt.Errorf("dedup lookup: %w", err)
		}
	}

	id, err := uuid.NewV7()
	if err != nil {
		return store.Document{}, fmt.Errorf("generate document id: %w", err)
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = filename
	}
	doc := store.Document{
		ID:           id.String(),
		Title:        title,
		OwnerID:      in.OwnerID,
		Filename:     filename,
		ContentType:  extract.ContentType(filename),
		Size:         int64(len(data)),
		ContentHash:  hash,
		StorageRef:   keyPrefix + id.String() + "." + ext,
		Status:       store.StatusReady,
		UploadedAt:   u.now().UTC(),
		Deduplicated: u.opts.Dedup == DedupContentHash,
	}

	if err := u.blobs.Put(ctx, doc.StorageRef, data, doc.ContentType); err != nil {
		return store.Document{}, apperr.Upstream("document store", err)
	}
	created, err := u.store.CreateDocument(ctx, doc)
	if err != nil {
		if delErr := u.blobs.Delete(context.WithoutCancel(ctx), doc.StorageRef); delErr != nil {
			log.Error("failed to remove orphaned document bytes", "key", doc.StorageRef, "err", delErr)
		}
		// Another process registered the same bytes between lookup and create.
		if doc.Deduplicated && errors.Is(err, apperr.ErrConflict) {
			if existing, findErr := u.store.FindDocumentByHash(ctx, in.OwnerID, hash); findErr == nil {
				log.Info("duplicate upload resolved to existing document", "document_id", existing.ID)
				return existing, nil
			}
		}
		return store.Document{}, fmt.Errorf("create document record: %w", err)
	}
	log.Info("document registered", "document_id", created.ID, "size", created.Size)
	return created, nil
}

// RegisterBatch uploads files concurrently. Each outcome stands alone; a
// failed file never rolls back its siblings.
func (u *Uploader) RegisterBatch(ctx context.Context, files []FileInput) []UploadOutcome {
	results := orchestrator.Run(ctx, u.opts.WorkerLimit, files, u.Register)
	out := make([]UploadOutcome, len(files))
	for i, r := range results {
		out[i] = UploadOutcome{Filename: files[i].Filename, Document: r.Value, Err: r.Err}
	}
	return out
}

func (u *Uploader) read(body io.Reader) ([]byte, error) {
	r := body
	if u.opts.MaxSize > 0 {
		r = io.LimitReader(body, u.opts.MaxSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return data, nil
}

func (u *Uploader) tooLarge(filename string) error {
	return apperr.Validation("file %s exceeds the maximum size of %d bytes", filename, u.opts.MaxSize)
}
