// Package documents registers uploaded files and answers lookups over them.
package documents

import (
	"context"
	"log/slog"
	"strings"

	"simcheck/internal/apperr"
	"simcheck/internal/blob"
	"simcheck/internal/cache"
	"simcheck/internal/store"
)

// ListFilter narrows List; a nil OwnerID lists every owner.
type ListFilter = store.DocumentFilter

// Registry answers document lookups and owns rename and delete.
type Registry struct {
	store store.Store
	blobs blob.Store
	cache cache.Cache
	log   *slog.Logger
}

func NewRegistry(st store.Store, blobs blob.Store, c cache.Cache, log *slog.Logger) *Registry {
	if c == nil {
		c = cache.NewNoOpCache()
	}
	return &Registry{store: st, blobs: blobs, cache: c, log: log}
}

// List returns documents in upload order.
func (r *Registry) List(ctx context.Context, filter ListFilter) ([]store.Document, error) {
	return r.store.ListDocuments(ctx, filter)
}

func (r *Registry) Get(ctx context.Context, id string) (store.Document, error) {
	return r.store.GetDocument(ctx, id)
}

// Rename changes the display title, the only field that changes after upload.
func (r *Registry) Rename(ctx context.Context, id, title string) (store.Document, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return store.Document{}, apperr.Validation("title is required")
	}
	if err := r.store.UpdateDocumentTitle(ctx, id, title); err != nil {
		return store.Document{}, err
	}
	return r.store.GetDocument(ctx, id)
}

// Delete removes the record and the stored bytes. Reports that reference the
// document are left alone.
func (r *Registry) Delete(ctx context.Context, id string) error {
	doc, err := r.store.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	if err := r.store.DeleteDocument(ctx, id); err != nil {
		return err
	}
	log := r.log.With("document_id", id)
	if err := r.blobs.Delete(ctx, doc.StorageRef); err != nil {
		log.Error("failed to delete document bytes", "key", doc.StorageRef, "err", err)
	}
	if err := r.cache.InvalidateDocument(ctx, id); err != nil {
		log.Warn("failed to invalidate cached web checks", "err", err)
	}
	log.Info("document deleted")
	return nil
}
