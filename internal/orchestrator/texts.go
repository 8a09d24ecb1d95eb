package orchestrator

import (
	"context"
	"errors"

	"simcheck/internal/apperr"
	"simcheck/internal/blob"
	"simcheck/internal/extract"
	"simcheck/internal/scoring"
	"simcheck/internal/store"
)

// TextLoader reads a document's stored bytes and extracts its text.
type TextLoader struct {
	blobs blob.Store
}

func NewTextLoader(blobs blob.Store) *TextLoader {
	return &TextLoader{blobs: blobs}
}

func (l *TextLoader) Load(ctx context.Context, doc store.Document) (scoring.Source, error) {
	data, _, err := blob.ReadAll(ctx, l.blobs, doc.StorageRef)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) || ctx.Err() != nil {
			return scoring.Source{}, err
		}
		return scoring.Source{}, apperr.Upstream("document store", err)
	}
	text, err := extract.Text(doc.Filename, data)
	if err != nil {
		return scoring.Source{}, err
	}
	if err := extract.RequireText(doc.Filename, text); err != nil {
		return scoring.Source{}, err
	}
	return scoring.Source{ID: doc.ID, Title: doc.Title, Text: text}, nil
}
