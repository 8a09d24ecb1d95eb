// Package blob stores document and report bytes behind a small key/value
// interface. Keys are slash separated, e.g. "documents/<id>.pdf".
package blob

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"simcheck/internal/apperr"
)

var (
	ErrNotFound = fmt.Errorf("%w: blob", apperr.ErrNotFound)
	ErrExists   = fmt.Errorf("%w: blob already exists", apperr.ErrConflict)
)

// Object describes a stored blob.
type Object struct {
	Key         string
	ContentType string
	Size        int64
}

// Store is implemented by the local, memory, S3 and GCS backends.
// Put never overwrites; Delete of a missing key is not an error.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, Object, error)
	Delete(ctx context.Context, key string) error
}

// ReadAll opens key and returns its full contents.
func ReadAll(ctx context.Context, s Store, key string) ([]byte, Object, error) {
	rc, obj, err := s.Open(ctx, key)
	if err != nil {
		return nil, Object{}, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, Object{}, fmt.Errorf("read blob %s: %w", key, err)
	}
	return data, obj, nil
}

func validKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || path.Clean(key) != key || strings.HasPrefix(key, "..") {
		return apperr.Validation("invalid blob key %q", key)
	}
	return nil
}

func joinPrefix(prefix, key string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}
