package blob

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// GCSStore keeps blobs in a Google Cloud Storage bucket.
type GCSStore struct {
	client *storage.Client
	bucket *storage.BucketHandle
	prefix string
}

func NewGCS(ctx context.Context, bucket, prefix string) (*GCSStore, error) {
	if bucket == "" {
		return nil, errors.New("GCS_BUCKET is required for the gcs blob provider")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: client.Bucket(bucket), prefix: prefix}, nil
}

// Put writes only if the object does not exist yet.
func (g *GCSStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if err := validKey(key); err != nil {
		return err
	}
	w := g.bucket.Object(joinPrefix(g.prefix, key)).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return gcsWriteErr(key, err)
	}
	if err := w.Close(); err != nil {
		return gcsWriteErr(key, err)
	}
	return nil
}

func gcsWriteErr(key string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == 412 {
		return ErrExists
	}
	return fmt.Errorf("failed to write to GCS object %s: %w", key, err)
}

func (g *GCSStore) Open(ctx context.Context, key string) (io.ReadCloser, Object, error) {
	r, err := g.bucket.Object(joinPrefix(g.prefix, key)).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, Object{}, ErrNotFound
	}
	if err != nil {
		return nil, Object{}, err
	}
	return r, Object{Key: key, ContentType: r.Attrs.ContentType, Size: r.Attrs.Size}, nil
}

func (g *GCSStore) Delete(ctx context.Context, key string) error {
	err := g.bucket.Object(joinPrefix(g.prefix, key)).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return err
}

func (g *GCSStore) Close() error {
	return g.client.Close()
}
