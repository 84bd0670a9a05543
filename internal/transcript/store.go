package transcript

import (
	"context"
	"encoding/json"
	"fmt"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// Store persists transcript documents to a blob bucket. The bucket URL
// decides the backing driver, so local disk and cloud storage share one
// code path.
type Store struct {
	bucket *blob.Bucket
}

// NewStore opens the bucket named by bucketURL. The caller must have
// imported the driver for the URL's scheme.
func NewStore(ctx context.Context, bucketURL string) (*Store, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("open transcript bucket %q: %w", bucketURL, err)
	}
	return &Store{bucket: bucket}, nil
}

// NewStoreFromBucket wraps an already-open bucket.
func NewStoreFromBucket(bucket *blob.Bucket) *Store {
	return &Store{bucket: bucket}
}

// Save writes the document under key as indented JSON.
func (s *Store) Save(ctx context.Context, key string, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal transcript %q: %w", key, err)
	}
	opts := &blob.WriterOptions{ContentType: "application/json"}
	if err := s.bucket.WriteAll(ctx, key, data, opts); err != nil {
		return fmt.Errorf("write transcript %q: %w", key, err)
	}
	return nil
}

// Load reads the document stored under key. IsNotFound distinguishes a
// missing transcript from a failed read.
func (s *Store) Load(ctx context.Context, key string) (*Document, error) {
	data, err := s.bucket.ReadAll(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read transcript %q: %w", key, err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode transcript %q: %w", key, err)
	}
	return &doc, nil
}

// Exists reports whether a transcript is stored under key.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	return s.bucket.Exists(ctx, key)
}

// IsNotFound reports whether err means the object does not exist.
func IsNotFound(err error) bool {
	return gcerrors.Code(err) == gcerrors.NotFound
}

func (s *Store) Close() error {
	return s.bucket.Close()
}
