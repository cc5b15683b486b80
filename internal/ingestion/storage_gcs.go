package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCSStorage keeps run tables in one Cloud Storage bucket.
type GCSStorage struct {
	client *gcs.Client
	bucket string
}

// NewGCSStorage creates a GCS-backed StorageClient using Application Default
// Credentials.
func NewGCSStorage(ctx context.Context, bucket string) (*GCSStorage, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs storage needs a bucket for run tables")
	}
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs storage: create client: %w", err)
	}
	return &GCSStorage{client: client, bucket: bucket}, nil
}

func (s *GCSStorage) fail(op string, obj Object, err error) error {
	return &StorageError{Backend: "gs://" + s.bucket, Op: op, Object: obj, Err: err}
}

// Put writes a table as CSV, tagged with its run id and kind.
func (s *GCSStorage) Put(ctx context.Context, runID, kind, name string, data []byte) error {
	obj, err := tableObject(runID, kind, name)
	if err != nil {
		return s.fail("put", obj, err)
	}
	w := s.client.Bucket(s.bucket).Object(obj.Key()).NewWriter(ctx)
	w.ContentType = "text/csv"
	w.Metadata = map[string]string{metaRunID: runID, metaKind: kind}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return s.fail("put", obj, err)
	}
	// The upload is only committed by Close.
	if err := w.Close(); err != nil {
		return s.fail("put", obj, err)
	}
	return nil
}

// Get reads a table. A missing object is ErrNotFound.
func (s *GCSStorage) Get(ctx context.Context, runID, kind, name string) ([]byte, error) {
	obj, err := tableObject(runID, kind, name)
	if err != nil {
		return nil, s.fail("get", obj, err)
	}
	r, err := s.client.Bucket(s.bucket).Object(obj.Key()).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, s.fail("get", obj, ErrNotFound)
	}
	if err != nil {
		return nil, s.fail("get", obj, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, s.fail("read", obj, err)
	}
	return data, nil
}

// List walks the run's prefix and returns its table names.
func (s *GCSStorage) List(ctx context.Context, runID, kind string) ([]string, error) {
	obj := Object{RunID: runID, Kind: kind}
	if err := obj.Validate(); err != nil {
		return nil, s.fail("list", obj, err)
	}
	prefix := obj.Prefix()
	it := s.client.Bucket(s.bucket).Objects(ctx, &gcs.Query{Prefix: prefix})
	var names []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, s.fail("list", obj, err)
		}
		if name, ok := tableFromKey(prefix, attrs.Name); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
