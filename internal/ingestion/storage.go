// Package ingestion runs the benefit-cost pipeline for stored runs: it loads a
// run's input tables from blob storage, runs the engine, stores the output
// tables and records the run in the run log.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/bcaengine/bcaengine/pkg/config"
)

// Table kinds, used as the middle path segment of every object.
const (
	KindInputs  = "inputs"
	KindOutputs = "outputs"
)

const tableExt = ".csv"

var (
	// ErrNotFound is returned by StorageClient.Get for a missing table.
	ErrNotFound = errors.New("table not found")
	// ErrInvalidName is returned for run ids, kinds and table names that
	// cannot name a stored table.
	ErrInvalidName = errors.New("invalid table reference")
)

// StorageClient abstracts blob storage for run tables. Objects live at
// <runID>/<kind>/<table>.csv.
type StorageClient interface {
	Put(ctx context.Context, runID, kind, name string, data []byte) error
	Get(ctx context.Context, runID, kind, name string) ([]byte, error)
	// List returns the table names stored for a run and kind, sorted.
	List(ctx context.Context, runID, kind string) ([]string, error)
}

// NewStorage builds the backend selected by cfg.
func NewStorage(ctx context.Context, cfg config.StorageConfig) (StorageClient, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocalStorage(cfg.LocalDir), nil
	case "s3":
		return NewS3Storage(ctx, S3Config{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			AccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		})
	case "gcs":
		return NewGCSStorage(ctx, cfg.Bucket)
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}

// ValidateRunID accepts only canonical UUIDs, the form NewRunID produces.
func ValidateRunID(id string) error {
	u, err := uuid.Parse(id)
	if err != nil || u.String() != id {
		return fmt.Errorf("run id %q: %w", id, ErrInvalidName)
	}
	return nil
}

// ValidateTableName rejects names that would leave the run's directory.
func ValidateTableName(name string) error {
	if name == "" || name == "." || strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("table name %q: %w", name, ErrInvalidName)
	}
	return nil
}

// Object names one stored table.
type Object struct {
	RunID string
	Kind  string
	Table string
}

// Validate checks every part of the reference.
func (o Object) Validate() error {
	if err := ValidateRunID(o.RunID); err != nil {
		return err
	}
	if o.Kind != KindInputs && o.Kind != KindOutputs {
		return fmt.Errorf("table kind %q: %w", o.Kind, ErrInvalidName)
	}
	if o.Table == "" {
		return nil
	}
	return ValidateTableName(o.Table)
}

// tableObject builds and validates the reference of one table.
func tableObject(runID, kind, name string) (Object, error) {
	obj := Object{RunID: runID, Kind: kind, Table: name}
	if name == "" {
		return obj, fmt.Errorf("table name is required: %w", ErrInvalidName)
	}
	return obj, obj.Validate()
}

// Prefix is the key prefix shared by every table of the run and kind.
func (o Object) Prefix() string {
	return o.RunID + "/" + o.Kind + "/"
}

// Key is the object key of the table.
func (o Object) Key() string {
	return o.Prefix() + o.Table + tableExt
}

// tableFromKey returns the table name of an object key under prefix, or false
// for keys that are not tables of that run and kind.
func tableFromKey(prefix, key string) (string, bool) {
	name, ok := strings.CutPrefix(key, prefix)
	if !ok {
		return "", false
	}
	name, ok = strings.CutSuffix(name, tableExt)
	if !ok || ValidateTableName(name) != nil {
		return "", false
	}
	return name, true
}

// StorageError reports a failed operation on one stored table.
type StorageError struct {
	Backend string
	Op      string
	Object  Object
	Err     error
}

func (e *StorageError) Error() string {
	ref := e.Object.Prefix()
	if e.Object.Table != "" {
		ref = e.Object.Key()
	}
	return fmt.Sprintf("%s %s %s: %v", e.Backend, e.Op, ref, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// LocalStorage implements StorageClient using the local filesystem.
// Useful for development and testing.
type LocalStorage struct {
	BaseDir string
}

// NewLocalStorage creates a LocalStorage rooted at the given directory.
func NewLocalStorage(baseDir string) *LocalStorage {
	return &LocalStorage{BaseDir: baseDir}
}

// Path returns the file a table is stored in.
func (s *LocalStorage) Path(runID, kind, name string) (string, error) {
	obj, err := tableObject(runID, kind, name)
	if err != nil {
		return "", &StorageError{Backend: "local", Op: "path", Object: obj, Err: err}
	}
	return filepath.Join(s.BaseDir, filepath.FromSlash(obj.Key())), nil
}

// Put stores a table blob.
func (s *LocalStorage) Put(ctx context.Context, runID, kind, name string, data []byte) error {
	path, err := s.Path(runID, kind, name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Get retrieves a table blob.
func (s *LocalStorage) Get(ctx context.Context, runID, kind, name string) ([]byte, error) {
	path, err := s.Path(runID, kind, name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &StorageError{Backend: "local", Op: "get", Object: Object{RunID: runID, Kind: kind, Table: name}, Err: ErrNotFound}
	}
	return data, err
}

// List returns the tables stored for a run and kind. A run without tables
// lists as empty.
func (s *LocalStorage) List(ctx context.Context, runID, kind string) ([]string, error) {
	obj := Object{RunID: runID, Kind: kind}
	if err := obj.Validate(); err != nil {
		return nil, &StorageError{Backend: "local", Op: "list", Object: obj, Err: err}
	}
	entries, err := os.ReadDir(filepath.Join(s.BaseDir, runID, kind))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &StorageError{Backend: "local", Op: "list", Object: obj, Err: err}
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if name, ok := tableFromKey(obj.Prefix(), obj.Prefix()+e.Name()); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
