package ingestion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Object metadata written with every table.
const (
	metaRunID = "bca-run-id"
	metaKind  = "bca-table-kind"
)

// S3Config holds configuration for the S3 storage backend.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string // MinIO and other S3-compatible stores; forces path-style addressing
	AccessKey string
	SecretKey string
}

// S3Storage keeps run tables in one S3 bucket.
type S3Storage struct {
	client *s3.Client
	bucket string
}

// NewS3Storage creates an S3-backed StorageClient. Without static keys the
// default AWS credential chain is used.
func NewS3Storage(ctx context.Context, cfg S3Config) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 storage needs a bucket for run tables")
	}
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(creds))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3 storage: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Storage{client: client, bucket: cfg.Bucket}, nil
}

func (s *S3Storage) fail(op string, obj Object, err error) error {
	return &StorageError{Backend: "s3://" + s.bucket, Op: op, Object: obj, Err: err}
}

// Put uploads a table as CSV, tagged with its run id and kind.
func (s *S3Storage) Put(ctx context.Context, runID, kind, name string, data []byte) error {
	obj, err := tableObject(runID, kind, name)
	if err != nil {
		return s.fail("put", obj, err)
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(obj.Key()),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("text/csv"),
		Metadata:    map[string]string{metaRunID: runID, metaKind: kind},
	})
	if err != nil {
		return s.fail("put", obj, err)
	}
	return nil
}

// Get downloads a table. A missing object is ErrNotFound.
func (s *S3Storage) Get(ctx context.Context, runID, kind, name string) ([]byte, error) {
	obj, err := tableObject(runID, kind, name)
	if err != nil {
		return nil, s.fail("get", obj, err)
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(obj.Key()),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, s.fail("get", obj, ErrNotFound)
		}
		return nil, s.fail("get", obj, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, s.fail("read", obj, err)
	}
	return data, nil
}

// List pages through the run's prefix and returns its table names.
func (s *S3Storage) List(ctx context.Context, runID, kind string) ([]string, error) {
	obj := Object{RunID: runID, Kind: kind}
	if err := obj.Validate(); err != nil {
		return nil, s.fail("list", obj, err)
	}
	prefix := obj.Prefix()
	pages := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	var names []string
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, s.fail("list", obj, err)
		}
		for _, o := range page.Contents {
			if name, ok := tableFromKey(prefix, aws.ToString(o.Key)); ok {
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names, nil
}
