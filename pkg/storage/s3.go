package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/shaderhub/shaderhub-api/pkg/config"
)

// S3Storage keeps blobs in an S3 compatible bucket.
type S3Storage struct {
	cl     *minio.Client
	bucket string
}

// NewS3Storage connects to the bucket described by cfg.
func NewS3Storage(ctx context.Context, cfg config.S3Config) (*S3Storage, error) {
	opts := &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	}
	if cfg.PathStyle {
		opts.BucketLookup = minio.BucketLookupPath
	}
	cl, err := minio.New(cfg.Endpoint, opts)
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}

	exists, err := cl.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := cl.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &S3Storage{cl: cl, bucket: cfg.Bucket}, nil
}

// Put uploads the blob. A negative size streams with multipart upload.
func (s *S3Storage) Put(ctx context.Context, kind Kind, id string, r io.Reader, size int64, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.cl.PutObject(ctx, s.bucket, objectName(kind, id), r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put %s blob: %w", kind, err)
	}
	return nil
}

// Open stats the key first so a missing blob surfaces as ErrNotFound instead of
// failing on first read.
func (s *S3Storage) Open(ctx context.Context, kind Kind, id string) (io.ReadCloser, error) {
	key := objectName(kind, id)
	if _, err := s.cl.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		return nil, translate(kind, err)
	}
	obj, err := s.cl.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, translate(kind, err)
	}
	return obj, nil
}

// Delete removes the blob. RemoveObject succeeds on absent keys, so presence is checked first.
func (s *S3Storage) Delete(ctx context.Context, kind Kind, id string) error {
	key := objectName(kind, id)
	if _, err := s.cl.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		return translate(kind, err)
	}
	if err := s.cl.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete %s blob: %w", kind, err)
	}
	return nil
}

func translate(kind Kind, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return fmt.Errorf("%s blob: %w", kind, err)
}
