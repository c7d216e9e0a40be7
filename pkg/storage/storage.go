// Package storage holds the blob backends of the file-storage tier.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/shaderhub/shaderhub-api/pkg/config"
)

// Kind partitions blobs by purpose.
type Kind string

const (
	KindFiles      Kind = "files"
	KindThumbnails Kind = "thumbnails"
	KindPictures   Kind = "pictures"
)

// ErrNotFound is returned when a blob does not exist.
var ErrNotFound = errors.New("blob not found")

// BlobStore stores opaque blobs keyed by kind and id.
type BlobStore interface {
	Put(ctx context.Context, kind Kind, id string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, kind Kind, id string) (io.ReadCloser, error)
	Delete(ctx context.Context, kind Kind, id string) error
}

// New builds the backend selected by cfg.
func New(ctx context.Context, cfg config.StorageConfig) (BlobStore, error) {
	switch cfg.Backend {
	case "", config.StorageBackendLocal:
		return NewLocalStorage(cfg.BaseDir)
	case config.StorageBackendS3:
		return NewS3Storage(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func objectName(kind Kind, id string) string {
	if kind == KindFiles {
		return string(kind) + "/" + id + ".zip"
	}
	return string(kind) + "/" + id
}
