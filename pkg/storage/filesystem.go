package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStorage persists blobs on disk under a base directory, one sub directory per kind.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage ensures the kind directories exist and returns a handle.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./static"
	}
	for _, kind := range []Kind{KindFiles, KindThumbnails, KindPictures} {
		if err := os.MkdirAll(filepath.Join(baseDir, string(kind)), 0o755); err != nil {
			return nil, fmt.Errorf("create %s directory: %w", kind, err)
		}
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

// Put writes the blob through a temporary file so readers never observe a partial write.
func (s *LocalStorage) Put(_ context.Context, kind Kind, id string, r io.Reader, _ int64, _ string) error {
	path := s.resolve(kind, id)
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s blob: %w", kind, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s blob: %w", kind, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("commit %s blob: %w", kind, err)
	}
	return nil
}

// Open returns a read-only handle for the stored blob.
func (s *LocalStorage) Open(_ context.Context, kind Kind, id string) (io.ReadCloser, error) {
	file, err := os.Open(s.resolve(kind, id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open %s blob: %w", kind, err)
	}
	return file, nil
}

// Delete removes a stored blob. A missing blob yields ErrNotFound.
func (s *LocalStorage) Delete(_ context.Context, kind Kind, id string) error {
	if err := os.Remove(s.resolve(kind, id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("delete %s blob: %w", kind, err)
	}
	return nil
}

// Path exposes the on-disk location of a blob.
func (s *LocalStorage) Path(kind Kind, id string) string {
	return s.resolve(kind, id)
}

func (s *LocalStorage) resolve(kind Kind, id string) string {
	return filepath.Join(s.baseDir, filepath.FromSlash(objectName(kind, id)))
}
