// Package storage holds the narrow object-store interface receipt files go
// through, plus a filesystem-backed implementation.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"trip-expense-service/internal/models"
)

// ReceiptStore stores receipt files by generated key. An upload failure is
// fatal to the transaction that owns it.
type ReceiptStore interface {
	Upload(ctx context.Context, key string, r io.Reader) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

type fileReceiptStore struct {
	dir string
}

// NewFileReceiptStore returns a ReceiptStore persisting under dir, creating
// it if needed.
func NewFileReceiptStore(dir string) (ReceiptStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating receipt directory: %v", err)
	}
	return &fileReceiptStore{dir: dir}, nil
}

func (s *fileReceiptStore) path(key string) string {
	// Keys are generated UUIDs; Base strips anything path-like regardless.
	return filepath.Join(s.dir, filepath.Base(key))
}

func (s *fileReceiptStore) Upload(ctx context.Context, key string, r io.Reader) error {
	f, err := os.Create(s.path(key))
	if err != nil {
		return fmt.Errorf("error creating receipt file: %v", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(s.path(key))
		return fmt.Errorf("error writing receipt file: %v", err)
	}
	return nil
}

func (s *fileReceiptStore) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(key))
	if os.IsNotExist(err) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error opening receipt file: %v", err)
	}
	return f, nil
}

func (s *fileReceiptStore) Delete(ctx context.Context, key string) error {
	err := os.Remove(s.path(key))
	if os.IsNotExist(err) {
		return models.ErrNotFound
	}
	return err
}
