package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/moevm/nosql1h25-mldata/pkg/apperrors"
)

const fileExt = ".csv"

// FileStore keeps one raw CSV file per dataset under a single
// directory, named {id}.csv.
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore rooted at dir, creating the
// directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Path returns the on-disk path for a dataset id.
func (s *FileStore) Path(id string) string {
	return filepath.Join(s.dir, id+fileExt)
}

// Create writes a brand-new dataset file with exclusive-create
// semantics. An existing file at the target path means an identifier
// collision and fails with apperrors.ErrConflict.
func (s *FileStore) Create(id string, data []byte) (string, error) {
	path := s.Path(id)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("dataset file %s already exists: %w", path, apperrors.ErrConflict)
		}
		return "", fmt.Errorf("failed to create dataset file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return "", fmt.Errorf("failed to write dataset file: %w", err)
	}
	return path, nil
}

// Write replaces the stored file for an existing dataset.
func (s *FileStore) Write(id string, data []byte) (string, error) {
	path := s.Path(id)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write dataset file: %w", err)
	}
	return path, nil
}

// Read returns the stored file content for a dataset.
func (s *FileStore) Read(id string) ([]byte, error) {
	data, err := os.ReadFile(s.Path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("dataset file for %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read dataset file: %w", err)
	}
	return data, nil
}

// Remove deletes the stored file. A missing file is not an error so
// delete cleanup stays idempotent.
func (s *FileStore) Remove(id string) error {
	if err := os.Remove(s.Path(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove dataset file: %w", err)
	}
	return nil
}

// List returns the dataset ids that currently have a stored file.
func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read storage dir: %w", err)
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), fileExt))
	}
	return ids, nil
}

// ReplaceAll swaps the entire directory contents for the given files,
// keyed by dataset id. Used by archive import after the metadata
// restore has committed.
func (s *FileStore) ReplaceAll(files map[string][]byte) error {
	existing, err := s.List()
	if err != nil {
		return err
	}
	for _, id := range existing {
		if err := s.Remove(id); err != nil {
			return err
		}
	}
	for id, data := range files {
		if _, err := s.Write(id, data); err != nil {
			return err
		}
	}
	return nil
}
