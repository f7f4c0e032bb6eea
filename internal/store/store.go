package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/ZebulonRouseFrantzich/kvirt/internal/document"
)

// DocumentError reports a document that exists but cannot be parsed.
type DocumentError struct {
	Path string
	Err  error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}

// Store reads and writes YAML documents on an afero filesystem.
type Store struct {
	fs afero.Fs
}

// New returns a store over fs. A nil fs means the OS filesystem.
func New(fs afero.Fs) *Store {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Store{fs: fs}
}

// Fs returns the underlying filesystem.
func (s *Store) Fs() afero.Fs {
	return s.fs
}

// Exists reports whether path exists.
func (s *Store) Exists(path string) (bool, error) {
	return afero.Exists(s.fs, path)
}

// Read parses the document at path.
func (s *Store) Read(path string) (*document.Mapping, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	m, err := document.Decode(data)
	if err != nil {
		return nil, &DocumentError{Path: path, Err: err}
	}
	return m, nil
}

// ReadOptional is Read, except a missing file yields an empty mapping.
func (s *Store) ReadOptional(path string) (*document.Mapping, error) {
	m, err := s.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return document.NewMapping(), nil
	}
	return m, err
}

// Write stores m at path atomically: the document is written to a temporary
// sibling, renamed over the destination and the directory is synced.
func (s *Store) Write(path string, m *document.Mapping) error {
	data, err := document.Encode(m)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return s.WriteFile(path, data)
}

// WriteFile atomically replaces path with data.
func (s *Store) WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := s.fs.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmpPath := fmt.Sprintf("%s.%s.tmp", path, uuid.New().String())
	if err := afero.WriteFile(s.fs, tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("write temporary file: %w", err)
	}

	if err := s.fs.Rename(tmpPath, path); err != nil {
		_ = s.fs.Remove(tmpPath)
		return fmt.Errorf("rename %s: %w", path, err)
	}

	df, err := s.fs.Open(dir)
	if err == nil {
		syncErr := df.Sync()
		df.Close()
		if syncErr != nil && !errors.Is(syncErr, os.ErrInvalid) {
			return fmt.Errorf("sync directory: %w", syncErr)
		}
	}
	return nil
}

// Remove deletes path. A missing file is not an error.
func (s *Store) Remove(path string) error {
	if err := s.fs.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}
