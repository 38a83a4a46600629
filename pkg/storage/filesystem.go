package storage

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// LocalStorage keeps generated export files on the local disk beneath a
// single root directory. Callers pass paths relative to that root.
type LocalStorage struct {
	root string
}

// NewLocalStorage creates the root directory if needed.
func NewLocalStorage(root string) (*LocalStorage, error) {
	if root == "" {
		root = "./exports"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &LocalStorage{root: root}, nil
}

// Save writes data to the relative path and returns that path back so the
// caller can persist it alongside the job record.
func (s *LocalStorage) Save(relPath string, data []byte) (string, error) {
	full := s.fullPath(relPath)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create storage subdirectory: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("write file %s: %w", relPath, err)
	}
	return relPath, nil
}

// Open returns a read handle for a stored file. The caller owns the close.
func (s *LocalStorage) Open(relPath string) (*os.File, error) {
	file, err := os.Open(s.fullPath(relPath))
	if err != nil {
		return nil, fmt.Errorf("open file %s: %w", relPath, err)
	}
	return file, nil
}

// Delete removes a stored file. A file that is already gone is not an error.
func (s *LocalStorage) Delete(relPath string) error {
	if err := os.Remove(s.fullPath(relPath)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete file %s: %w", relPath, err)
	}
	return nil
}

// CleanupOlderThan walks the root and removes every file whose modification
// time predates the TTL, returning the relative paths it deleted.
func (s *LocalStorage) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	cutoff := time.Now().Add(-ttl)
	var removed []string

	walk := func(path string, entry fs.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return err
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		rel, relErr := filepath.Rel(s.root, path)
		if relErr != nil {
			rel = path
		}
		removed = append(removed, rel)
		return nil
	}

	if err := filepath.WalkDir(s.root, walk); err != nil {
		return nil, fmt.Errorf("cleanup storage: %w", err)
	}
	return removed, nil
}

func (s *LocalStorage) fullPath(relPath string) string {
	if filepath.IsAbs(relPath) {
		return relPath
	}
	return filepath.Join(s.root, relPath)
}
