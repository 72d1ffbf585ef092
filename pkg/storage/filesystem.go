// Package storage keeps rendered export files on local disk and signs the
// short-lived download links handed out for them.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrInvalidPath rejects empty, absolute and escaping relative paths.
var ErrInvalidPath = errors.New("storage: path must stay inside the base directory")

// LocalStorage stores files under one base directory. Writes go through a
// temporary file and a rename so readers never see a half-written export.
type LocalStorage struct {
	root string
}

// NewLocalStorage creates root when missing; an empty root means ./exports.
func NewLocalStorage(root string) (*LocalStorage, error) {
	if root == "" {
		root = "./exports"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create %s: %w", root, err)
	}
	return &LocalStorage{root: root}, nil
}

// Save writes data at relPath and returns relPath unchanged.
func (s *LocalStorage) Save(relPath string, data []byte) (string, error) {
	target, err := s.abs(relPath)
	if err != nil {
		return "", err
	}
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("storage: create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".partial-*")
	if err != nil {
		return "", fmt.Errorf("storage: stage %s: %w", relPath, err)
	}
	staged := tmp.Name()
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if err := errors.Join(werr, cerr); err != nil {
		_ = os.Remove(staged)
		return "", fmt.Errorf("storage: write %s: %w", relPath, err)
	}
	if err := os.Chmod(staged, 0o644); err != nil {
		_ = os.Remove(staged)
		return "", fmt.Errorf("storage: chmod %s: %w", relPath, err)
	}
	if err := os.Rename(staged, target); err != nil {
		_ = os.Remove(staged)
		return "", fmt.Errorf("storage: publish %s: %w", relPath, err)
	}
	return relPath, nil
}

// Open returns the stored file for reading. A missing file wraps fs.ErrNotExist.
func (s *LocalStorage) Open(relPath string) (*os.File, error) {
	target, err := s.abs(relPath)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(target)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", relPath, err)
	}
	return f, nil
}

// Delete removes relPath. Deleting a missing file is not an error.
func (s *LocalStorage) Delete(relPath string) error {
	target, err := s.abs(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: delete %s: %w", relPath, err)
	}
	return nil
}

// CleanupOlderThan removes files last modified more than ttl ago, including
// abandoned partial writes, and returns their paths relative to the root.
func (s *LocalStorage) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	cutoff := time.Now().Add(-ttl)
	var removed []string
	walk := func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.ModTime().Before(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		if rel, err := filepath.Rel(s.root, path); err == nil {
			path = rel
		}
		removed = append(removed, path)
		return nil
	}
	if err := filepath.WalkDir(s.root, walk); err != nil {
		return removed, fmt.Errorf("storage: sweep %s: %w", s.root, err)
	}
	return removed, nil
}

func (s *LocalStorage) abs(relPath string) (string, error) {
	clean := filepath.Clean(relPath)
	if relPath == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, relPath)
	}
	return filepath.Join(s.root, clean), nil
}
