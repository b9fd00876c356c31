// Package storage keeps attachment files on local disk under a single root.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type Store struct {
	root string
}

// SavedFile describes a stored attachment; Path is the value persisted on the
// attachment row and passed back for deletion.
type SavedFile struct {
	Name string
	Path string
	Size int64
}

func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0700); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Store{root: root}, nil
}

func (s *Store) Save(name string, r io.Reader) (*SavedFile, error) {
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) {
		return nil, fmt.Errorf("invalid file name %q", name)
	}

	stored := uuid.New().String() + "-" + base
	f, err := os.Create(filepath.Join(s.root, stored))
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		os.Remove(f.Name())
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	return &SavedFile{
		Name: base,
		Path: "/files/" + stored,
		Size: size,
	}, nil
}

// Delete removes the file behind an attachment path. Unknown or already-gone
// paths are not an error.
func (s *Store) Delete(path string) error {
	stored := strings.TrimPrefix(path, "/files/")
	if stored == "" || strings.Contains(stored, "..") || strings.ContainsRune(stored, filepath.Separator) {
		return fmt.Errorf("invalid attachment path %q", path)
	}

	err := os.Remove(filepath.Join(s.root, stored))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Open returns the file behind an attachment path for serving.
func (s *Store) Open(path string) (*os.File, error) {
	stored := strings.TrimPrefix(path, "/files/")
	if stored == "" || strings.Contains(stored, "..") || strings.ContainsRune(stored, filepath.Separator) {
		return nil, fmt.Errorf("invalid attachment path %q", path)
	}
	return os.Open(filepath.Join(s.root, stored))
}
