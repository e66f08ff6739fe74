package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cyclopcam/logs"
)

// StorageFS is a filesystem-based blob store, used for local captures and tests
type StorageFS struct {
	Root string
	log  logs.Log
}

func NewStorageFS(log logs.Log, root string) (*StorageFS, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	st, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("Failed to open storage root %v (relative path %v): %w", absRoot, root, err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("Storage root %v is not a directory", absRoot)
	}
	return &StorageFS{
		Root: absRoot,
		log:  log,
	}, nil
}

func (fs *StorageFS) List(ctx context.Context, prefix string) ([]Entry, error) {
	if err := validateName(prefix); err != nil {
		return nil, err
	}
	items, err := os.ReadDir(filepath.Join(fs.Root, filepath.FromSlash(prefix)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		entries = append(entries, Entry{
			Name:  item.Name(),
			IsDir: item.IsDir(),
		})
	}
	return entries, nil
}

func (fs *StorageFS) Download(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	file, err := os.Open(filepath.Join(fs.Root, filepath.FromSlash(name)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return file, nil
}

func validateName(name string) error {
	if strings.Contains(name, "..") {
		return fmt.Errorf("Invalid object name %v", name)
	}
	return nil
}
