// Package fetch stages scene photographs from a blob store (or a local
// directory) into a flat local folder, ready for the reconstruction model.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cyclopcam/logs"
	"github.com/mentralabs/scenecloud/pkg/storage"
)

// Extensions we accept as scene photographs
var imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp"}

var (
	ErrEmptyListing = errors.New("no files found in bucket path")
	ErrNoImages     = errors.New("no images found")
)

// IsImageFilename reports whether name has one of the accepted image extensions
func IsImageFilename(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// Fetch lists prefix inside the store, descends exactly one level into
// sub-folders, and downloads every image into destDir. Images found inside a
// sub-folder are flattened into destDir as "<folder>_<file>", so two folders
// can safely contain files with the same name.
// Returns the local paths of the downloaded images, in listing order.
func Fetch(ctx context.Context, log logs.Log, store storage.Storage, prefix, destDir string) ([]string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, err
	}

	entries, err := store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("Failed to list '%v': %w", prefix, err)
	}
	if len(entries) == 0 {
		return nil, ErrEmptyListing
	}

	paths := []string{}
	for _, entry := range entries {
		if entry.IsFolder() {
			folderPath := joinKey(prefix, entry.Name)
			log.Infof("Found folder %v", entry.Name)
			inner, err := store.List(ctx, folderPath)
			if err != nil {
				return nil, fmt.Errorf("Failed to list folder '%v': %w", folderPath, err)
			}
			log.Infof("Found %v items in %v", len(inner), entry.Name)
			for _, innerEntry := range inner {
				if !IsImageFilename(innerEntry.Name) {
					continue
				}
				localPath := filepath.Join(destDir, entry.Name+"_"+innerEntry.Name)
				if err := downloadTo(ctx, store, joinKey(folderPath, innerEntry.Name), localPath); err != nil {
					return nil, err
				}
				log.Infof("Downloaded %v/%v", entry.Name, innerEntry.Name)
				paths = append(paths, localPath)
			}
		} else if IsImageFilename(entry.Name) {
			localPath := filepath.Join(destDir, entry.Name)
			if err := downloadTo(ctx, store, joinKey(prefix, entry.Name), localPath); err != nil {
				return nil, err
			}
			log.Infof("Downloaded %v", entry.Name)
			paths = append(paths, localPath)
		}
	}
	if len(paths) == 0 {
		return nil, ErrNoImages
	}
	log.Infof("Downloaded %v images into %v", len(paths), destDir)
	return paths, nil
}

// LocalImages returns the image files directly inside dir, sorted by name.
// A missing directory is an error. An existing directory with no images
// returns an empty slice, and the caller decides whether that is fatal.
func LocalImages(dir string) ([]string, error) {
	items, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("Image directory not found: %v: %w", dir, err)
	}
	paths := []string{}
	for _, item := range items {
		if item.IsDir() || !IsImageFilename(item.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, item.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

func downloadTo(ctx context.Context, store storage.Storage, key, localPath string) error {
	src, err := store.Download(ctx, key)
	if err != nil {
		return fmt.Errorf("Failed to download '%v': %w", key, err)
	}
	defer src.Close()
	dst, err := os.Create(localPath)
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, src)
	errClose := dst.Close()
	if err != nil {
		return fmt.Errorf("Failed to download '%v': %w", key, err)
	}
	return errClose
}

func joinKey(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
