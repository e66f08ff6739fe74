package storage

import (
	"context"
	"errors"
	"io"
)

// Storage is an abstraction of a blob store (eg GCS, Supabase Storage, or a local directory)
type Storage interface {
	// List returns the entries directly under prefix (one level, no recursion).
	// Use "" for the root of the store.
	List(ctx context.Context, prefix string) ([]Entry, error)

	// When finished, you must close the ReadCloser
	Download(ctx context.Context, name string) (io.ReadCloser, error)
}

// Entry is one item in a bucket listing.
type Entry struct {
	Name  string // Base name of the entry, without any leading path
	ID    string // Backend-assigned object ID. Empty if the backend has none, or if this is a folder
	IsDir bool   // True if this entry is a folder
}

var ErrNotFound = errors.New("object not found")

// IsFolder reports whether the entry should be treated as a folder.
// Backends with explicit directory knowledge (filesystem, GCS delimiter
// listings) set IsDir natively; the Supabase backend sets it from a
// name/ID heuristic at listing time.
func (e Entry) IsFolder() bool {
	return e.IsDir
}

// DownloadBytes reads the entire object into memory.
func DownloadBytes(ctx context.Context, s Storage, name string) ([]byte, error) {
	r, err := s.Download(ctx, name)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
