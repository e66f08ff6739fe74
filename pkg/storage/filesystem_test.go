package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

func TestStorageFS(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "class/bag/ryan"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "class/bag/front.jpg"), []byte("front"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "class/bag/ryan/a.jpg"), []byte("aaa"), 0644))

	fs, err := NewStorageFS(logs.NewTestingLog(t), root)
	require.NoError(t, err)

	entries, err := fs.List(context.Background(), "class/bag")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	byName := map[string]Entry{}
	for _, e := range entries {
		byName[e.Name] = e
	}
	require.True(t, byName["ryan"].IsDir)
	require.False(t, byName["front.jpg"].IsDir)

	r, err := fs.Download(context.Background(), "class/bag/ryan/a.jpg")
	require.NoError(t, err)
	body, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.Equal(t, []byte("aaa"), body)
}

func TestStorageFSNotFound(t *testing.T) {
	fs, err := NewStorageFS(logs.NewTestingLog(t), t.TempDir())
	require.NoError(t, err)

	_, err = fs.List(context.Background(), "no/such/prefix")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = fs.Download(context.Background(), "no-such-file.jpg")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStorageFSRejectsEscapes(t *testing.T) {
	fs, err := NewStorageFS(logs.NewTestingLog(t), t.TempDir())
	require.NoError(t, err)

	_, err = fs.Download(context.Background(), "../secrets")
	require.Error(t, err)
	_, err = fs.List(context.Background(), "a/../../b")
	require.Error(t, err)
}

func TestStorageFSMissingRoot(t *testing.T) {
	_, err := NewStorageFS(logs.NewTestingLog(t), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}
