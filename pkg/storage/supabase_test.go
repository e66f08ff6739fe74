package storage

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

func TestStorageSupabaseList(t *testing.T) {
	id := "7c3e"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)
		require.Equal(t, "/storage/v1/object/list/scenes", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.Equal(t, "test-key", r.Header.Get("apikey"))

		var body supabaseListRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "class/bag", body.Prefix)

		json.NewEncoder(w).Encode([]supabaseObject{
			{Name: "front.jpg", ID: &id},
			{Name: "ryan", ID: nil},
		})
	}))
	defer server.Close()

	s := NewStorageSupabase(logs.NewTestingLog(t), server.URL, "scenes", "test-key")
	entries, err := s.List(context.Background(), "class/bag")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "front.jpg", entries[0].Name)
	require.Equal(t, id, entries[0].ID)
	require.False(t, entries[0].IsFolder())
	// Folder placeholder: null ID, no dot
	require.Equal(t, "", entries[1].ID)
	require.True(t, entries[1].IsFolder())
}

func TestSupabaseFolderHeuristic(t *testing.T) {
	id := "7c3e"
	// A null ID alone marks a folder, even when the name has a dot
	require.True(t, supabaseIsFolder(supabaseObject{Name: "archive.old", ID: nil}))
	// A dotless name alone marks a folder, even with an ID
	require.True(t, supabaseIsFolder(supabaseObject{Name: "photos", ID: &id}))
	require.True(t, supabaseIsFolder(supabaseObject{Name: "photos", ID: nil}))
	// Only a dotted name with an ID is a file
	require.False(t, supabaseIsFolder(supabaseObject{Name: "front.jpg", ID: &id}))
}

func TestStorageSupabaseDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "GET", r.Method)
		require.Equal(t, "/storage/v1/object/scenes/class/bag/front.jpg", r.URL.Path)
		w.Write([]byte("jpeg-bytes"))
	}))
	defer server.Close()

	s := NewStorageSupabase(logs.NewTestingLog(t), server.URL, "scenes", "test-key")
	r, err := s.Download(context.Background(), "class/bag/front.jpg")
	require.NoError(t, err)
	body, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.Equal(t, []byte("jpeg-bytes"), body)
}

func TestStorageSupabaseErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	s := NewStorageSupabase(logs.NewTestingLog(t), server.URL, "scenes", "test-key")
	_, err := s.List(context.Background(), "nope")
	require.Error(t, err)
	_, err = s.Download(context.Background(), "nope.jpg")
	require.Error(t, err)
}
