package storage

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/cyclopcam/logs"
	"github.com/mentralabs/scenecloud/pkg/requests"
)

// StorageSupabase talks to the Supabase Storage REST API.
// The list endpoint returns objects and folders intermixed, with no explicit
// directory marker, so folder detection relies on a name/ID heuristic.
type StorageSupabase struct {
	baseURL    string // eg https://myproject.supabase.co
	bucketName string
	serviceKey string
	log        logs.Log
}

func NewStorageSupabase(log logs.Log, baseURL, bucketName, serviceKey string) *StorageSupabase {
	return &StorageSupabase{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		bucketName: bucketName,
		serviceKey: serviceKey,
		log:        log,
	}
}

type supabaseListRequest struct {
	Prefix string `json:"prefix"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

type supabaseObject struct {
	Name string  `json:"name"`
	ID   *string `json:"id"` // null for folder placeholders
}

func (s *StorageSupabase) List(ctx context.Context, prefix string) ([]Entry, error) {
	listURL := s.baseURL + "/storage/v1/object/list/" + url.PathEscape(s.bucketName)
	body := supabaseListRequest{
		Prefix: prefix,
		Limit:  1000,
	}
	objects, err := requests.RequestJSON[[]supabaseObject](ctx, http.MethodPost, listURL, &body, s.headers())
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(*objects))
	for _, obj := range *objects {
		e := Entry{
			Name:  obj.Name,
			IsDir: supabaseIsFolder(obj),
		}
		if obj.ID != nil {
			e.ID = *obj.ID
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// supabaseIsFolder is the folder heuristic of the capture scripts: a folder
// placeholder comes back with a null ID, and folder names carry no extension.
// Either signal alone marks a folder.
func supabaseIsFolder(obj supabaseObject) bool {
	return obj.ID == nil || !strings.Contains(obj.Name, ".")
}

func (s *StorageSupabase) Download(ctx context.Context, name string) (io.ReadCloser, error) {
	objectURL := s.baseURL + "/storage/v1/object/" + url.PathEscape(s.bucketName) + "/" + escapePath(name)
	return requests.RequestRaw(ctx, http.MethodGet, objectURL, s.headers())
}

func (s *StorageSupabase) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + s.serviceKey,
		"apikey":        s.serviceKey,
	}
}

// escapePath escapes each path segment, but keeps the slashes
func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i := range parts {
		parts[i] = url.PathEscape(parts[i])
	}
	return strings.Join(parts, "/")
}
