package storage

import (
	"context"
	"io"
	"path"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/cyclopcam/logs"
	"google.golang.org/api/iterator"
)

// StorageGCS is a Google Cloud Storage-based blob store
type StorageGCS struct {
	bucketName string
	bucket     *gcs.BucketHandle
	log        logs.Log
}

func NewStorageGCS(log logs.Log, bucketName string) (*StorageGCS, error) {
	ctx := context.Background()
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &StorageGCS{
		bucketName: bucketName,
		bucket:     client.Bucket(bucketName),
		log:        log,
	}, nil
}

// List queries one level of the bucket. GCS has no real folders, but a
// delimiter query reports common prefixes, which we surface as explicit
// directory entries, so callers never need the name-based folder heuristic.
func (s *StorageGCS) List(ctx context.Context, prefix string) ([]Entry, error) {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	it := s.bucket.Objects(ctx, &gcs.Query{
		Prefix:    prefix,
		Delimiter: "/",
	})
	entries := []Entry{}
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		if attrs.Prefix != "" {
			entries = append(entries, Entry{
				Name:  path.Base(strings.TrimSuffix(attrs.Prefix, "/")),
				IsDir: true,
			})
		} else {
			entries = append(entries, Entry{
				Name: path.Base(attrs.Name),
				ID:   attrs.Name,
			})
		}
	}
	return entries, nil
}

func (s *StorageGCS) Download(ctx context.Context, name string) (io.ReadCloser, error) {
	r, err := s.bucket.Object(name).NewReader(ctx)
	if err == gcs.ErrObjectNotExist {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}
