package blobstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FSStore is a filesystem-backed Store. bucket maps to a subdirectory
// under root and key to a file within it; the file holds the pages of text
// separated by form feed characters (the convention the upstream PDF
// extractor uses). Intended for local development and tests; a deployment
// fronting a real object store supplies its own Store implementation.
type FSStore struct {
	root string
}

// NewFSStore creates a Store rooted at dir.
func NewFSStore(dir string) *FSStore {
	return &FSStore{root: dir}
}

func (s *FSStore) path(bucket, key string) string {
	return filepath.Join(s.root, filepath.Clean("/"+bucket), filepath.Clean("/"+key))
}

// DownloadPages reads the blob at bucket/key and splits it into pages on
// the form-feed character.
func (s *FSStore) DownloadPages(ctx context.Context, bucket, key string) ([]string, error) {
	raw, err := os.ReadFile(s.path(bucket, key))
	if err != nil {
		return nil, fmt.Errorf("read blob %s/%s: %w", bucket, key, err)
	}
	pages := strings.Split(string(raw), "\f")
	return pages, nil
}

// Delete removes the blob file.
func (s *FSStore) Delete(ctx context.Context, bucket, key string) error {
	if err := os.Remove(s.path(bucket, key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob %s/%s: %w", bucket, key, err)
	}
	return nil
}

// ListKeys returns every blob key under bucket, sorted, for startup
// diagnostics and manual requeue tooling.
func (s *FSStore) ListKeys(bucket string) ([]string, error) {
	dir := filepath.Join(s.root, filepath.Clean("/"+bucket))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list blobs in %s: %w", bucket, err)
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			keys = append(keys, e.Name())
		}
	}
	sort.Strings(keys)
	return keys, nil
}
