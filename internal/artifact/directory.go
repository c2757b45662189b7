package artifact

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// DirectoryStore persists blobs as files under a root directory, one file per
// key. Keys map to relative paths, so a blob published by "build-linux" as
// "browser.tar.gz" lands at <root>/build-linux/browser.tar.gz.
type DirectoryStore struct {
	root string
	mu   sync.Mutex
}

// NewDirectoryStore creates a store rooted at dir, creating it if needed.
func NewDirectoryStore(dir string) (*DirectoryStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating artifact directory %s: %w", dir, err)
	}
	return &DirectoryStore{root: dir}, nil
}

func (s *DirectoryStore) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid artifact key %q", key)
	}
	return filepath.Join(s.root, clean), nil
}

// Publish writes the blob to its file, rejecting duplicates.
func (s *DirectoryStore) Publish(ctx context.Context, key string, src io.Reader) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("artifact %q already published; the store is write-once", key)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating artifact subdirectory for %q: %w", key, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating artifact file for %q: %w", key, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, src); err != nil {
		os.Remove(path)
		return fmt.Errorf("writing artifact %q: %w", key, err)
	}
	return nil
}

// Open returns the blob's file for reading.
func (s *DirectoryStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("artifact %q not found", key)
		}
		return nil, fmt.Errorf("opening artifact %q: %w", key, err)
	}
	return f, nil
}

// Keys walks the root and returns every published key, sorted.
func (s *DirectoryStore) Keys() []string {
	var keys []string
	filepath.Walk(s.root, func(p string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(s.root, p)
		if relErr != nil {
			return nil
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	sort.Strings(keys)
	return keys
}
