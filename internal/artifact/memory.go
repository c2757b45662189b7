package artifact

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
)

// MemoryStore is the default, ephemeral Store implementation. It keeps every
// blob in memory, which fits test runs and small artifact sets; larger runs
// use the directory-backed store instead.
type MemoryStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

// NewMemoryStore creates an empty in-memory artifact store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// Publish stores the blob bytes under the key, rejecting duplicates.
func (s *MemoryStore) Publish(ctx context.Context, key string, src io.Reader) error {
	data, err := io.ReadAll(src)
	if err != nil {
		return fmt.Errorf("reading artifact %q: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.blobs[key]; exists {
		return fmt.Errorf("artifact %q already published; the store is write-once", key)
	}
	s.blobs[key] = data
	return nil
}

// Open returns a reader over the stored blob bytes.
func (s *MemoryStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	data, ok := s.blobs[key]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("artifact %q not found", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Keys returns every published key, sorted.
func (s *MemoryStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.blobs))
	for k := range s.blobs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
