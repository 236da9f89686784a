package storage

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"
)

// MemoryBlobStore keeps objects in a map. It backs tests and exercises the
// same key and cap semantics as the MinIO store.
type MemoryBlobStore struct {
	mu       sync.Mutex
	maxBytes int64
	objects  map[string][]byte
}

// NewMemoryBlobStore creates an empty in-memory store with the given cap.
func NewMemoryBlobStore(maxBytes int64) *MemoryBlobStore {
	return &MemoryBlobStore{
		maxBytes: maxBytes,
		objects:  make(map[string][]byte),
	}
}

func (s *MemoryBlobStore) Put(ctx context.Context, originalName string, r io.Reader, size int64, contentType string) (string, error) {
	if size > s.maxBytes {
		return "", ErrTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > s.maxBytes {
		return "", ErrTooLarge
	}

	key := ObjectKey(originalName, time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return key, nil
}

func (s *MemoryBlobStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemoryBlobStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// Len reports how many objects the store holds. Test helper.
func (s *MemoryBlobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}
