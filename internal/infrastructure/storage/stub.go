package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	catalogapp "github.com/onlinekart/backend/internal/application/catalog"
)

// StubImageStore is an in-memory implementation of ImageStore.
// Use this for development and tests until a real storage backend
// is configured.
type StubImageStore struct {
	// BaseURL is the base URL for generated object URLs.
	// Defaults to "https://storage.example.com" if not set.
	BaseURL string

	mu      sync.Mutex
	objects map[string][]byte
}

// NewStubImageStore creates a new StubImageStore
func NewStubImageStore() *StubImageStore {
	return &StubImageStore{
		BaseURL: "https://storage.example.com",
		objects: make(map[string][]byte),
	}
}

// Ensure StubImageStore implements ImageStore
var _ catalogapp.ImageStore = (*StubImageStore)(nil)

// Put stores the object in memory
func (s *StubImageStore) Put(_ context.Context, key string, body io.Reader, _ string) error {
	if key == "" {
		return errors.New("storage key is required")
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

// Delete removes the object; deleting a missing key is not an error
func (s *StubImageStore) Delete(_ context.Context, key string) error {
	if key == "" {
		return errors.New("storage key is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// URL returns the stub URL for a stored object key
func (s *StubImageStore) URL(key string) string {
	if key == "" {
		return ""
	}
	return s.BaseURL + "/" + strings.TrimPrefix(key, "/")
}

// Get returns the stored object data, for test assertions
func (s *StubImageStore) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	return data, ok
}

// Len returns the number of stored objects
func (s *StubImageStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}
