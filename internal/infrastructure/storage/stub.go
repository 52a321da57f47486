package storage

import (
	"context"
	"errors"
	"sync"
)

// MemoryObject is an object held by MemoryObjectStorage
type MemoryObject struct {
	Data        []byte
	ContentType string
	Public      bool
}

// MemoryObjectStorage is an in-process ObjectStorage.
// Use it for local development and tests where no S3 endpoint is available.
type MemoryObjectStorage struct {
	// BaseURL is the base URL for public object URLs
	// Defaults to "https://storage.example.com" if not set
	BaseURL string

	mu      sync.RWMutex
	objects map[string]MemoryObject
	puts    int
}

// NewMemoryObjectStorage creates a new MemoryObjectStorage
func NewMemoryObjectStorage() *MemoryObjectStorage {
	return &MemoryObjectStorage{
		BaseURL: "https://storage.example.com",
		objects: make(map[string]MemoryObject),
	}
}

// Ensure MemoryObjectStorage implements ObjectStorage
var _ ObjectStorage = (*MemoryObjectStorage)(nil)

// Upload stores a copy of data, replacing any existing object
func (s *MemoryObjectStorage) Upload(ctx context.Context, storageKey string, data []byte, contentType string, public bool) error {
	if storageKey == "" {
		return errors.New("storage key is required")
	}

	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[storageKey] = MemoryObject{Data: buf, ContentType: contentType, Public: public}
	s.puts++
	return nil
}

// ObjectExists reports whether an object is stored under storageKey
func (s *MemoryObjectStorage) ObjectExists(ctx context.Context, storageKey string) (bool, error) {
	if storageKey == "" {
		return false, errors.New("storage key is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[storageKey]
	return ok, nil
}

// PublicURL returns BaseURL joined with the escaped key
func (s *MemoryObjectStorage) PublicURL(storageKey string) string {
	return s.BaseURL + "/" + EscapeKey(storageKey)
}

// Get returns the object stored under storageKey
func (s *MemoryObjectStorage) Get(storageKey string) (MemoryObject, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[storageKey]
	return obj, ok
}

// Len returns the number of stored objects
func (s *MemoryObjectStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// Puts returns the number of successful uploads
func (s *MemoryObjectStorage) Puts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.puts
}
