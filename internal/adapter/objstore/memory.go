package objstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory Store for tests and dry runs. Safe for
// concurrent use.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string]memObject
	puts    map[string]int
}

type memObject struct {
	data        []byte
	contentType string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string]memObject),
		puts:    make(map[string]int),
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", key, ErrNotFound)
	}
	data := make([]byte, len(obj.data))
	copy(data, obj.data)
	return data, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	s.objects[key] = memObject{data: stored, contentType: contentType}
	s.puts[key]++
	return nil
}

func (s *MemoryStore) Head(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok, nil
}

func (s *MemoryStore) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *MemoryStore) Copy(_ context.Context, src, dst string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[src]
	if !ok {
		return fmt.Errorf("copy %s: %w", src, ErrNotFound)
	}
	s.objects[dst] = obj
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// PutCount reports how many times a key was written. Used by tests to
// verify create-if-absent behavior.
func (s *MemoryStore) PutCount(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts[key]
}

// ContentType returns the stored content type for a key.
func (s *MemoryStore) ContentType(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.objects[key].contentType
}
