package docstore

import (
	"context"
	"fmt"
	"sync"
)

// InMemory is a dev-only fallback used when no document store is configured.
type InMemory struct {
	mu   sync.RWMutex
	docs map[string]string
}

// NewInMemory constructs an empty in-memory document store.
func NewInMemory() *InMemory {
	return &InMemory{docs: make(map[string]string)}
}

// Put stores a payload under id.
func (s *InMemory) Put(ctx context.Context, id, data string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[id] = data
	return nil
}

// Get returns the payload stored under id.
func (s *InMemory) Get(ctx context.Context, id string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.docs[id]
	if !ok {
		return "", fmt.Errorf("docstore get: unknown id %q", id)
	}
	return data, nil
}
