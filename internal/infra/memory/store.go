// Package memory provides a process-local domain.KVStore. Values are lost
// when the process exits; it backs tests and the "memory" store backend.
package memory

import (
	"bytes"
	"context"
	"sync"

	"github.com/udhar-khata/khata/internal/domain"
)

// Store is a thread-safe in-memory key-value store.
type Store struct {
	mu     sync.RWMutex
	values map[string][]byte
	saves  int
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{values: make(map[string][]byte)}
}

// Load returns a copy of the value stored under key.
func (s *Store) Load(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(v), true, nil
}

// Save stores a copy of value under key.
func (s *Store) Save(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = bytes.Clone(value)
	s.saves++
	return nil
}

// Saves returns how many times Save has been called.
func (s *Store) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

// Close is a no-op; it lets Store stand in wherever a closable backend is
// expected.
func (s *Store) Close() error { return nil }

// Compile-time check: ensure Store implements domain.KVStore.
var _ domain.KVStore = (*Store)(nil)
