package repositories

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"storefront/internal/errs"
)

// MemoryKeyValueStore is an in-memory implementation of KeyValueStore.
type MemoryKeyValueStore struct {
	entries map[string]string
	mu      sync.RWMutex
}

// NewMemoryKeyValueStore creates an empty MemoryKeyValueStore.
func NewMemoryKeyValueStore() *MemoryKeyValueStore {
	return &MemoryKeyValueStore{
		entries: make(map[string]string),
	}
}

// Get returns the value stored under key.
func (s *MemoryKeyValueStore) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.entries[key]
	if !ok {
		return "", fmt.Errorf("key %s: %w", key, errs.ErrNotFound)
	}
	return value, nil
}

// Set stores value under key.
func (s *MemoryKeyValueStore) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = value
	return nil
}

// SetIfAbsent stores value under key unless the key already exists.
func (s *MemoryKeyValueStore) SetIfAbsent(ctx context.Context, key, value string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; ok {
		return false, nil
	}
	s.entries[key] = value
	return true, nil
}

// Delete removes key.
func (s *MemoryKeyValueStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

// Scan returns all entries under prefix, sorted by key.
func (s *MemoryKeyValueStore) Scan(ctx context.Context, prefix string) ([]KeyValue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]KeyValue, 0)
	for k, v := range s.entries {
		if strings.HasPrefix(k, prefix) {
			out = append(out, KeyValue{Key: k, Value: v})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
