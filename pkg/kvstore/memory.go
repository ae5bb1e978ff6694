package kvstore

import (
	cmap "github.com/orcaman/concurrent-map/v2"
)

// MemoryStore is a process-local Store, used for tests and the "memory" backend.
type MemoryStore struct {
	values cmap.ConcurrentMap[string, string]
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: cmap.New[string]()}
}

func (m *MemoryStore) Get(key string) (string, error) {
	v, ok := m.values.Get(key)
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryStore) Set(key, value string) error {
	m.values.Set(key, value)
	return nil
}

func (m *MemoryStore) Delete(key string) error {
	m.values.Remove(key)
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
