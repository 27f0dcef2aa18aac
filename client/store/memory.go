package store

import (
	"context"
	"sync"
)

// MemoryStore is an in-process KeyValueStore and SecretStore.
type MemoryStore struct {
	mu      sync.RWMutex
	values  map[string][]byte
	secrets map[string]Secret
}

var (
	_ KeyValueStore = (*MemoryStore)(nil)
	_ SecretStore   = (*MemoryStore)(nil)
)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values:  make(map[string][]byte),
		secrets: make(map[string]Secret),
	}
}

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	return nil
}

func (m *MemoryStore) GetSecret(ctx context.Context, service string) (*Secret, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.secrets[service]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *MemoryStore) SetSecret(ctx context.Context, service string, secret Secret) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.secrets[service] = secret
	return nil
}

func (m *MemoryStore) DeleteSecret(ctx context.Context, service string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.secrets, service)
	return nil
}
