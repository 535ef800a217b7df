// Package memory provides an in-process slot store, used by default and in tests.
package memory

import (
	"context"
	"encoding/json"
	"sync"

	"citas/internal/domain/repository"
	"citas/internal/errors"
)

// SlotStoreProvider keeps one namespace per client id.
type SlotStoreProvider struct {
	mu      sync.RWMutex
	clients map[string]*SlotStore
}

// NewSlotStoreProvider returns an empty provider.
func NewSlotStoreProvider() *SlotStoreProvider {
	return &SlotStoreProvider{
		clients: make(map[string]*SlotStore),
	}
}

// ForClient returns the store for clientID, creating it on first use.
func (p *SlotStoreProvider) ForClient(clientID string) repository.SlotStore {
	p.mu.RLock()
	store, ok := p.clients[clientID]
	p.mu.RUnlock()
	if ok {
		return store
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if store, ok = p.clients[clientID]; ok {
		return store
	}
	store = NewSlotStore()
	p.clients[clientID] = store

	return store
}

// SlotStore holds JSON-encoded values by slot key. Values are encoded on write
// so callers never share memory with the store.
type SlotStore struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

// NewSlotStore returns an empty store.
func NewSlotStore() *SlotStore {
	return &SlotStore{
		slots: make(map[string][]byte),
	}
}

// Get decodes the value stored under key into dst. A value that cannot be decoded
// is treated as absent and removed.
func (s *SlotStore) Get(_ context.Context, key string, dst any) (bool, error) {
	s.mu.RLock()
	raw, ok := s.slots[key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		s.mu.Lock()
		delete(s.slots, key)
		s.mu.Unlock()

		return false, nil
	}

	return true, nil
}

// Set replaces the value stored under key.
func (s *SlotStore) Set(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "encode slot %s", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[key] = raw

	return nil
}

// Remove deletes the value stored under key.
func (s *SlotStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, key)

	return nil
}
