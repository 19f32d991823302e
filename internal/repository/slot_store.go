package repository

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrSlotNotFound = errors.New("cart slot not found")
)

// SlotName is the storage slot every serialized cart lives under. Keys are
// scoped per shopper session as "<SlotName>:<session id>".
const SlotName = "pipeDrillCart"

// SlotKey returns the storage key for a session
func SlotKey(sessionID string) string {
	return SlotName + ":" + sessionID
}

// SlotStore defines a durable key-value slot holding raw serialized carts
type SlotStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

type memorySlotStore struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

// NewMemorySlotStore creates a process-local SlotStore, used for development and tests
func NewMemorySlotStore() SlotStore {
	return &memorySlotStore{slots: make(map[string][]byte)}
}

func (s *memorySlotStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.slots[key]
	if !ok {
		return nil, ErrSlotNotFound
	}
	return append([]byte(nil), data...), nil
}

func (s *memorySlotStore) Put(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.slots[key] = append([]byte(nil), data...)
	return nil
}

func (s *memorySlotStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.slots, key)
	return nil
}
