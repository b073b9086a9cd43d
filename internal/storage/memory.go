// internal/storage/memory.go
package storage

import (
	"context"
	"sync"
)

// Memory is the in-process reference backend. It is what tests run against
// and what a single-process deployment can use instead of Redis or Postgres.
type Memory struct {
	mu     sync.Mutex
	hashes map[string]map[string]string
	values map[string]string
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{
		hashes: make(map[string]map[string]string),
		values: make(map[string]string),
	}
}

func (m *Memory) Lobbies(game string) Hash {
	return &memoryHash{store: m, key: "lobbies:" + game}
}

func (m *Memory) Participants(lobbyID string) Hash {
	return &memoryHash{store: m, key: "participants:" + lobbyID}
}

func (m *Memory) ParticipantMeta(lobbyID, participantID string) Hash {
	return &memoryHash{store: m, key: "meta:" + lobbyID + ":" + participantID}
}

func (m *Memory) Latency(participantID string) Value {
	return &memoryValue{store: m, key: "latency:" + participantID}
}

type memoryHash struct {
	store *Memory
	key   string
}

func (h *memoryHash) Keys(ctx context.Context) ([]string, error) {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	fields := make([]string, 0, len(h.store.hashes[h.key]))
	for field := range h.store.hashes[h.key] {
		fields = append(fields, field)
	}
	return fields, nil
}

func (h *memoryHash) Entries(ctx context.Context) (map[string]string, error) {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	entries := make(map[string]string, len(h.store.hashes[h.key]))
	for field, value := range h.store.hashes[h.key] {
		entries[field] = value
	}
	return entries, nil
}

func (h *memoryHash) Get(ctx context.Context, field string) (string, bool, error) {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	value, ok := h.store.hashes[h.key][field]
	return value, ok, nil
}

func (h *memoryHash) Set(ctx context.Context, field, value string) error {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	if h.store.hashes[h.key] == nil {
		h.store.hashes[h.key] = make(map[string]string)
	}
	h.store.hashes[h.key][field] = value
	return nil
}

func (h *memoryHash) Delete(ctx context.Context, field string) error {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	delete(h.store.hashes[h.key], field)
	return nil
}

func (h *memoryHash) Len(ctx context.Context) (int64, error) {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	return int64(len(h.store.hashes[h.key])), nil
}

func (h *memoryHash) Clear(ctx context.Context) error {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	delete(h.store.hashes, h.key)
	return nil
}

type memoryValue struct {
	store *Memory
	key   string
}

func (v *memoryValue) Get(ctx context.Context) (string, bool, error) {
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	value, ok := v.store.values[v.key]
	return value, ok, nil
}

func (v *memoryValue) Set(ctx context.Context, value string) error {
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	v.store.values[v.key] = value
	return nil
}

func (v *memoryValue) Delete(ctx context.Context) error {
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	delete(v.store.values, v.key)
	return nil
}
