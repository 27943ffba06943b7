package store

import (
	"context"
	"slices"
	"sync"
)

// Memory is an in-process Store. Blobs are copied in and out.
type Memory struct {
	mu    sync.RWMutex
	blobs map[Key][]byte
	saves int
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{blobs: make(map[Key][]byte)}
}

// Save stores a copy of blob under key.
func (m *Memory) Save(ctx context.Context, key Key, blob []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = slices.Clone(blob)
	m.saves++
	return nil
}

// Load returns a copy of the blob under key, or ErrNotFound.
func (m *Memory) Load(ctx context.Context, key Key) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	blob, ok := m.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(blob), nil
}

// Scan calls fn for every record of the level and layer, in no
// particular order. fn may use the store.
func (m *Memory) Scan(ctx context.Context, level string, layer Layer, fn func(Key, []byte) error) error {
	m.mu.RLock()
	var keys []Key
	for k := range m.blobs {
		if k.Level == level && k.Layer == layer {
			keys = append(keys, k)
		}
	}
	m.mu.RUnlock()

	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		blob, err := m.Load(ctx, k)
		if err != nil {
			continue
		}
		if err := fn(k, blob); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}

// Saves returns how many Save calls succeeded.
func (m *Memory) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
