// Package thumbstore holds rendered thumbnail images, grouped per session so
// a whole session's images can be released at once.
package thumbstore

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by Get for unknown sessions or keys.
var ErrNotFound = errors.New("thumbstore: not found")

// Store saves and releases thumbnail blobs.
type Store interface {
	Put(ctx context.Context, sessionID, key string, data []byte) error
	Get(ctx context.Context, sessionID, key string) ([]byte, error)
	Release(ctx context.Context, sessionID string) error
}

// Memory is a process-local Store.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string]map[string][]byte
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{blobs: map[string]map[string][]byte{}}
}

func (m *Memory) Put(_ context.Context, sessionID, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.blobs[sessionID]
	if !ok {
		sess = map[string][]byte{}
		m.blobs[sessionID] = sess
	}
	sess[key] = data
	return nil
}

func (m *Memory) Get(_ context.Context, sessionID, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.blobs[sessionID][key]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

func (m *Memory) Release(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, sessionID)
	return nil
}

// Sessions returns how many sessions currently hold blobs.
func (m *Memory) Sessions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}
