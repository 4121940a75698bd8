// Package cache provides the ephemeral, tenant-scoped session-state mirror.
// The cache is advisory only and never treated as a source of truth; a cache
// failure degrades reads to the stores, it never fails an operation.
package cache

import (
	"context"
	"sync"
)

// Cache mirrors session state keyed by conversation id.
type Cache interface {
	GetSessionData(ctx context.Context, conversationID string) (map[string]string, error)
	SaveSessionData(ctx context.Context, conversationID string, data map[string]string) error
}

// Memory is a process-local Cache used in tests and when Redis is not
// configured.
type Memory struct {
	mu   sync.RWMutex
	data map[string]map[string]string
}

// NewMemory creates an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]map[string]string)}
}

func (m *Memory) GetSessionData(_ context.Context, conversationID string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored, ok := m.data[conversationID]
	if !ok {
		return nil, nil
	}
	out := make(map[string]string, len(stored))
	for k, v := range stored {
		out[k] = v
	}
	return out, nil
}

func (m *Memory) SaveSessionData(_ context.Context, conversationID string, data map[string]string) error {
	copied := make(map[string]string, len(data))
	for k, v := range data {
		copied[k] = v
	}

	m.mu.Lock()
	m.data[conversationID] = copied
	m.mu.Unlock()
	return nil
}
