// Package txcache memoizes the last-seen status record per transaction id.
//
// The cache itself has no opinion on which statuses are authoritative; the
// poller decides when a cached entry may short-circuit a network query.
package txcache

import (
	"context"
	"sync"
)

// Cache stores transaction records keyed by transaction identifier.
type Cache interface {
	Get(ctx context.Context, txID string) (map[string]any, bool)
	Put(ctx context.Context, txID string, rec map[string]any)
}

// Memory is a process-local Cache. Entries are never evicted.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]map[string]any
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]map[string]any)}
}

func (m *Memory) Get(_ context.Context, txID string) (map[string]any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.entries[txID]
	if !ok {
		return nil, false
	}
	return clone(rec), true
}

func (m *Memory) Put(_ context.Context, txID string, rec map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[txID] = clone(rec)
}

// Len reports the number of cached transactions.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// clone is shallow: nested maps from the server are shared but never
// mutated by this module.
func clone(rec map[string]any) map[string]any {
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}
