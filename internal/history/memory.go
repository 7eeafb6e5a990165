// internal/history/memory.go
package history

import (
	"context"
	"sort"
	"sync"

	"medsearch-service/internal/models"
)

// MemoryStore keeps the ledger in process. Entries are lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []models.Query
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Insert(_ context.Context, q models.Query) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, q)
	return nil
}

func (m *MemoryStore) FindSorted(_ context.Context, limit int) ([]models.Query, error) {
	m.mu.RLock()
	out := make([]models.Query, len(m.entries))
	copy(out, m.entries)
	m.mu.RUnlock()

	// reverse first so that equal timestamps list the later insert first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Name() string { return "memory" }
