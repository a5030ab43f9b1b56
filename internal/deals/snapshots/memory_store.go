package snapshots

import (
	"context"
	"sync"
	"time"

	"deal_insights_backend/internal/deals/ports"
)

// MemoryStore is a process-local store for tests and single-instance runs.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[ports.SnapshotKey][]ports.Snapshot
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[ports.SnapshotKey][]ports.Snapshot)}
}

func (s *MemoryStore) FindActive(_ context.Context, key ports.SnapshotKey, now time.Time) (*ports.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var newest *ports.Snapshot
	for i := range s.items[key] {
		candidate := s.items[key][i]
		if !candidate.ActiveAt(now) {
			continue
		}
		if newest == nil || candidate.GeneratedAt.After(newest.GeneratedAt) {
			found := candidate
			newest = &found
		}
	}
	return newest, nil
}

func (s *MemoryStore) Save(_ context.Context, snapshot ports.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := snapshot.Key()
	s.items[key] = append(s.items[key], snapshot)
	return nil
}

// Len returns how many snapshots were saved for key, expired ones included.
func (s *MemoryStore) Len(key ports.SnapshotKey) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items[key])
}
