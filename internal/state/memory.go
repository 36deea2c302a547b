package state

import (
	"context"
	"sync"

	"github.com/org/svnportal/pkg/models"
)

// MemoryStore is an in-process Store for tests and dev mode.
type MemoryStore struct {
	mu   sync.Mutex
	snap *models.Snapshot
}

// NewMemoryStore returns a MemoryStore holding an empty snapshot.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snap: &models.Snapshot{}}
}

func (m *MemoryStore) ReadSnapshot(ctx context.Context) (*models.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap.Clone(), nil
}

func (m *MemoryStore) WriteSnapshot(ctx context.Context, snap *models.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if snap.Version != m.snap.Version {
		return ErrSnapshotConflict
	}
	snap.Version++
	m.snap = snap.Clone()
	return nil
}

func (m *MemoryStore) Close() {}
