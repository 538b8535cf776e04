package cache

import (
	"context"
	"sync"

	"github.com/queueease/booking-service/internal/domain"
)

// MemorySnapshotStore хранит снимки очередей в памяти процесса
type MemorySnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]domain.QueueStatus
}

// NewMemorySnapshotStore создает пустое хранилище
func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{snapshots: make(map[string]domain.QueueStatus)}
}

func (s *MemorySnapshotStore) Get(_ context.Context, serviceID string) (*domain.QueueStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, ok := s.snapshots[serviceID]
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	return &snapshot, nil
}

func (s *MemorySnapshotStore) Save(_ context.Context, status *domain.QueueStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots[status.ServiceID] = *status
	return nil
}
