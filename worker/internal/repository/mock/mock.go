package mock

import (
	"context"
	"sync"

	"github.com/lxp-platform/fabric/worker/internal/repository"
)

var _ repository.DedupStore = (*DedupStore)(nil)

// DedupStore is a test double for repository.DedupStore.
type DedupStore struct {
	mu sync.Mutex

	AcquireLockFn func(ctx context.Context, jobID string) (bool, error)
	ReleaseLockFn func(ctx context.Context, jobID string) error

	AcquireCalls []string
	ReleaseCalls []string
}

func (m *DedupStore) AcquireLock(ctx context.Context, jobID string) (bool, error) {
	m.mu.Lock()
	m.AcquireCalls = append(m.AcquireCalls, jobID)
	m.mu.Unlock()
	if m.AcquireLockFn != nil {
		return m.AcquireLockFn(ctx, jobID)
	}
	return true, nil // default: lock acquired
}

func (m *DedupStore) ReleaseLock(ctx context.Context, jobID string) error {
	m.mu.Lock()
	m.ReleaseCalls = append(m.ReleaseCalls, jobID)
	m.mu.Unlock()
	if m.ReleaseLockFn != nil {
		return m.ReleaseLockFn(ctx, jobID)
	}
	return nil
}
