package mock

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/lxp-platform/fabric/api/internal/domain"
	"github.com/lxp-platform/fabric/api/internal/repository"
)

var _ repository.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is a test double for repository.DocumentStore.
type DocumentStore struct {
	mu sync.Mutex

	CreateThreadFn func(ctx context.Context, userID string, function domain.Function) (string, error)

	Threads         []string
	LatestByUser    map[string]string
}

func (m *DocumentStore) CreateThread(ctx context.Context, userID string, function domain.Function) (string, error) {
	if m.CreateThreadFn != nil {
		return m.CreateThreadFn(ctx, userID, function)
	}
	threadID := uuid.New().String()
	m.mu.Lock()
	m.Threads = append(m.Threads, threadID)
	m.mu.Unlock()
	return threadID, nil
}

func (m *DocumentStore) LatestThreadForUser(ctx context.Context, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LatestByUser == nil {
		return "", nil
	}
	return m.LatestByUser[userID], nil
}

func (m *DocumentStore) SetLatestThreadForUser(ctx context.Context, userID, threadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LatestByUser == nil {
		m.LatestByUser = make(map[string]string)
	}
	m.LatestByUser[userID] = threadID
	return nil
}
