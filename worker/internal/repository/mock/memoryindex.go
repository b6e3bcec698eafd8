package mock

import (
	"context"
	"sync"

	"github.com/lxp-platform/fabric/worker/internal/repository"
)

var _ repository.MemoryIndex = (*MemoryIndex)(nil)

// MemoryIndex is an in-memory test double for repository.MemoryIndex.
type MemoryIndex struct {
	mu      sync.Mutex
	Entries []repository.MemoryHit

	SearchFn func(ctx context.Context, userID string, vector []float32, topK int, threshold float64) ([]repository.MemoryHit, error)
}

func (m *MemoryIndex) Upsert(ctx context.Context, userID, role, content string, vector []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, repository.MemoryHit{Role: role, Content: content, Score: 1})
	return nil
}

func (m *MemoryIndex) Search(ctx context.Context, userID string, vector []float32, topK int, threshold float64) ([]repository.MemoryHit, error) {
	if m.SearchFn != nil {
		return m.SearchFn(ctx, userID, vector, topK, threshold)
	}
	return nil, nil
}
