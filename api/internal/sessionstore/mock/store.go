package mock

import (
	"context"
	"sync"

	"github.com/lxp-platform/fabric/api/internal/domain"
	"github.com/lxp-platform/fabric/api/internal/sessionstore"
)

var _ sessionstore.Store = (*Store)(nil)

// Store is a test double for sessionstore.Store.
type Store struct {
	mu sync.Mutex

	GetFn func(ctx context.Context, sessionID string) (*domain.SessionState, error)

	States map[string]*domain.SessionState
}

func (m *Store) Get(ctx context.Context, sessionID string) (*domain.SessionState, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, sessionID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.States[sessionID], nil
}
