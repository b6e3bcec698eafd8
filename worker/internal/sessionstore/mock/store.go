package mock

import (
	"context"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/lxp-platform/fabric/worker/internal/domain"
	"github.com/lxp-platform/fabric/worker/internal/sessionstore"
)

var _ sessionstore.Store = (*Store)(nil)

// Store is an in-memory test double for sessionstore.Store.
type Store struct {
	mu     sync.Mutex
	States map[string]*domain.SessionState
}

func (m *Store) Get(ctx context.Context, sessionID string) (*domain.SessionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.States == nil {
		return nil, nil
	}
	return m.States[sessionID], nil
}

func (m *Store) Put(ctx context.Context, state *domain.SessionState, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.States == nil {
		m.States = map[string]*domain.SessionState{}
	}
	m.States[state.SessionID] = state
	return nil
}

func (m *Store) Update(ctx context.Context, sessionID string, ttl time.Duration, mutate func(*domain.SessionState) error) (*domain.SessionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.States == nil {
		m.States = map[string]*domain.SessionState{}
	}
	state, ok := m.States[sessionID]
	if !ok {
		state = &domain.SessionState{SessionID: sessionID, CreatedAt: time.Now()}
	}
	if err := mutate(state); err != nil {
		return nil, err
	}
	state.Version++
	state.LastActivity = time.Now()
	m.States[sessionID] = state
	return state, nil
}

func (m *Store) Publish(ctx context.Context, sessionID string, payload any) error { return nil }

func (m *Store) Subscribe(ctx context.Context, sessionID string) *goredis.PubSub { return nil }
