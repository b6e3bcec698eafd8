package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/lxp-platform/fabric/api/internal/storage"
)

var _ storage.ObjectStore = (*ObjectStore)(nil)

// ObjectStore is an in-memory test double for storage.ObjectStore.
type ObjectStore struct {
	mu      sync.Mutex
	Objects map[string][]byte
}

func (m *ObjectStore) Put(ctx context.Context, key string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Objects == nil {
		m.Objects = make(map[string][]byte)
	}
	cp := make([]byte, len(body))
	copy(cp, body)
	m.Objects[key] = cp
	return nil
}

func (m *ObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	body, ok := m.Objects[key]
	if !ok {
		return nil, fmt.Errorf("mock storage: object not found: %s", key)
	}
	return body, nil
}
