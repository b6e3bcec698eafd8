package mock

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/lxp-platform/fabric/api/internal/repository"
)

var _ repository.VectorstoreStore = (*VectorstoreStore)(nil)
var _ repository.VectorIndex = (*VectorIndex)(nil)

// VectorstoreStore is a test double for repository.VectorstoreStore.
type VectorstoreStore struct {
	mu sync.Mutex

	Vectorstores map[string]bool
	Files        map[string]repository.FileRecord // keyed by file_id
}

func (m *VectorstoreStore) init() {
	if m.Vectorstores == nil {
		m.Vectorstores = make(map[string]bool)
	}
	if m.Files == nil {
		m.Files = make(map[string]repository.FileRecord)
	}
}

func (m *VectorstoreStore) CreateVectorstore(ctx context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	id := uuid.New().String()
	m.Vectorstores[id] = true
	return id, nil
}

func (m *VectorstoreStore) VectorstoreExists(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	return m.Vectorstores[id], nil
}

func (m *VectorstoreStore) FindFileByHash(ctx context.Context, hash string) (*repository.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	for _, f := range m.Files {
		if f.FileHash == hash {
			rec := f
			return &rec, nil
		}
	}
	return nil, nil
}

func (m *VectorstoreStore) DeleteFile(ctx context.Context, vectorstoreID, fileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	delete(m.Files, fileID)
	return nil
}

func (m *VectorstoreStore) AddFile(ctx context.Context, file repository.FileRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	m.Files[file.FileID] = file
	return nil
}

func (m *VectorstoreStore) ListFiles(ctx context.Context, vectorstoreID string) ([]repository.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	var out []repository.FileRecord
	for _, f := range m.Files {
		if f.VectorstoreID == vectorstoreID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *VectorstoreStore) FileObjectKey(ctx context.Context, fileID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	return m.Files[fileID].ObjectKey, nil
}

// VectorIndex is a test double for repository.VectorIndex.
type VectorIndex struct {
	mu sync.Mutex

	Embeddings []repository.Embedding
}

func (m *VectorIndex) Insert(ctx context.Context, e repository.Embedding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Embeddings = append(m.Embeddings, e)
	return nil
}

func (m *VectorIndex) DeleteByFile(ctx context.Context, fileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.Embeddings[:0]
	for _, e := range m.Embeddings {
		if e.FileID != fileID {
			kept = append(kept, e)
		}
	}
	m.Embeddings = kept
	return nil
}
