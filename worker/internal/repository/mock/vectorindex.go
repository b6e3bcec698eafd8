package mock

import (
	"context"

	"github.com/lxp-platform/fabric/worker/internal/repository"
)

var _ repository.VectorIndex = (*VectorIndex)(nil)

// VectorIndex is a test double for repository.VectorIndex.
type VectorIndex struct {
	SearchFn func(ctx context.Context, vectorstoreID string, vector []float32, topK int) ([]repository.Evidence, error)
}

func (m *VectorIndex) Search(ctx context.Context, vectorstoreID string, vector []float32, topK int) ([]repository.Evidence, error) {
	if m.SearchFn != nil {
		return m.SearchFn(ctx, vectorstoreID, vector, topK)
	}
	return nil, nil
}
