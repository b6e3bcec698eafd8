package repository

import "context"

// Evidence is one retrieved chunk returned by a similarity search,
// grounded on original_source/api/app/rag_utils.py and
// worker/AI_Simulation_Training/ai.py's answer_with_rag evidence shape.
type Evidence struct {
	Content  string
	Filename string
	Score    float64
}

// VectorIndex is the worker's read-only view of the pgvector-backed
// similarity index: it searches the same `embeddings` table the
// dispatcher's indexing path (api/internal/repository/postgres/vectorindex.go)
// writes to.
type VectorIndex interface {
	Search(ctx context.Context, vectorstoreID string, vector []float32, topK int) ([]Evidence, error)
}
