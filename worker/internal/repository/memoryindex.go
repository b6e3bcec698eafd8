package repository

import "context"

// MemoryHit is one vector-similarity result from the conversation
// memory index.
type MemoryHit struct {
	Role    string
	Content string
	Score   float64
}

// MemoryIndex is the hybrid memory manager's salience-gated long-term
// store: a per-user pgvector table distinct from the document
// vectorstores, grounded on
// original_source/worker/AI_Simulation_Training/memory.py's Qdrant
// upsert/search calls re-grounded onto Postgres + pgvector.
type MemoryIndex interface {
	Upsert(ctx context.Context, userID, role, content string, vector []float32) error
	Search(ctx context.Context, userID string, vector []float32, topK int, threshold float64) ([]MemoryHit, error)
}
