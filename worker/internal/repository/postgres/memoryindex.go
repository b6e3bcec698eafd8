package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/lxp-platform/fabric/worker/internal/repository"
)

var _ repository.MemoryIndex = (*pgMemoryIndex)(nil)

type pgMemoryIndex struct {
	pool *pgxpool.Pool
}

// NewPostgresMemoryIndex creates a pgvector-backed MemoryIndex.
func NewPostgresMemoryIndex(pool *pgxpool.Pool) repository.MemoryIndex {
	return &pgMemoryIndex{pool: pool}
}

func (r *pgMemoryIndex) Upsert(ctx context.Context, userID, role, content string, vector []float32) error {
	query := `
		INSERT INTO conversation_memory (memory_id, user_id, role, content, vector)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.pool.Exec(ctx, query, uuid.New().String(), userID, role, content, pgvector.NewVector(vector))
	if err != nil {
		return fmt.Errorf("postgres: upsert conversation memory: %w", err)
	}
	return nil
}

func (r *pgMemoryIndex) Search(ctx context.Context, userID string, vector []float32, topK int, threshold float64) ([]repository.MemoryHit, error) {
	// Cosine distance (<=>) is 1 - cosine similarity, so 1 - distance is
	// the cosine similarity compared against the threshold, matching the
	// original's score_threshold filter in the Qdrant-backed implementation.
	query := `
		SELECT role, content, 1 - (vector <=> $2) AS similarity
		FROM conversation_memory
		WHERE user_id = $1
		ORDER BY vector <=> $2
		LIMIT $3`

	rows, err := r.pool.Query(ctx, query, userID, pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, fmt.Errorf("postgres: search conversation memory: %w", err)
	}
	defer rows.Close()

	var hits []repository.MemoryHit
	for rows.Next() {
		var h repository.MemoryHit
		if err := rows.Scan(&h.Role, &h.Content, &h.Score); err != nil {
			return nil, fmt.Errorf("postgres: scan memory hit: %w", err)
		}
		if h.Score >= threshold {
			hits = append(hits, h)
		}
	}
	return hits, rows.Err()
}
