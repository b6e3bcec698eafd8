package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/lxp-platform/fabric/worker/internal/repository"
)

var _ repository.VectorIndex = (*pgVectorIndex)(nil)

type pgVectorIndex struct {
	pool *pgxpool.Pool
}

// NewPostgresVectorIndex creates a read-only, pgvector-backed VectorIndex
// over the same `embeddings`/`vectorstore_files` tables the dispatcher's
// indexing path populates.
func NewPostgresVectorIndex(pool *pgxpool.Pool) repository.VectorIndex {
	return &pgVectorIndex{pool: pool}
}

func (r *pgVectorIndex) Search(ctx context.Context, vectorstoreID string, vector []float32, topK int) ([]repository.Evidence, error) {
	query := `
		SELECT e.content, COALESCE(f.filename, ''), 1 - (e.vector <=> $2) AS similarity
		FROM embeddings e
		LEFT JOIN vectorstore_files f ON f.file_id = e.file_id
		WHERE e.vectorstore_id = $1
		ORDER BY e.vector <=> $2
		LIMIT $3`

	rows, err := r.pool.Query(ctx, query, vectorstoreID, pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, fmt.Errorf("postgres: search embeddings: %w", err)
	}
	defer rows.Close()

	var out []repository.Evidence
	for rows.Next() {
		var e repository.Evidence
		if err := rows.Scan(&e.Content, &e.Filename, &e.Score); err != nil {
			return nil, fmt.Errorf("postgres: scan evidence: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
