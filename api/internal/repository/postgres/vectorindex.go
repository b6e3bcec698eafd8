package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/lxp-platform/fabric/api/internal/repository"
)

var _ repository.VectorIndex = (*pgVectorIndex)(nil)

type pgVectorIndex struct {
	pool *pgxpool.Pool
}

// NewPostgresVectorIndex creates a pgvector-backed VectorIndex.
func NewPostgresVectorIndex(pool *pgxpool.Pool) repository.VectorIndex {
	return &pgVectorIndex{pool: pool}
}

func (r *pgVectorIndex) Insert(ctx context.Context, e repository.Embedding) error {
	query := `
		INSERT INTO embeddings (embedding_id, vectorstore_id, file_id, chunk_index, content, vector)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query,
		uuid.New().String(), e.VectorstoreID, e.FileID, e.ChunkIndex, e.Content, pgvector.NewVector(e.Vector),
	)
	if err != nil {
		return fmt.Errorf("postgres: insert embedding: %w", err)
	}
	return nil
}

func (r *pgVectorIndex) DeleteByFile(ctx context.Context, fileID string) error {
	query := `DELETE FROM embeddings WHERE file_id = $1`
	if _, err := r.pool.Exec(ctx, query, fileID); err != nil {
		return fmt.Errorf("postgres: delete embeddings by file: %w", err)
	}
	return nil
}
