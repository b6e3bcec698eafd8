package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lxp-platform/fabric/api/internal/repository"
)

var _ repository.VectorstoreStore = (*pgVectorstoreStore)(nil)

type pgVectorstoreStore struct {
	pool *pgxpool.Pool
}

// NewPostgresVectorstoreStore creates a Postgres-backed vectorstore/file
// registry (Design Decision D1).
func NewPostgresVectorstoreStore(pool *pgxpool.Pool) repository.VectorstoreStore {
	return &pgVectorstoreStore{pool: pool}
}

func (r *pgVectorstoreStore) CreateVectorstore(ctx context.Context, name string) (string, error) {
	id := uuid.New().String()
	query := `INSERT INTO vectorstores (vectorstore_id, name, created_at) VALUES ($1, $2, $3)`
	if _, err := r.pool.Exec(ctx, query, id, name, time.Now().UTC()); err != nil {
		return "", fmt.Errorf("postgres: create vectorstore: %w", err)
	}
	return id, nil
}

func (r *pgVectorstoreStore) VectorstoreExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM vectorstores WHERE vectorstore_id = $1)`
	if err := r.pool.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("postgres: vectorstore exists: %w", err)
	}
	return exists, nil
}

func (r *pgVectorstoreStore) FindFileByHash(ctx context.Context, hash string) (*repository.FileRecord, error) {
	query := `
		SELECT file_id, vectorstore_id, filename, file_hash, object_key, created_at
		FROM vectorstore_files
		WHERE file_hash = $1
		LIMIT 1`

	var rec repository.FileRecord
	err := r.pool.QueryRow(ctx, query, hash).Scan(
		&rec.FileID, &rec.VectorstoreID, &rec.Filename, &rec.FileHash, &rec.ObjectKey, &rec.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: find file by hash: %w", err)
	}
	return &rec, nil
}

func (r *pgVectorstoreStore) DeleteFile(ctx context.Context, vectorstoreID, fileID string) error {
	query := `DELETE FROM vectorstore_files WHERE vectorstore_id = $1 AND file_id = $2`
	if _, err := r.pool.Exec(ctx, query, vectorstoreID, fileID); err != nil {
		return fmt.Errorf("postgres: delete file: %w", err)
	}
	return nil
}

func (r *pgVectorstoreStore) ListFiles(ctx context.Context, vectorstoreID string) ([]repository.FileRecord, error) {
	query := `
		SELECT file_id, vectorstore_id, filename, file_hash, object_key, created_at
		FROM vectorstore_files
		WHERE vectorstore_id = $1
		ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, vectorstoreID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list files: %w", err)
	}
	defer rows.Close()

	var out []repository.FileRecord
	for rows.Next() {
		var rec repository.FileRecord
		if err := rows.Scan(&rec.FileID, &rec.VectorstoreID, &rec.Filename, &rec.FileHash, &rec.ObjectKey, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan file: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *pgVectorstoreStore) FileObjectKey(ctx context.Context, fileID string) (string, error) {
	query := `SELECT object_key FROM vectorstore_files WHERE file_id = $1`

	var key string
	err := r.pool.QueryRow(ctx, query, fileID).Scan(&key)
	if err == pgx.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("postgres: file object key: %w", err)
	}
	return key, nil
}

func (r *pgVectorstoreStore) AddFile(ctx context.Context, file repository.FileRecord) error {
	if file.FileID == "" {
		file.FileID = uuid.New().String()
	}
	if file.CreatedAt.IsZero() {
		file.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO vectorstore_files (file_id, vectorstore_id, filename, file_hash, object_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.pool.Exec(ctx, query,
		file.FileID, file.VectorstoreID, file.Filename, file.FileHash, file.ObjectKey, file.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: add file: %w", err)
	}
	return nil
}
