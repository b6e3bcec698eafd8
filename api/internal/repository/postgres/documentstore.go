package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lxp-platform/fabric/api/internal/domain"
	"github.com/lxp-platform/fabric/api/internal/repository"
)

var _ repository.DocumentStore = (*pgDocumentStore)(nil)

type pgDocumentStore struct {
	pool *pgxpool.Pool
}

// NewPostgresDocumentStore creates a Postgres-backed document store
// fronting the threads / user_thread tables (Design Decision D1).
func NewPostgresDocumentStore(pool *pgxpool.Pool) repository.DocumentStore {
	return &pgDocumentStore{pool: pool}
}

func (r *pgDocumentStore) CreateThread(ctx context.Context, userID string, function domain.Function) (string, error) {
	threadID := uuid.New().String()
	query := `
		INSERT INTO threads (thread_id, user_id, function, doc, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	doc := map[string]any{"user_id": userID, "function": string(function)}
	now := time.Now().UTC()
	if _, err := r.pool.Exec(ctx, query, threadID, userID, string(function), doc, now); err != nil {
		return "", fmt.Errorf("postgres: create thread: %w", err)
	}
	return threadID, nil
}

func (r *pgDocumentStore) LatestThreadForUser(ctx context.Context, userID string) (string, error) {
	query := `SELECT thread_id FROM user_thread WHERE user_id = $1`

	var threadID string
	err := r.pool.QueryRow(ctx, query, userID).Scan(&threadID)
	if err == pgx.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("postgres: latest thread for user: %w", err)
	}
	return threadID, nil
}

func (r *pgDocumentStore) SetLatestThreadForUser(ctx context.Context, userID, threadID string) error {
	query := `
		INSERT INTO user_thread (user_id, thread_id, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET thread_id = EXCLUDED.thread_id, updated_at = EXCLUDED.updated_at`

	if _, err := r.pool.Exec(ctx, query, userID, threadID, time.Now().UTC()); err != nil {
		return fmt.Errorf("postgres: set latest thread for user: %w", err)
	}
	return nil
}
