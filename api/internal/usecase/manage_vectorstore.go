package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lxp-platform/fabric/api/internal/domain"
	"github.com/lxp-platform/fabric/api/internal/repository"
	"github.com/lxp-platform/fabric/api/internal/retrieval"
	"github.com/lxp-platform/fabric/api/internal/storage"
)

// ManageVectorstore implements POST /vectorstores (creation) and
// POST /vectorstores/{id}/index (re-chunk + re-embed every registered
// file, e.g. after a vector dimension or chunking change).
type ManageVectorstore struct {
	Vectorstores repository.VectorstoreStore
	VectorIndex  repository.VectorIndex
	Objects      storage.ObjectStore
	Dim          int
	Logger       *zap.Logger
}

// NewManageVectorstore builds a ManageVectorstore use case.
func NewManageVectorstore(vs repository.VectorstoreStore, idx repository.VectorIndex, objects storage.ObjectStore, dim int, logger *zap.Logger) *ManageVectorstore {
	return &ManageVectorstore{Vectorstores: vs, VectorIndex: idx, Objects: objects, Dim: dim, Logger: logger}
}

// Create registers a new vectorstore and returns its id.
func (u *ManageVectorstore) Create(ctx context.Context, name string) (string, error) {
	id, err := u.Vectorstores.CreateVectorstore(ctx, name)
	if err != nil {
		return "", fmt.Errorf("usecase: create vectorstore: %w", err)
	}
	return id, nil
}

// Reindex re-chunks and re-embeds every file already registered under id.
func (u *ManageVectorstore) Reindex(ctx context.Context, id string) (int, error) {
	exists, err := u.Vectorstores.VectorstoreExists(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("usecase: check vectorstore: %w", err)
	}
	if !exists {
		return 0, domain.ErrVectorstoreNotFound
	}

	files, err := u.Vectorstores.ListFiles(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("usecase: list files: %w", err)
	}

	var chunksIndexed int
	for _, file := range files {
		content, err := u.Objects.Get(ctx, file.ObjectKey)
		if err != nil {
			u.Logger.Warn("reindex: object fetch failed, skipping file",
				zap.String("file_id", file.FileID), zap.Error(err))
			continue
		}

		if err := u.VectorIndex.DeleteByFile(ctx, file.FileID); err != nil {
			return chunksIndexed, fmt.Errorf("usecase: clear embeddings: %w", err)
		}

		for i, chunk := range retrieval.ChunkText(string(content)) {
			vector := retrieval.HashEmbed(chunk, u.Dim)
			if err := u.VectorIndex.Insert(ctx, repository.Embedding{
				VectorstoreID: id,
				FileID:        file.FileID,
				ChunkIndex:    i,
				Content:       chunk,
				Vector:        vector,
			}); err != nil {
				return chunksIndexed, fmt.Errorf("usecase: index chunk: %w", err)
			}
			chunksIndexed++
		}
	}

	return chunksIndexed, nil
}
