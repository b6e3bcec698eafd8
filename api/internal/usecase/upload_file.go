package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lxp-platform/fabric/api/internal/domain"
	"github.com/lxp-platform/fabric/api/internal/repository"
	"github.com/lxp-platform/fabric/api/internal/retrieval"
	"github.com/lxp-platform/fabric/api/internal/storage"
)

// UploadFile implements the cross-vectorstore dedup upload path: on a
// content-hash collision with a file already indexed in another
// vectorstore, that sibling's registry row and vector points are removed
// before the file is (re-)indexed into the target vectorstore.
type UploadFile struct {
	Vectorstores repository.VectorstoreStore
	VectorIndex  repository.VectorIndex
	Objects      storage.ObjectStore
	Dim          int
	Logger       *zap.Logger
}

// NewUploadFile builds an UploadFile use case.
func NewUploadFile(vs repository.VectorstoreStore, idx repository.VectorIndex, objects storage.ObjectStore, dim int, logger *zap.Logger) *UploadFile {
	return &UploadFile{Vectorstores: vs, VectorIndex: idx, Objects: objects, Dim: dim, Logger: logger}
}

// Execute uploads filename/content into vectorstoreID and returns the
// stored file's id.
func (u *UploadFile) Execute(ctx context.Context, vectorstoreID, filename string, content []byte) (string, error) {
	if len(content) == 0 {
		return "", domain.ErrEmptyFile
	}

	exists, err := u.Vectorstores.VectorstoreExists(ctx, vectorstoreID)
	if err != nil {
		return "", fmt.Errorf("usecase: check vectorstore: %w", err)
	}
	if !exists {
		return "", domain.ErrVectorstoreNotFound
	}

	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])

	existing, err := u.Vectorstores.FindFileByHash(ctx, hash)
	if err != nil {
		return "", fmt.Errorf("usecase: find file by hash: %w", err)
	}
	if existing != nil {
		if existing.VectorstoreID == vectorstoreID {
			// Already indexed here — idempotent no-op.
			return existing.FileID, nil
		}
		// Pull the file out of the sibling vectorstore before re-indexing
		// it under the target: a given content hash lives in exactly one
		// vectorstore at a time.
		if err := u.VectorIndex.DeleteByFile(ctx, existing.FileID); err != nil {
			return "", fmt.Errorf("usecase: delete sibling embeddings: %w", err)
		}
		if err := u.Vectorstores.DeleteFile(ctx, existing.VectorstoreID, existing.FileID); err != nil {
			return "", fmt.Errorf("usecase: delete sibling file: %w", err)
		}
		u.Logger.Info("file moved between vectorstores on hash collision",
			zap.String("file_hash", hash),
			zap.String("from_vectorstore", existing.VectorstoreID),
			zap.String("to_vectorstore", vectorstoreID),
		)
	}

	objectKey := fmt.Sprintf("%s/%s", vectorstoreID, hash)
	if err := u.Objects.Put(ctx, objectKey, content); err != nil {
		return "", fmt.Errorf("usecase: store object: %w", err)
	}

	rec := repository.FileRecord{
		FileID:        uuid.New().String(),
		VectorstoreID: vectorstoreID,
		Filename:      filename,
		FileHash:      hash,
		ObjectKey:     objectKey,
		CreatedAt:     time.Now().UTC(),
	}
	if err := u.Vectorstores.AddFile(ctx, rec); err != nil {
		return "", fmt.Errorf("usecase: register file: %w", err)
	}

	for i, chunk := range retrieval.ChunkText(string(content)) {
		vector := retrieval.HashEmbed(chunk, u.Dim)
		if err := u.VectorIndex.Insert(ctx, repository.Embedding{
			VectorstoreID: vectorstoreID,
			FileID:        rec.FileID,
			ChunkIndex:    i,
			Content:       chunk,
			Vector:        vector,
		}); err != nil {
			return "", fmt.Errorf("usecase: index chunk: %w", err)
		}
	}

	return rec.FileID, nil
}
