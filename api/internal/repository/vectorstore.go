package repository

import (
	"context"
	"time"
)

// FileRecord is one row of the `vectorstore` files collection (spec §6),
// carried as a Postgres table with a partial unique index on FileHash.
type FileRecord struct {
	FileID        string
	VectorstoreID string
	Filename      string
	FileHash      string
	ObjectKey     string
	CreatedAt     time.Time
}

// VectorstoreStore is the Retrieval Adapter's registry of vectorstores and
// their indexed files, including the cross-vectorstore dedup invariant.
type VectorstoreStore interface {
	// CreateVectorstore registers a new empty vectorstore and returns its id.
	CreateVectorstore(ctx context.Context, name string) (string, error)

	// VectorstoreExists reports whether id names a known vectorstore.
	VectorstoreExists(ctx context.Context, id string) (bool, error)

	// FindFileByHash returns the existing file record with this content
	// hash in ANY vectorstore, or nil if none exists yet.
	FindFileByHash(ctx context.Context, hash string) (*FileRecord, error)

	// DeleteFile removes a file's registry row. The caller is responsible
	// for deleting its pgvector rows first.
	DeleteFile(ctx context.Context, vectorstoreID, fileID string) error

	// AddFile registers a new file under vectorstoreID.
	AddFile(ctx context.Context, file FileRecord) error

	// ListFiles returns every file registered under vectorstoreID.
	ListFiles(ctx context.Context, vectorstoreID string) ([]FileRecord, error)

	// FileObjectKey returns the object-store key for a registered file's
	// content, used when re-indexing.
	FileObjectKey(ctx context.Context, fileID string) (string, error)
}
