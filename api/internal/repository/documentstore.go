// Package repository declares the Dispatcher's persistence contracts.
package repository

import (
	"context"

	"github.com/lxp-platform/fabric/api/internal/domain"
)

// Thread is one conversation thread record (the `threads` collection in
// spec §6, carried here as a Postgres row with a JSONB payload column).
type Thread struct {
	ThreadID  string
	UserID    string
	Function  domain.Function
	CreatedAt string
}

// DocumentStore is the Dispatcher's read/write contract against the
// threads / user_thread collections (spec §6's "document store").
type DocumentStore interface {
	// CreateThread inserts a new thread row and returns its ID.
	CreateThread(ctx context.Context, userID string, function domain.Function) (string, error)

	// LatestThreadForUser returns the most recently created thread_id for
	// userID, or "" if the user has none yet (unique on user_id per spec §6).
	LatestThreadForUser(ctx context.Context, userID string) (string, error)

	// SetLatestThreadForUser upserts the user_thread pointer row.
	SetLatestThreadForUser(ctx context.Context, userID, threadID string) error
}
