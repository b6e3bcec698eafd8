package repository

import "context"

// DedupStore defines distributed deduplication locks for at-least-once
// task delivery, adapted from the sandbox worker's job-level idempotency
// lock (internal/repository/redis/idempotency.go) onto task envelopes:
// a broker redelivery after a crashed Ack still lands on the same
// job_id, so handlers that aren't naturally idempotent (persona
// generation, scoring) can skip the repeat.
type DedupStore interface {
	// AcquireLock attempts to acquire an exclusive processing lock for a
	// job. Returns true if the lock was acquired (first time), false if
	// already locked (duplicate delivery).
	AcquireLock(ctx context.Context, jobID string) (bool, error)

	// ReleaseLock releases the processing lock with a TTL for eventual cleanup.
	ReleaseLock(ctx context.Context, jobID string) error
}
