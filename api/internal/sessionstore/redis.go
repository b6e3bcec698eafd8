// Package sessionstore gives the api module read access to session state
// owned by the worker's conversation engine. The api process never writes
// session state directly — it only needs to know whether a session has
// already closed before accepting a new chat turn.
package sessionstore

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/lxp-platform/fabric/api/internal/domain"
)

// keyPrefix must match the worker's sessionstore key prefix exactly —
// both modules address the same Redis keyspace.
const keyPrefix = "fabric:session:"

// Store is the read-side contract the Dispatcher depends on.
type Store interface {
	Get(ctx context.Context, sessionID string) (*domain.SessionState, error)
}

type redisStore struct {
	client *goredis.Client
}

// New wraps an existing Redis client as a read-only session store.
func New(client *goredis.Client) Store {
	return &redisStore{client: client}
}

// Get returns the session state, or nil if the session does not exist
// (not yet created, or evicted by TTL).
func (s *redisStore) Get(ctx context.Context, sessionID string) (*domain.SessionState, error) {
	raw, err := s.client.Get(ctx, keyPrefix+sessionID).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sessionstore: get: %w", err)
	}

	var state domain.SessionState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("sessionstore: decode: %w", err)
	}
	return &state, nil
}
