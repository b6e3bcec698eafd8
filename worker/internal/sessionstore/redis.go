// Package sessionstore is the worker's full (read-write) view of session
// state: get/put/compare-and-swap update, plus pub/sub notification so
// other worker goroutines handling the same session observe changes.
// Grounded on the sandbox worker's idempotency lock
// (internal/repository/redis/idempotency.go's SETNX-with-TTL pattern),
// extended with a Lua-scripted CAS and go-redis's Publish/Subscribe.
package sessionstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/lxp-platform/fabric/worker/internal/domain"
)

const keyPrefix = "fabric:session:"

// casScript atomically compares the stored version and, if it matches
// (or the key doesn't exist and expectedVersion is 0), writes the new
// value and bumps the version.
var casScript = goredis.NewScript(`
local current = redis.call("GET", KEYS[1])
local expected = tonumber(ARGV[2])
if current then
	local decoded = cjson.decode(current)
	if decoded.version ~= expected then
		return 0
	end
elseif expected ~= 0 then
	return 0
end
redis.call("SET", KEYS[1], ARGV[1], "EX", ARGV[3])
return 1
`)

// Store is the worker's read-write session state contract.
type Store interface {
	Get(ctx context.Context, sessionID string) (*domain.SessionState, error)
	Put(ctx context.Context, state *domain.SessionState, ttl time.Duration) error
	Update(ctx context.Context, sessionID string, ttl time.Duration, mutate func(*domain.SessionState) error) (*domain.SessionState, error)
	Publish(ctx context.Context, sessionID string, payload any) error
	Subscribe(ctx context.Context, sessionID string) *goredis.PubSub
}

type redisStore struct {
	client *goredis.Client
}

// New builds a Redis-backed Store.
func New(client *goredis.Client) Store {
	return &redisStore{client: client}
}

func key(sessionID string) string {
	return keyPrefix + sessionID
}

func (s *redisStore) Get(ctx context.Context, sessionID string) (*domain.SessionState, error) {
	raw, err := s.client.Get(ctx, key(sessionID)).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sessionstore: get: %w", err)
	}
	var state domain.SessionState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("sessionstore: unmarshal: %w", err)
	}
	return &state, nil
}

func (s *redisStore) Put(ctx context.Context, state *domain.SessionState, ttl time.Duration) error {
	body, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("sessionstore: marshal: %w", err)
	}
	return s.client.Set(ctx, key(state.SessionID), body, ttl).Err()
}

// Update performs a read-modify-write loop bounded by a CAS script so
// that two workers racing on the same session never silently clobber
// each other's write; the loser retries against the freshly observed
// version, guaranteeing any subsequent Get from any node sees the
// winning state.
func (s *redisStore) Update(ctx context.Context, sessionID string, ttl time.Duration, mutate func(*domain.SessionState) error) (*domain.SessionState, error) {
	for attempt := 0; attempt < 10; attempt++ {
		state, err := s.Get(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		expectedVersion := int64(0)
		if state != nil {
			expectedVersion = state.Version
		} else {
			state = &domain.SessionState{SessionID: sessionID, CreatedAt: time.Now()}
		}

		if err := mutate(state); err != nil {
			return nil, err
		}
		state.Version = expectedVersion + 1
		state.LastActivity = time.Now()

		body, err := json.Marshal(state)
		if err != nil {
			return nil, fmt.Errorf("sessionstore: marshal: %w", err)
		}

		res, err := casScript.Run(ctx, s.client, []string{key(sessionID)}, body, expectedVersion, int(ttl.Seconds())).Int()
		if err != nil {
			return nil, fmt.Errorf("sessionstore: cas: %w", err)
		}
		if res == 1 {
			return state, nil
		}
		// Lost the race; retry against the now-current version.
	}
	return nil, domain.ErrVersionConflict
}

func (s *redisStore) Publish(ctx context.Context, sessionID string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("sessionstore: marshal publish: %w", err)
	}
	return s.client.Publish(ctx, "fabric:session:notify:"+sessionID, body).Err()
}

func (s *redisStore) Subscribe(ctx context.Context, sessionID string) *goredis.PubSub {
	return s.client.Subscribe(ctx, "fabric:session:notify:"+sessionID)
}
