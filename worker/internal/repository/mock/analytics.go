package mock

import (
	"context"
	"sync"

	"github.com/lxp-platform/fabric/worker/internal/repository"
)

var _ repository.Analytics = (*Analytics)(nil)

// Analytics is a test double for repository.Analytics.
type Analytics struct {
	mu sync.Mutex

	EnsureUserFn    func(ctx context.Context, userID, username string) error
	StartSessionFn  func(ctx context.Context, log repository.SessionLog) error
	RecordMessageFn func(ctx context.Context, sessionID, userID, role, content string) error
	EndSessionFn    func(ctx context.Context, sessionID, userID string, outcome repository.SessionOutcome) error

	StartedSessions []repository.SessionLog
	EndedSessions   []repository.SessionOutcome
}

func (m *Analytics) EnsureUser(ctx context.Context, userID, username string) error {
	if m.EnsureUserFn != nil {
		return m.EnsureUserFn(ctx, userID, username)
	}
	return nil
}

func (m *Analytics) StartSession(ctx context.Context, log repository.SessionLog) error {
	m.mu.Lock()
	m.StartedSessions = append(m.StartedSessions, log)
	m.mu.Unlock()
	if m.StartSessionFn != nil {
		return m.StartSessionFn(ctx, log)
	}
	return nil
}

func (m *Analytics) RecordMessage(ctx context.Context, sessionID, userID, role, content string) error {
	if m.RecordMessageFn != nil {
		return m.RecordMessageFn(ctx, sessionID, userID, role, content)
	}
	return nil
}

func (m *Analytics) EndSession(ctx context.Context, sessionID, userID string, outcome repository.SessionOutcome) error {
	m.mu.Lock()
	m.EndedSessions = append(m.EndedSessions, outcome)
	m.mu.Unlock()
	if m.EndSessionFn != nil {
		return m.EndSessionFn(ctx, sessionID, userID, outcome)
	}
	return nil
}
