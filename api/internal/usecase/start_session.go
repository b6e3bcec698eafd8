package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lxp-platform/fabric/api/internal/broker"
	"github.com/lxp-platform/fabric/api/internal/domain"
	"github.com/lxp-platform/fabric/api/internal/repository"
	"github.com/lxp-platform/fabric/api/internal/streamhub"
)

// StartSession is the Dispatcher's handler for POST /sales/session. Unlike
// SubmitTask it waits — bounded by GreetingTimeout — for the conversation
// engine's first greeting chunk, so the caller gets it synchronously
// instead of having to open the SSE stream first.
type StartSession struct {
	Publisher       broker.Publisher
	Documents       repository.DocumentStore
	Hub             *streamhub.Hub
	GreetingTimeout time.Duration
	Logger          *zap.Logger
}

// NewStartSession builds a StartSession use case.
func NewStartSession(pub broker.Publisher, docs repository.DocumentStore, hub *streamhub.Hub, greetingTimeout time.Duration, logger *zap.Logger) *StartSession {
	return &StartSession{
		Publisher:       pub,
		Documents:       docs,
		Hub:             hub,
		GreetingTimeout: greetingTimeout,
		Logger:          logger,
	}
}

// Execute creates a session, subscribes on the Stream Hub before publishing
// the sim.start task (so no greeting chunk can be missed), and blocks for
// the first greeting event or timeout.
func (u *StartSession) Execute(ctx context.Context, req domain.SessionStartRequest) (*domain.SessionStartResponse, error) {
	if req.UserID == "" {
		return nil, domain.ErrEmptyUserID
	}

	sessionID := req.SessionID
	if sessionID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("usecase: generate session id: %w", err)
		}
		sessionID = id.String()
	}

	threadID, err := u.Documents.CreateThread(ctx, req.UserID, domain.FunctionSim)
	if err != nil {
		return nil, fmt.Errorf("usecase: create thread: %w", err)
	}
	if err := u.Documents.SetLatestThreadForUser(ctx, req.UserID, threadID); err != nil {
		return nil, fmt.Errorf("usecase: set latest thread: %w", err)
	}

	// Subscribe before publishing: otherwise a fast worker could emit the
	// greeting before this handler starts listening for it.
	sub, cancel := u.Hub.Subscribe(sessionID)
	defer cancel()

	jobID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("usecase: generate job id: %w", err)
	}

	task := &domain.Task{
		JobID:       jobID.String(),
		SessionID:   sessionID,
		UserID:      req.UserID,
		ThreadID:    threadID,
		Function:    domain.FunctionSim,
		SubFunction: "start",
		Payload: map[string]any{
			"persona":  req.Persona,
			"scenario": req.Scenario,
		},
		CreatedAt: time.Now().UTC(),
	}

	if err := u.Publisher.PublishTask(ctx, task); err != nil {
		u.Logger.Error("start session: publish failed", zap.Error(err), zap.String("session_id", sessionID))
		return nil, err
	}

	timeout := u.GreetingTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case chunk := <-sub.Ch:
			if chunk.Event == domain.EventGreeting {
				return &domain.SessionStartResponse{
					SessionID: sessionID,
					ThreadID:  threadID,
					Greeting:  chunk.Chunk,
				}, nil
			}
			if chunk.Event == domain.EventError || chunk.Event == domain.EventFailed {
				return nil, fmt.Errorf("usecase: session start failed: %s", chunk.Error)
			}
		case <-timer.C:
			return nil, domain.ErrGreetingTimeout
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
