package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lxp-platform/fabric/api/internal/broker"
	"github.com/lxp-platform/fabric/api/internal/domain"
	"github.com/lxp-platform/fabric/api/internal/sessionstore"
)

// SendChat is the Dispatcher's handler for POST /sales/chat: fire-and-forget,
// the reply arrives over the session's SSE stream.
type SendChat struct {
	Publisher Publisher
	Sessions  sessionstore.Store
	Logger    *zap.Logger
}

// Publisher is the narrow slice of broker.Publisher SendChat needs.
type Publisher interface {
	PublishTask(ctx context.Context, task *domain.Task) error
}

var _ Publisher = broker.Publisher(nil)

// NewSendChat builds a SendChat use case.
func NewSendChat(pub Publisher, sessions sessionstore.Store, logger *zap.Logger) *SendChat {
	return &SendChat{Publisher: pub, Sessions: sessions, Logger: logger}
}

// Execute rejects turns against a closed or unknown session, then publishes
// a sim.chat task carrying the seller's message.
func (u *SendChat) Execute(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	if req.SessionID == "" || req.SellerMsg == "" {
		return nil, domain.ErrMissingField
	}

	state, err := u.Sessions.Get(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("usecase: lookup session: %w", err)
	}
	if state == nil {
		return nil, domain.ErrSessionNotFound
	}
	if state.IsClosed() {
		return nil, domain.ErrSessionClosed
	}

	jobID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("usecase: generate job id: %w", err)
	}

	task := &domain.Task{
		JobID:       jobID.String(),
		SessionID:   req.SessionID,
		UserID:      req.UserID,
		ThreadID:    req.ThreadID,
		Function:    domain.FunctionSim,
		SubFunction: "chat",
		Payload:     map[string]any{"seller_msg": req.SellerMsg},
		CreatedAt:   time.Now().UTC(),
	}

	if err := u.Publisher.PublishTask(ctx, task); err != nil {
		u.Logger.Error("send chat: publish failed", zap.Error(err), zap.String("session_id", req.SessionID))
		return nil, err
	}

	return &domain.ChatResponse{Status: "message published"}, nil
}
