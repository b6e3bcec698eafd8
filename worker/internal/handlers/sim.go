package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lxp-platform/fabric/worker/internal/broker"
	"github.com/lxp-platform/fabric/worker/internal/conversation"
	"github.com/lxp-platform/fabric/worker/internal/domain"
	"github.com/lxp-platform/fabric/worker/internal/repository"
	"github.com/lxp-platform/fabric/worker/internal/sessionstore"
)

// Simulation sub-functions, matching main.py's routing-key suffixes
// (.start / .chat / .close).
const (
	SubFunctionStart = "start"
	SubFunctionChat  = "chat"
	SubFunctionClose = "close"
)

func simHandler(logger *zap.Logger, publisher broker.ResultPublisher, store sessionstore.Store, engine *conversation.Engine, analytics repository.Analytics, ttl time.Duration) Handler {
	return func(ctx context.Context, task *domain.Task) error {
		switch task.SubFunction {
		case SubFunctionStart:
			return handleStartSession(ctx, logger, publisher, store, engine, analytics, ttl, task)
		case SubFunctionChat:
			return handleChatMessage(ctx, logger, publisher, store, engine, analytics, ttl, task)
		case SubFunctionClose:
			return handleCloseSession(ctx, logger, publisher, store, engine, analytics, task)
		default:
			err := fmt.Errorf("%w: sim.%s", domain.ErrUnknownFunction, task.SubFunction)
			_ = publisher.PublishResult(ctx, failedResult(task, err))
			return err
		}
	}
}

// handleStartSession creates a fresh SessionState, assigns a persona and
// scenario, and generates the opening greeting, mirroring
// main.py's handle_start_session. The CAS update only assigns the cheap
// identifying fields; the LLM-backed greeting runs outside the update so
// a CAS retry never re-triggers a model call.
func handleStartSession(ctx context.Context, logger *zap.Logger, publisher broker.ResultPublisher, store sessionstore.Store, engine *conversation.Engine, analytics repository.Analytics, ttl time.Duration, task *domain.Task) error {
	scenario := task.StringPayload("scenario")

	state, err := store.Update(ctx, task.SessionID, ttl, func(s *domain.SessionState) error {
		s.SessionID = task.SessionID
		s.UserID = task.UserID
		s.ThreadID = task.ThreadID
		s.Scenario = scenario
		s.Status = domain.SessionNew
		return nil
	})
	if err != nil {
		logger.Error("sim.start failed", zap.Error(err), zap.String("session_id", task.SessionID))
		_ = publisher.PublishResult(ctx, failedResult(task, err))
		return err
	}

	greeting, err := engine.StartSession(ctx, state)
	if err != nil {
		logger.Error("sim.start failed", zap.Error(err), zap.String("session_id", task.SessionID))
		_ = publisher.PublishResult(ctx, failedResult(task, err))
		return err
	}
	if err := store.Put(ctx, state, ttl); err != nil {
		logger.Warn("failed to persist greeting state", zap.Error(err), zap.String("session_id", task.SessionID))
	}

	if err := analytics.EnsureUser(ctx, state.UserID, state.UserID); err != nil {
		logger.Warn("analytics: ensure user failed", zap.Error(err))
	}
	if err := analytics.StartSession(ctx, repository.SessionLog{
		SessionID:   state.SessionID,
		UserID:      state.UserID,
		PersonaType: state.Persona.Type,
		Scenario:    state.Scenario,
		StartTime:   state.CreatedAt,
	}); err != nil {
		logger.Warn("analytics: start session failed", zap.Error(err))
	}

	_ = publisher.PublishChatResponse(ctx, map[string]any{
		"session_id": state.SessionID,
		"event":      string(domain.EventGreeting),
		"data":       greeting,
	})

	result := domain.NewResult(task.JobID, domain.EventGreeting, greeting)
	result.SessionID = state.SessionID
	result.Final = true
	return publisher.PublishResult(ctx, result)
}

// handleChatMessage advances an existing session by one seller turn,
// auto-closing and scoring the conversation when the persona emits its
// closing token, mirroring main.py's handle_chat_message.
//
// Per-session serialization is enforced with the Session Store's CAS:
// the handler first flips AWAITING_TURN → GENERATING as a cheap,
// LLM-free update. If that CAS observes the session already GENERATING
// under this same job_id, a prior delivery of this task crashed
// mid-turn; the handler resets the session and publishes a "resumed"
// failure instead of generating a second reply for it. If it observes a
// *different* job_id already generating, a genuinely concurrent turn is
// in flight and the handler publishes "busy" and exits.
func handleChatMessage(ctx context.Context, logger *zap.Logger, publisher broker.ResultPublisher, store sessionstore.Store, engine *conversation.Engine, analytics repository.Analytics, ttl time.Duration, task *domain.Task) error {
	sellerMessage := task.StringPayload("seller_msg")

	var resumed bool
	state, err := store.Update(ctx, task.SessionID, ttl, func(s *domain.SessionState) error {
		if s.IsClosed() {
			return domain.ErrSessionClosed
		}
		if s.Status == domain.SessionGenerating {
			if s.GeneratingJobID == task.JobID {
				resumed = true
				s.Status = domain.SessionAwaitingTurn
				s.GeneratingJobID = ""
				return nil
			}
			return domain.ErrSessionBusy
		}
		s.Status = domain.SessionGenerating
		s.GeneratingJobID = task.JobID
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrSessionBusy) {
			result := domain.NewResult(task.JobID, domain.EventBusy, "")
			result.SessionID = task.SessionID
			return publisher.PublishResult(ctx, result)
		}
		logger.Error("sim.chat failed", zap.Error(err), zap.String("session_id", task.SessionID))
		_ = publisher.PublishResult(ctx, failedResult(task, err))
		return err
	}
	if resumed {
		logger.Warn("sim.chat resumed a session stuck GENERATING by a crashed delivery", zap.String("session_id", task.SessionID), zap.String("job_id", task.JobID))
		result := failedResult(task, errors.New("resumed"))
		result.SessionID = state.SessionID
		return publisher.PublishResult(ctx, result)
	}

	reply, closed, err := engine.Respond(ctx, state, sellerMessage)
	if err != nil {
		logger.Error("sim.chat failed", zap.Error(err), zap.String("session_id", task.SessionID))
		_ = publisher.PublishResult(ctx, failedResult(task, err))
		return err
	}
	state.GeneratingJobID = ""
	if err := store.Put(ctx, state, ttl); err != nil {
		logger.Warn("failed to persist turn state", zap.Error(err), zap.String("session_id", task.SessionID))
	}

	if err := analytics.RecordMessage(ctx, state.SessionID, state.UserID, "seller", sellerMessage); err != nil {
		logger.Warn("analytics: record seller message failed", zap.Error(err))
	}
	if err := analytics.RecordMessage(ctx, state.SessionID, state.UserID, "ai", reply); err != nil {
		logger.Warn("analytics: record ai message failed", zap.Error(err))
	}

	_ = publisher.PublishChatResponse(ctx, map[string]any{
		"session_id": state.SessionID,
		"event":      string(domain.EventMessage),
		"data":       reply,
	})
	messageResult := domain.NewResult(task.JobID, domain.EventMessage, reply)
	messageResult.SessionID = state.SessionID
	if err := publisher.PublishResult(ctx, messageResult); err != nil {
		return err
	}

	// GENERATING → AWAITING_TURN completes every turn, closing turn or
	// not: publish message_end so the client's stream always sees one
	// per turn, distinct from the session-level "end" below.
	messageEnd := domain.NewResult(task.JobID, domain.EventMessageEnd, "")
	messageEnd.SessionID = state.SessionID

	if closed {
		analysis, analyzeErr := engine.AnalyzeConversation(ctx, state)
		if analyzeErr != nil {
			logger.Warn("conversation analysis failed", zap.Error(analyzeErr), zap.String("session_id", task.SessionID))
		} else {
			messageEnd.Extensions = map[string]any{"score": analysis.Score, "feedback": analysis.Feedback}
			if err := analytics.EndSession(ctx, state.SessionID, state.UserID, repository.SessionOutcome{
				EndTime:          state.LastActivity,
				MessageCount:     len(state.History),
				PerformanceScore: analysis.Score,
				Feedback:         analysis.Feedback,
				SessionDuration:  int(state.LastActivity.Sub(state.CreatedAt).Seconds()),
			}); err != nil {
				logger.Warn("analytics: end session failed", zap.Error(err))
			}
		}
		messageEnd.Final = true
		if err := publisher.PublishResult(ctx, messageEnd); err != nil {
			return err
		}
		_ = publisher.PublishChatResponse(ctx, map[string]any{
			"session_id": state.SessionID,
			"event":      string(domain.EventEnd),
			"data":       nil,
		})
		end := domain.NewResult(task.JobID, domain.EventEnd, "")
		end.SessionID = state.SessionID
		end.Final = true
		end.Extensions = messageEnd.Extensions
		return publisher.PublishResult(ctx, end)
	}

	return publisher.PublishResult(ctx, messageEnd)
}

// handleCloseSession forces a session closed and scores it, for callers
// that end the conversation explicitly rather than via the persona's
// auto-close token.
func handleCloseSession(ctx context.Context, logger *zap.Logger, publisher broker.ResultPublisher, store sessionstore.Store, engine *conversation.Engine, analytics repository.Analytics, task *domain.Task) error {
	state, err := store.Get(ctx, task.SessionID)
	if err != nil {
		_ = publisher.PublishResult(ctx, failedResult(task, err))
		return err
	}
	if state == nil {
		err := domain.ErrSessionNotFound
		_ = publisher.PublishResult(ctx, failedResult(task, err))
		return err
	}

	state.Status = domain.SessionClosed
	state.LastActivity = time.Now()
	if err := store.Put(ctx, state, 0); err != nil {
		logger.Warn("failed to persist closed session state", zap.Error(err), zap.String("session_id", task.SessionID))
	}

	analysis, err := engine.AnalyzeConversation(ctx, state)
	if err != nil {
		_ = publisher.PublishResult(ctx, failedResult(task, err))
		return err
	}

	if err := analytics.EndSession(ctx, state.SessionID, state.UserID, repository.SessionOutcome{
		EndTime:          state.LastActivity,
		MessageCount:     len(state.History),
		PerformanceScore: analysis.Score,
		Feedback:         analysis.Feedback,
		SessionDuration:  int(state.LastActivity.Sub(state.CreatedAt).Seconds()),
	}); err != nil {
		logger.Warn("analytics: end session failed", zap.Error(err))
	}

	result := domain.NewResult(task.JobID, domain.EventEnd, "")
	result.SessionID = state.SessionID
	result.Final = true
	result.Extensions = map[string]any{"score": analysis.Score, "feedback": analysis.Feedback}
	return publisher.PublishResult(ctx, result)
}
