// Package handlers maps a Task's Function to the code that services it,
// replacing the sandbox worker's single hardcoded executeUC.Execute call
// with a registry keyed the way
// original_source/worker/AI_Simulation_Training/main.py's handle_message
// keys on the routing-key suffix (.start / .chat dispatched to
// handle_start_session / handle_chat_message).
package handlers

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lxp-platform/fabric/worker/internal/broker"
	"github.com/lxp-platform/fabric/worker/internal/conversation"
	"github.com/lxp-platform/fabric/worker/internal/domain"
	"github.com/lxp-platform/fabric/worker/internal/llm"
	"github.com/lxp-platform/fabric/worker/internal/repository"
	"github.com/lxp-platform/fabric/worker/internal/retrieval"
	"github.com/lxp-platform/fabric/worker/internal/sessionstore"
)

// dedupe wraps h so a redelivered job_id (broker at-least-once retry
// after a crashed Ack) short-circuits to a no-op success instead of
// regenerating persona output or re-scoring a conversation.
func dedupe(dedup repository.DedupStore, logger *zap.Logger, h Handler) Handler {
	return func(ctx context.Context, task *domain.Task) error {
		acquired, err := dedup.AcquireLock(ctx, task.JobID)
		if err != nil {
			logger.Warn("dedup lock check failed, proceeding anyway", zap.Error(err), zap.String("job_id", task.JobID))
			return h(ctx, task)
		}
		if !acquired {
			logger.Info("duplicate delivery skipped", zap.String("job_id", task.JobID))
			return nil
		}
		return h(ctx, task)
	}
}

// Handler services one decoded Task, publishing its own result events
// and returning only a terminal error (the caller still acks/nacks the
// envelope based on it).
type Handler func(ctx context.Context, task *domain.Task) error

// Registry dispatches a Task to its Function's Handler.
type Registry struct {
	handlers map[domain.Function]Handler
	logger   *zap.Logger
}

// NewRegistry wires every handler this worker services, grounded on
// main.py's handle_message dispatch table.
func NewRegistry(
	logger *zap.Logger,
	publisher broker.ResultPublisher,
	store sessionstore.Store,
	engine *conversation.Engine,
	llmClient llm.Client,
	vectorIndex repository.VectorIndex,
	analytics repository.Analytics,
	sessionTTL time.Duration,
	vectorDim int,
	dedup repository.DedupStore,
) *Registry {
	r := &Registry{handlers: map[domain.Function]Handler{}, logger: logger}

	// sim.* tasks are not wrapped in dedupe: the session's CAS-guarded
	// status (AWAITING_TURN/GENERATING) already tells a crash-redelivered
	// job_id apart from a genuinely concurrent one, which the blanket
	// lock-with-no-release in dedupe would otherwise short-circuit before
	// that logic ever ran.
	r.handlers[domain.FunctionSim] = simHandler(logger, publisher, store, engine, analytics, sessionTTL)
	r.handlers[domain.FunctionAssist] = dedupe(dedup, logger, ragHandler(logger, publisher, llmClient, vectorIndex, vectorDim))
	r.handlers[domain.FunctionGalaxy] = dedupe(dedup, logger, ragHandler(logger, publisher, llmClient, vectorIndex, vectorDim))
	r.handlers[domain.FunctionCoach] = dedupe(dedup, logger, ragHandler(logger, publisher, llmClient, vectorIndex, vectorDim))
	r.handlers[domain.FunctionTranslate] = dedupe(dedup, logger, translateHandler(logger, publisher, llmClient))
	r.handlers[domain.FunctionChat] = dedupe(dedup, logger, chatHandler(logger, publisher, llmClient))

	return r
}

// NewEmptyRegistry builds a Registry with no handlers wired, for tests
// that want to register fakes via Register.
func NewEmptyRegistry(logger *zap.Logger) *Registry {
	return &Registry{handlers: map[domain.Function]Handler{}, logger: logger}
}

// Register adds or replaces the handler for fn.
func (r *Registry) Register(fn domain.Function, h Handler) {
	r.handlers[fn] = h
}

// Dispatch routes task to its registered handler. When none is registered
// it logs a warning and returns domain.ErrUnknownFunction; no result is
// published for the task, and the worker pool nacks it to the dead-letter
// queue.
func (r *Registry) Dispatch(ctx context.Context, task *domain.Task) error {
	h, ok := r.handlers[task.Function]
	if !ok {
		r.logger.Warn("no handler registered for function", zap.String("function", string(task.Function)))
		return fmt.Errorf("%w: %s", domain.ErrUnknownFunction, task.Function)
	}
	return h(ctx, task)
}

func ragHandler(logger *zap.Logger, publisher broker.ResultPublisher, llmClient llm.Client, index repository.VectorIndex, dim int) Handler {
	return func(ctx context.Context, task *domain.Task) error {
		prompt := task.StringPayload("prompt")
		answer, err := retrieval.AnswerWithRAG(ctx, llmClient, index, prompt, task.VectorstoreID, dim)
		if err != nil {
			_ = publisher.PublishResult(ctx, failedResult(task, err))
			return err
		}

		result := domain.NewResult(task.JobID, domain.EventSucceeded, answer.Answer)
		result.Final = true
		result.Extensions = map[string]any{"evidence": answer.Evidence}
		return publisher.PublishResult(ctx, result)
	}
}

func translateHandler(logger *zap.Logger, publisher broker.ResultPublisher, llmClient llm.Client) Handler {
	return func(ctx context.Context, task *domain.Task) error {
		text := task.StringPayload("prompt")
		target := task.StringPayload("target_language")
		if target == "" {
			target = "English"
		}
		prompt := fmt.Sprintf("Translate the following text into %s. Only return the translation, nothing else.\n\n%s", target, text)

		translated, err := llmClient.GenerateContent(ctx, prompt)
		if err != nil {
			_ = publisher.PublishResult(ctx, failedResult(task, err))
			return err
		}

		result := domain.NewResult(task.JobID, domain.EventSucceeded, translated)
		result.Final = true
		return publisher.PublishResult(ctx, result)
	}
}

func chatHandler(logger *zap.Logger, publisher broker.ResultPublisher, llmClient llm.Client) Handler {
	return func(ctx context.Context, task *domain.Task) error {
		message := task.StringPayload("prompt")

		reply, err := llmClient.GenerateContent(ctx, message)
		if err != nil {
			_ = publisher.PublishResult(ctx, failedResult(task, err))
			return err
		}

		result := domain.NewResult(task.JobID, domain.EventSucceeded, reply)
		result.Final = true
		return publisher.PublishResult(ctx, result)
	}
}

func failedResult(task *domain.Task, err error) domain.Result {
	result := domain.NewResult(task.JobID, domain.EventFailed, "")
	result.Error = err.Error()
	result.Final = true
	return result
}
