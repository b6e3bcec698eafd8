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
)

// SubmitTask is the Dispatcher's generic handler for POST /{function}: it
// validates the request, creates a job_id and thread, publishes a Task,
// and returns immediately without waiting for completion.
type SubmitTask struct {
	Publisher  broker.Publisher
	Documents  repository.DocumentStore
	Logger     *zap.Logger
}

// NewSubmitTask builds a SubmitTask use case.
func NewSubmitTask(pub broker.Publisher, docs repository.DocumentStore, logger *zap.Logger) *SubmitTask {
	return &SubmitTask{Publisher: pub, Documents: docs, Logger: logger}
}

// Execute validates req against function/sub_function whitelists, persists
// a thread record, publishes the task, and returns the job/thread IDs.
func (u *SubmitTask) Execute(ctx context.Context, function string, req domain.SubmitRequest) (*domain.SubmitResponse, error) {
	fn := domain.Function(function)
	if !fn.IsValid() {
		return nil, domain.ErrInvalidFunction
	}
	if req.UserID == "" {
		return nil, domain.ErrEmptyUserID
	}
	if !fn.IsValidSubFunction(req.SubFunction) {
		return nil, domain.ErrInvalidSubFunction
	}
	if req.VectorstoreID != "" && !isValidIdentifier(req.VectorstoreID) {
		return nil, domain.ErrInvalidVectorstoreID
	}

	threadID, err := u.Documents.CreateThread(ctx, req.UserID, fn)
	if err != nil {
		return nil, fmt.Errorf("usecase: create thread: %w", err)
	}
	if err := u.Documents.SetLatestThreadForUser(ctx, req.UserID, threadID); err != nil {
		return nil, fmt.Errorf("usecase: set latest thread: %w", err)
	}

	jobID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("usecase: generate job id: %w", err)
	}

	task := &domain.Task{
		JobID:         jobID.String(),
		UserID:        req.UserID,
		ThreadID:      threadID,
		Function:      fn,
		SubFunction:   req.SubFunction,
		Payload:       buildPayload(req),
		VectorstoreID: req.VectorstoreID,
		Files:         req.Files,
		CreatedAt:     time.Now().UTC(),
	}

	if err := u.Publisher.PublishTask(ctx, task); err != nil {
		u.Logger.Error("submit task: publish failed", zap.Error(err), zap.String("job_id", task.JobID))
		return nil, err
	}

	return &domain.SubmitResponse{
		JobID:     task.JobID,
		ThreadID:  threadID,
		StatusURL: fmt.Sprintf("/events/jobs/%s", task.JobID),
	}, nil
}

func buildPayload(req domain.SubmitRequest) map[string]any {
	payload := make(map[string]any, len(req.Params)+1)
	for k, v := range req.Params {
		payload[k] = v
	}
	if req.Prompt != "" {
		payload["prompt"] = req.Prompt
	}
	return payload
}

// isValidIdentifier mirrors the syntactic check spec §4.4 requires for a
// vectorstore_id: non-empty, printable, no path or whitespace characters.
func isValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r <= ' ' || r == '/' || r == '\\' {
			return false
		}
	}
	return true
}
