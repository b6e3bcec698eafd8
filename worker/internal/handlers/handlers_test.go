package handlers_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	brokermock "github.com/lxp-platform/fabric/worker/internal/broker/mock"
	"github.com/lxp-platform/fabric/worker/internal/conversation"
	"github.com/lxp-platform/fabric/worker/internal/domain"
	"github.com/lxp-platform/fabric/worker/internal/handlers"
	llmmock "github.com/lxp-platform/fabric/worker/internal/llm/mock"
	"github.com/lxp-platform/fabric/worker/internal/memory"
	"github.com/lxp-platform/fabric/worker/internal/repository"
	repomock "github.com/lxp-platform/fabric/worker/internal/repository/mock"
	sessionstoremock "github.com/lxp-platform/fabric/worker/internal/sessionstore/mock"
)

func newFullRegistry(t *testing.T, llmClient *llmmock.Client, index repository.VectorIndex) (*handlers.Registry, *brokermock.ResultPublisher) {
	t.Helper()
	logger := zap.NewNop()
	publisher := &brokermock.ResultPublisher{}
	store := &sessionstoremock.Store{}
	mgr := memory.New(10, 0.7, llmClient, &repomock.MemoryIndex{}, logger)
	engine := conversation.New(llmClient, mgr, 12)

	registry := handlers.NewRegistry(
		logger, publisher, store, engine, llmClient,
		index, &repomock.Analytics{}, time.Hour, 64, &repomock.DedupStore{},
	)
	return registry, publisher
}

func TestRagHandler_PublishesAnswerWithEvidence(t *testing.T) {
	llmClient := &llmmock.Client{GenerateContentFn: func(ctx context.Context, prompt string) (string, error) {
		return "설치 기사님이 방문하여 설치해드립니다.", nil
	}}
	index := &repomock.VectorIndex{SearchFn: func(ctx context.Context, vectorstoreID string, vector []float32, topK int) ([]repository.Evidence, error) {
		return []repository.Evidence{{Content: "설치 안내", Filename: "manual.pdf", Score: 0.8}}, nil
	}}
	registry, publisher := newFullRegistry(t, llmClient, index)

	task := &domain.Task{JobID: "job-1", Function: domain.FunctionAssist, VectorstoreID: "vs-1", Payload: map[string]any{"prompt": "설치는 어떻게 하나요?"}}
	if err := registry.Dispatch(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(publisher.Results) != 1 {
		t.Fatalf("expected one result, got %d", len(publisher.Results))
	}
	result := publisher.Results[0]
	if result.Event != domain.EventSucceeded || !result.Final {
		t.Errorf("expected a final succeeded result, got %+v", result)
	}
	if _, ok := result.Extensions["evidence"]; !ok {
		t.Error("expected evidence to be attached as an extension")
	}
}

func TestRagHandler_SearchErrorPublishesFailedResult(t *testing.T) {
	llmClient := &llmmock.Client{}
	boom := errors.New("index unavailable")
	index := &repomock.VectorIndex{SearchFn: func(ctx context.Context, vectorstoreID string, vector []float32, topK int) ([]repository.Evidence, error) {
		return nil, boom
	}}
	registry, publisher := newFullRegistry(t, llmClient, index)

	task := &domain.Task{JobID: "job-2", Function: domain.FunctionGalaxy, VectorstoreID: "vs-1", Payload: map[string]any{"prompt": "q"}}
	if err := registry.Dispatch(context.Background(), task); err == nil {
		t.Fatal("expected an error to propagate")
	}

	if len(publisher.Results) != 1 || publisher.Results[0].Event != domain.EventFailed {
		t.Fatalf("expected a failed result, got %+v", publisher.Results)
	}
}

func TestTranslateHandler_DefaultsTargetLanguageAndPublishesTranslation(t *testing.T) {
	var seenPrompt string
	llmClient := &llmmock.Client{GenerateContentFn: func(ctx context.Context, prompt string) (string, error) {
		seenPrompt = prompt
		return "Hello, how can I help you?", nil
	}}
	registry, publisher := newFullRegistry(t, llmClient, &repomock.VectorIndex{})

	task := &domain.Task{JobID: "job-3", Function: domain.FunctionTranslate, Payload: map[string]any{"prompt": "안녕하세요, 무엇을 도와드릴까요?"}}
	if err := registry.Dispatch(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if seenPrompt == "" {
		t.Fatal("expected the LLM to be called")
	}
	if publisher.Results[0].Chunk != "Hello, how can I help you?" {
		t.Errorf("unexpected output: %q", publisher.Results[0].Chunk)
	}
}

func TestChatHandler_PublishesReply(t *testing.T) {
	llmClient := &llmmock.Client{GenerateContentFn: func(ctx context.Context, prompt string) (string, error) {
		return "반갑습니다!", nil
	}}
	registry, publisher := newFullRegistry(t, llmClient, &repomock.VectorIndex{})

	task := &domain.Task{JobID: "job-4", Function: domain.FunctionChat, Payload: map[string]any{"prompt": "안녕"}}
	if err := registry.Dispatch(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(publisher.Results) != 1 || publisher.Results[0].Chunk != "반갑습니다!" {
		t.Fatalf("unexpected result: %+v", publisher.Results)
	}
}

func TestDispatch_UnknownFunctionReturnsError(t *testing.T) {
	registry, _ := newFullRegistry(t, &llmmock.Client{}, &repomock.VectorIndex{})

	task := &domain.Task{JobID: "job-5", Function: domain.Function("does-not-exist")}
	err := registry.Dispatch(context.Background(), task)
	if !errors.Is(err, domain.ErrUnknownFunction) {
		t.Fatalf("expected ErrUnknownFunction, got %v", err)
	}
}

func TestDedupe_SecondDeliveryOfSameJobIsANoOp(t *testing.T) {
	calls := 0
	llmClient := &llmmock.Client{GenerateContentFn: func(ctx context.Context, prompt string) (string, error) {
		calls++
		return "응답", nil
	}}

	logger := zap.NewNop()
	publisher := &brokermock.ResultPublisher{}
	store := &sessionstoremock.Store{}
	mgr := memory.New(10, 0.7, llmClient, &repomock.MemoryIndex{}, logger)
	engine := conversation.New(llmClient, mgr, 12)

	seen := map[string]bool{}
	dedup := &repomock.DedupStore{AcquireLockFn: func(ctx context.Context, jobID string) (bool, error) {
		if seen[jobID] {
			return false, nil
		}
		seen[jobID] = true
		return true, nil
	}}
	registry := handlers.NewRegistry(
		logger, publisher, store, engine, llmClient,
		&repomock.VectorIndex{}, &repomock.Analytics{}, time.Hour, 64, dedup,
	)

	task := &domain.Task{JobID: "dup-job", Function: domain.FunctionChat, Payload: map[string]any{"prompt": "안녕"}}
	if err := registry.Dispatch(context.Background(), task); err != nil {
		t.Fatalf("first dispatch failed: %v", err)
	}
	if err := registry.Dispatch(context.Background(), task); err != nil {
		t.Fatalf("redelivered dispatch failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected the handler to run exactly once despite redelivery, ran %d times", calls)
	}
}
