package handlers_test

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	brokermock "github.com/lxp-platform/fabric/worker/internal/broker/mock"
	"github.com/lxp-platform/fabric/worker/internal/conversation"
	"github.com/lxp-platform/fabric/worker/internal/domain"
	"github.com/lxp-platform/fabric/worker/internal/handlers"
	llmmock "github.com/lxp-platform/fabric/worker/internal/llm/mock"
	"github.com/lxp-platform/fabric/worker/internal/memory"
	repomock "github.com/lxp-platform/fabric/worker/internal/repository/mock"
	sessionstoremock "github.com/lxp-platform/fabric/worker/internal/sessionstore/mock"
)

func newSimRegistry(t *testing.T, llmClient *llmmock.Client, minTurns int) (*handlers.Registry, *brokermock.ResultPublisher, *sessionstoremock.Store, *repomock.Analytics) {
	t.Helper()

	logger := zap.NewNop()
	publisher := &brokermock.ResultPublisher{}
	store := &sessionstoremock.Store{}
	analytics := &repomock.Analytics{}
	mgr := memory.New(10, 0.7, llmClient, &repomock.MemoryIndex{}, logger)
	engine := conversation.New(llmClient, mgr, minTurns)

	registry := handlers.NewRegistry(
		logger, publisher, store, engine, llmClient,
		&repomock.VectorIndex{}, analytics, time.Hour, 64, &repomock.DedupStore{},
	)

	return registry, publisher, store, analytics
}

func TestSimStart_GeneratesGreetingAndStartsAnalytics(t *testing.T) {
	llmClient := &llmmock.Client{GenerateContentFn: func(ctx context.Context, prompt string) (string, error) {
		return "안녕하세요, 구경하고 있어요.", nil
	}}
	registry, publisher, store, analytics := newSimRegistry(t, llmClient, 12)

	task := &domain.Task{
		JobID:       "job-1",
		SessionID:   "sess-1",
		UserID:      "user-1",
		Function:    domain.FunctionSim,
		SubFunction: handlers.SubFunctionStart,
		Payload:     map[string]any{"scenario": "intro_meeting"},
	}

	if err := registry.Dispatch(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(publisher.Results) != 1 || publisher.Results[0].Event != domain.EventGreeting {
		t.Fatalf("expected one greeting result, got %+v", publisher.Results)
	}
	if len(publisher.ChatResponses) != 1 {
		t.Fatalf("expected one chat-response fanout publish, got %d", len(publisher.ChatResponses))
	}
	if len(analytics.StartedSessions) != 1 {
		t.Fatalf("expected session_logs row to be started, got %d", len(analytics.StartedSessions))
	}

	state, err := store.Get(context.Background(), "sess-1")
	if err != nil || state == nil {
		t.Fatalf("expected session state to be persisted, err=%v state=%v", err, state)
	}
	if state.Status != domain.SessionAwaitingTurn {
		t.Errorf("expected status AWAITING_TURN, got %s", state.Status)
	}
}

func TestSimClose_UnknownSessionFails(t *testing.T) {
	llmClient := &llmmock.Client{}
	registry, publisher, _, _ := newSimRegistry(t, llmClient, 12)

	task := &domain.Task{
		JobID:       "job-2",
		SessionID:   "missing-session",
		Function:    domain.FunctionSim,
		SubFunction: handlers.SubFunctionClose,
	}

	err := registry.Dispatch(context.Background(), task)
	if err == nil {
		t.Fatal("expected an error dispatching close for an unknown session")
	}
	if len(publisher.Results) != 1 || publisher.Results[0].Event != domain.EventFailed {
		t.Fatalf("expected a failed result, got %+v", publisher.Results)
	}
}

func TestSimChat_ClosesAndScoresOnAutocloseToken(t *testing.T) {
	calls := 0
	llmClient := &llmmock.Client{GenerateContentFn: func(ctx context.Context, prompt string) (string, error) {
		calls++
		if calls == 1 {
			return "안녕하세요, 천천히 볼게요.", nil // greeting
		}
		return "수고하세요. <대화 종료>", nil // chat reply triggers autoclose once min turns met
	}}
	registry, publisher, _, analytics := newSimRegistry(t, llmClient, 1)

	start := &domain.Task{
		JobID: "job-3", SessionID: "sess-3", UserID: "user-3",
		Function: domain.FunctionSim, SubFunction: handlers.SubFunctionStart,
	}
	if err := registry.Dispatch(context.Background(), start); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	chat := &domain.Task{
		JobID: "job-4", SessionID: "sess-3", UserID: "user-3",
		Function: domain.FunctionSim, SubFunction: handlers.SubFunctionChat,
		Payload: map[string]any{"seller_msg": "감사합니다, 좋은 하루 되세요"},
	}
	if err := registry.Dispatch(context.Background(), chat); err != nil {
		t.Fatalf("chat failed: %v", err)
	}

	var sawMessageEnd bool
	for _, r := range publisher.Results {
		if r.Event == domain.EventMessageEnd {
			sawMessageEnd = true
		}
	}
	if !sawMessageEnd {
		t.Fatalf("expected a message_end result among %+v", publisher.Results)
	}

	last := publisher.Results[len(publisher.Results)-1]
	if last.Event != domain.EventEnd || !last.Final {
		t.Fatalf("expected a final end result closing the session, got %+v", last)
	}
	if len(analytics.EndedSessions) != 1 {
		t.Fatalf("expected the session to be scored and closed out, got %d", len(analytics.EndedSessions))
	}
}

func TestSimChat_PublishesBusyWhenAnotherJobIsAlreadyGenerating(t *testing.T) {
	llmClient := &llmmock.Client{}
	registry, publisher, store, _ := newSimRegistry(t, llmClient, 12)

	_, err := store.Update(context.Background(), "sess-5", time.Hour, func(s *domain.SessionState) error {
		s.SessionID = "sess-5"
		s.Status = domain.SessionGenerating
		s.GeneratingJobID = "job-already-running"
		return nil
	})
	if err != nil {
		t.Fatalf("seeding session state failed: %v", err)
	}

	chat := &domain.Task{
		JobID: "job-new", SessionID: "sess-5", UserID: "user-5",
		Function: domain.FunctionSim, SubFunction: handlers.SubFunctionChat,
		Payload: map[string]any{"seller_msg": "안녕하세요"},
	}
	if err := registry.Dispatch(context.Background(), chat); err != nil {
		t.Fatalf("expected busy to be handled without a terminal error, got %v", err)
	}

	if len(publisher.Results) != 1 || publisher.Results[0].Event != domain.EventBusy {
		t.Fatalf("expected a single busy result, got %+v", publisher.Results)
	}

	state, err := store.Get(context.Background(), "sess-5")
	if err != nil || state == nil {
		t.Fatalf("expected session state to still exist, err=%v state=%v", err, state)
	}
	if state.Status != domain.SessionGenerating {
		t.Errorf("expected the other job's GENERATING state to be left untouched, got %s", state.Status)
	}
}

func TestSimChat_ResumesSessionStuckGeneratingByTheSameJobID(t *testing.T) {
	llmClient := &llmmock.Client{}
	registry, publisher, store, _ := newSimRegistry(t, llmClient, 12)

	_, err := store.Update(context.Background(), "sess-6", time.Hour, func(s *domain.SessionState) error {
		s.SessionID = "sess-6"
		s.Status = domain.SessionGenerating
		s.GeneratingJobID = "job-crashed"
		return nil
	})
	if err != nil {
		t.Fatalf("seeding session state failed: %v", err)
	}

	chat := &domain.Task{
		JobID: "job-crashed", SessionID: "sess-6", UserID: "user-6",
		Function: domain.FunctionSim, SubFunction: handlers.SubFunctionChat,
		Payload: map[string]any{"seller_msg": "안녕하세요"},
	}
	if err := registry.Dispatch(context.Background(), chat); err != nil {
		t.Fatalf("expected resumed to be handled without a terminal error, got %v", err)
	}

	if len(publisher.Results) != 1 || publisher.Results[0].Event != domain.EventFailed {
		t.Fatalf("expected a single failed(resumed) result, got %+v", publisher.Results)
	}

	state, err := store.Get(context.Background(), "sess-6")
	if err != nil || state == nil {
		t.Fatalf("expected session state to still exist, err=%v state=%v", err, state)
	}
	if state.Status != domain.SessionAwaitingTurn {
		t.Errorf("expected the session to be reset to AWAITING_TURN, got %s", state.Status)
	}
	if state.GeneratingJobID != "" {
		t.Errorf("expected GeneratingJobID to be cleared, got %q", state.GeneratingJobID)
	}
}
