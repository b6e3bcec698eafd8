package conversation_test

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/lxp-platform/fabric/worker/internal/conversation"
	"github.com/lxp-platform/fabric/worker/internal/domain"
	llmmock "github.com/lxp-platform/fabric/worker/internal/llm/mock"
	"github.com/lxp-platform/fabric/worker/internal/memory"
	repomock "github.com/lxp-platform/fabric/worker/internal/repository/mock"
)

func newEngine(t *testing.T, llmClient *llmmock.Client, minTurns int) *conversation.Engine {
	t.Helper()
	mgr := memory.New(10, 0.7, llmClient, &repomock.MemoryIndex{}, zap.NewNop())
	return conversation.New(llmClient, mgr, minTurns)
}

func newState() *domain.SessionState {
	return &domain.SessionState{
		SessionID: "s1",
		UserID:    "u1",
		Scenario:  "intro_meeting",
		Persona: domain.Persona{
			Type: "실속형", Gender: "여성", AgeGroup: "30대", Personality: "신중한",
			Tech: "중", Goal: "신혼 가전 마련", Usage: "가족용",
		},
	}
}

func TestStartSession_GeneratesGreetingAndAdvancesStatus(t *testing.T) {
	llmClient := &llmmock.Client{GenerateContentFn: func(ctx context.Context, prompt string) (string, error) {
		return "  어서오세요, 둘러보고 있어요.  ", nil
	}}
	engine := newEngine(t, llmClient, 12)
	state := newState()

	greeting, err := engine.StartSession(context.Background(), state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if greeting != "어서오세요, 둘러보고 있어요." {
		t.Errorf("expected trimmed greeting, got %q", greeting)
	}
	if state.Status != domain.SessionAwaitingTurn {
		t.Errorf("expected status AWAITING_TURN after greeting, got %s", state.Status)
	}
	if len(state.History) != 1 || state.History[0].Role != "ai" {
		t.Errorf("expected the greeting to be recorded in history, got %+v", state.History)
	}
	if len(llmClient.Prompts) != 1 {
		t.Fatalf("expected exactly one LLM call, got %d", len(llmClient.Prompts))
	}
	if !strings.Contains(llmClient.Prompts[0], state.Persona.AgeGroup) {
		t.Errorf("expected the rendered system prompt to mention the persona's age group")
	}
}

func TestRespond_ReturnsReplyAndRecordsBothTurns(t *testing.T) {
	llmClient := &llmmock.Client{GenerateContentFn: func(ctx context.Context, prompt string) (string, error) {
		return "그 가격은 조금 부담스럽네요.", nil
	}}
	engine := newEngine(t, llmClient, 12)
	state := newState()
	state.Status = domain.SessionAwaitingTurn

	reply, closed, err := engine.Respond(context.Background(), state, "이 모델은 150만원입니다.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if closed {
		t.Error("expected the conversation to remain open before minDialogueTurns is reached")
	}
	if reply == "" {
		t.Error("expected a non-empty reply")
	}
	if len(state.History) != 2 {
		t.Fatalf("expected both the seller and ai turns recorded, got %d", len(state.History))
	}
	if state.Status != domain.SessionAwaitingTurn {
		t.Errorf("expected status AWAITING_TURN after a response, got %s", state.Status)
	}
}

func TestRespond_OnClosedSessionReturnsError(t *testing.T) {
	engine := newEngine(t, &llmmock.Client{}, 12)
	state := newState()
	state.Status = domain.SessionClosed

	_, closed, err := engine.Respond(context.Background(), state, "아직 거기 계세요?")
	if err != domain.ErrSessionClosed {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}
	if !closed {
		t.Error("expected closed=true for an already-closed session")
	}
}

func TestRespond_AutoclosesOnTokenPastMinDialogueLength(t *testing.T) {
	llmClient := &llmmock.Client{GenerateContentFn: func(ctx context.Context, prompt string) (string, error) {
		return "오늘은 여기까지 할게요. <대화 종료>", nil
	}}
	engine := newEngine(t, llmClient, 2)
	state := newState()
	state.Status = domain.SessionAwaitingTurn
	state.History = []domain.Turn{{Role: "seller", Content: "a"}, {Role: "ai", Content: "b"}}

	_, closed, err := engine.Respond(context.Background(), state, "감사합니다")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !closed {
		t.Error("expected the conversation to auto-close once the token appears past minDialogueTurns")
	}
	if state.Status != domain.SessionClosed {
		t.Errorf("expected status CLOSED, got %s", state.Status)
	}
}

func TestRespond_DoesNotAutocloseBelowMinDialogueLength(t *testing.T) {
	llmClient := &llmmock.Client{GenerateContentFn: func(ctx context.Context, prompt string) (string, error) {
		return "어머, 벌써요? <대화 종료>", nil
	}}
	engine := newEngine(t, llmClient, 12)
	state := newState()
	state.Status = domain.SessionAwaitingTurn

	_, closed, err := engine.Respond(context.Background(), state, "오늘 상담은 여기까지 할게요")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if closed {
		t.Error("expected the close token to be ignored before minDialogueTurns is reached")
	}
}

func TestAnalyzeConversation_ExtractsScore(t *testing.T) {
	llmClient := &llmmock.Client{GenerateContentFn: func(ctx context.Context, prompt string) (string, error) {
		return "항목별 평가...\n총점: 78", nil
	}}
	engine := newEngine(t, llmClient, 12)
	state := newState()
	state.History = []domain.Turn{{Role: "seller", Content: "안녕하세요"}, {Role: "ai", Content: "네 안녕하세요"}}

	analysis, err := engine.AnalyzeConversation(context.Background(), state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if analysis.Score != 78 {
		t.Errorf("expected score 78, got %d", analysis.Score)
	}
}

func TestAnalyzeConversation_UnparsableScoreDefaultsToZero(t *testing.T) {
	llmClient := &llmmock.Client{GenerateContentFn: func(ctx context.Context, prompt string) (string, error) {
		return "설명만 있고 점수는 없음", nil
	}}
	engine := newEngine(t, llmClient, 12)
	state := newState()

	analysis, err := engine.AnalyzeConversation(context.Background(), state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if analysis.Score != 0 {
		t.Errorf("expected score to default to 0, got %d", analysis.Score)
	}
}
