package memory_test

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/lxp-platform/fabric/worker/internal/domain"
	llmmock "github.com/lxp-platform/fabric/worker/internal/llm/mock"
	"github.com/lxp-platform/fabric/worker/internal/memory"
	"github.com/lxp-platform/fabric/worker/internal/repository"
	repomock "github.com/lxp-platform/fabric/worker/internal/repository/mock"
)

func newState() *domain.SessionState {
	return &domain.SessionState{SessionID: "s1", UserID: "u1"}
}

func TestAddMessage_EvictsOldestIntoSummaryOnOverflow(t *testing.T) {
	index := &repomock.MemoryIndex{}
	m := memory.New(2, 0.7, &llmmock.Client{}, index, zap.NewNop())
	state := newState()

	m.AddMessage(context.Background(), state, "seller", "첫 메시지")
	m.AddMessage(context.Background(), state, "ai", "두번째 메시지")
	m.AddMessage(context.Background(), state, "seller", "세번째 메시지")

	if len(state.History) != 2 {
		t.Fatalf("expected history capped at 2, got %d", len(state.History))
	}
	if state.SummaryMemory == "" {
		t.Fatal("expected the evicted turn to be folded into the summary")
	}
	if !strings.Contains(state.SummaryMemory, "seller") {
		t.Errorf("expected summary to mention the evicted role, got %q", state.SummaryMemory)
	}
}

func TestAddMessage_SalienceGatesVectorUpsert(t *testing.T) {
	index := &repomock.MemoryIndex{}
	m := memory.New(10, 0.7, &llmmock.Client{}, index, zap.NewNop())
	state := newState()

	m.AddMessage(context.Background(), state, "seller", "오늘 날씨가 좋네요")
	if len(index.Entries) != 0 {
		t.Fatalf("expected no vector write for a non-salient message, got %d", len(index.Entries))
	}

	m.AddMessage(context.Background(), state, "seller", "예산은 얼마까지 가능하신가요?")
	if len(index.Entries) != 1 {
		t.Fatalf("expected one vector write for a salient message, got %d", len(index.Entries))
	}
}

func TestAddMessage_CompressesSummaryPastThreshold(t *testing.T) {
	index := &repomock.MemoryIndex{}
	llmClient := &llmmock.Client{
		GenerateContentFn: func(ctx context.Context, prompt string) (string, error) {
			return "간결한 요약", nil
		},
	}
	m := memory.New(1, 0.7, llmClient, index, zap.NewNop())
	state := newState()

	// Each evicted turn enters the summary as a 100-character snippet, so
	// five evictions are needed to pass the 500-character threshold.
	long := strings.Repeat("가", 600)
	for _, role := range []string{"seller", "ai", "seller", "ai", "seller", "ai"} {
		m.AddMessage(context.Background(), state, role, long)
	}

	if state.SummaryMemory != "간결한 요약" {
		t.Errorf("expected the summary to be replaced by the compressed text, got %q", state.SummaryMemory)
	}
}

func TestGetContext_IncludesRecentSummaryAndVectorHits(t *testing.T) {
	index := &repomock.MemoryIndex{
		SearchFn: func(ctx context.Context, userID string, vector []float32, topK int, threshold float64) ([]repository.MemoryHit, error) {
			return []repository.MemoryHit{{Role: "seller", Content: "예산은 3백만원 정도입니다", Score: 0.9}}, nil
		},
	}
	m := memory.New(10, 0.7, &llmmock.Client{}, index, zap.NewNop())
	state := newState()
	state.SummaryMemory = "이전에 TV를 찾고 있었음"
	state.History = []domain.Turn{{Role: "ai", Content: "안녕하세요"}}

	ctxStr := m.GetContext(context.Background(), state, "예산이 얼마인가요?")

	for _, want := range []string{"[최근 대화]", "[이전 대화 요약]", "[관련 이전 정보]", "예산은 3백만원"} {
		if !strings.Contains(ctxStr, want) {
			t.Errorf("expected context to contain %q, got %q", want, ctxStr)
		}
	}
}
