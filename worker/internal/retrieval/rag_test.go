package retrieval_test

import (
	"context"
	"errors"
	"testing"

	llmmock "github.com/lxp-platform/fabric/worker/internal/llm/mock"
	"github.com/lxp-platform/fabric/worker/internal/repository"
	repomock "github.com/lxp-platform/fabric/worker/internal/repository/mock"
	"github.com/lxp-platform/fabric/worker/internal/retrieval"
)

func TestAnswerWithRAG_NoEvidenceReturnsApologyWithoutCallingLLM(t *testing.T) {
	llmClient := &llmmock.Client{}
	index := &repomock.VectorIndex{
		SearchFn: func(ctx context.Context, vectorstoreID string, vector []float32, topK int) ([]repository.Evidence, error) {
			return nil, nil
		},
	}

	answer, err := retrieval.AnswerWithRAG(context.Background(), llmClient, index, "환불 정책이 뭔가요?", "vs-1", 64)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(llmClient.Prompts) != 0 {
		t.Errorf("expected no LLM call when there is no evidence, got %d", len(llmClient.Prompts))
	}
	if answer.Answer == "" {
		t.Error("expected a non-empty fallback answer")
	}
}

func TestAnswerWithRAG_SynthesizesFromEvidence(t *testing.T) {
	llmClient := &llmmock.Client{GenerateContentFn: func(ctx context.Context, prompt string) (string, error) {
		return "환불은 구매 후 14일 이내 가능합니다.", nil
	}}
	index := &repomock.VectorIndex{
		SearchFn: func(ctx context.Context, vectorstoreID string, vector []float32, topK int) ([]repository.Evidence, error) {
			return []repository.Evidence{{Content: "환불 정책: 14일 이내", Filename: "policy.txt", Score: 0.95}}, nil
		},
	}

	answer, err := retrieval.AnswerWithRAG(context.Background(), llmClient, index, "환불 정책이 뭔가요?", "vs-1", 64)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer.Answer != "환불은 구매 후 14일 이내 가능합니다." {
		t.Errorf("unexpected answer: %q", answer.Answer)
	}
	if len(answer.Evidence) != 1 || answer.Evidence[0].Filename != "policy.txt" {
		t.Errorf("expected evidence to be threaded through, got %+v", answer.Evidence)
	}
}

func TestAnswerWithRAG_SearchErrorPropagates(t *testing.T) {
	llmClient := &llmmock.Client{}
	boom := errors.New("boom")
	index := &repomock.VectorIndex{
		SearchFn: func(ctx context.Context, vectorstoreID string, vector []float32, topK int) ([]repository.Evidence, error) {
			return nil, boom
		},
	}

	_, err := retrieval.AnswerWithRAG(context.Background(), llmClient, index, "q", "vs-1", 64)
	if !errors.Is(err, boom) {
		t.Fatalf("expected search error to propagate, got %v", err)
	}
}

func TestAnswerWithRAG_GenerationErrorReturnsGracefulAnswer(t *testing.T) {
	boom := errors.New("llm unavailable")
	llmClient := &llmmock.Client{GenerateContentFn: func(ctx context.Context, prompt string) (string, error) {
		return "", boom
	}}
	index := &repomock.VectorIndex{
		SearchFn: func(ctx context.Context, vectorstoreID string, vector []float32, topK int) ([]repository.Evidence, error) {
			return []repository.Evidence{{Content: "c", Filename: "f.txt", Score: 0.5}}, nil
		},
	}

	answer, err := retrieval.AnswerWithRAG(context.Background(), llmClient, index, "q", "vs-1", 64)
	if err != nil {
		t.Fatalf("expected a graceful answer instead of a propagated error, got %v", err)
	}
	if len(answer.Evidence) != 1 {
		t.Errorf("expected evidence to still be returned on generation failure")
	}
}
