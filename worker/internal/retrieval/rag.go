package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/lxp-platform/fabric/worker/internal/llm"
	"github.com/lxp-platform/fabric/worker/internal/repository"
)

// TopK matches the original's answer_with_rag default.
const TopK = 3

// Answer is the RAG pipeline's result, mirroring
// original_source/worker/AI_Simulation_Training/ai.py's answer_with_rag
// return shape.
type Answer struct {
	Answer   string
	Evidence []repository.Evidence
}

// AnswerWithRAG embeds prompt, searches vectorstoreID for the closest
// chunks, and asks the LLM to synthesize an answer grounded in them.
func AnswerWithRAG(ctx context.Context, client llm.Client, index repository.VectorIndex, prompt, vectorstoreID string, dim int) (*Answer, error) {
	queryVector := HashEmbed(prompt, dim)

	evidence, err := index.Search(ctx, vectorstoreID, queryVector, TopK)
	if err != nil {
		return nil, fmt.Errorf("retrieval: search: %w", err)
	}
	if len(evidence) == 0 {
		return &Answer{Answer: "I couldn't find any relevant information in the provided documents."}, nil
	}

	var ctxParts []string
	for _, e := range evidence {
		ctxParts = append(ctxParts, fmt.Sprintf("Source: %s\nContent: %s", e.Filename, e.Content))
	}

	ragPrompt := fmt.Sprintf(`Based on the following context, please provide a comprehensive answer to the user's question.
If the context does not contain the answer, say that you cannot answer based on the provided information.

Context:
---
%s
---

Question:
%s

Answer:`, strings.Join(ctxParts, "\n\n"), prompt)

	answer, err := client.GenerateContent(ctx, ragPrompt)
	if err != nil {
		return &Answer{Answer: fmt.Sprintf("Failed to generate answer: %v", err), Evidence: evidence}, nil
	}

	return &Answer{Answer: answer, Evidence: evidence}, nil
}
