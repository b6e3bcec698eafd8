// Package memory is the hybrid memory manager: a recency buffer plus a
// rolling LLM-compressed summary plus a salience-gated vector store,
// grounded on
// original_source/worker/AI_Simulation_Training/memory.py's
// HybridMemoryManager (recency buffer, summary compression at 500
// chars, _is_important keyword gate, vector upsert/search). Vector
// storage is re-grounded from Qdrant onto the pgvector-backed
// MemoryIndex; embeddings use the same stable hash fallback as the
// Retrieval Adapter (DESIGN.md: no local sentence-embedding library is
// in the pack, so the deterministic hash embedder is reused here too).
package memory

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/lxp-platform/fabric/worker/internal/domain"
	"github.com/lxp-platform/fabric/worker/internal/llm"
	"github.com/lxp-platform/fabric/worker/internal/repository"
	"github.com/lxp-platform/fabric/worker/internal/retrieval"
)

// salienceKeywords gates which messages get written to the long-term
// vector store, ported verbatim from memory.py's _is_important list.
var salienceKeywords = []string{
	"예산", "가격", "할인", "결정", "구매", "고민", "선호", "경험", "문제", "요구사항", "조건", "제품명", "모델",
	"갤럭시", "비스포크", "QLED", "스마트싱스", "워치", "북", "불만", "만족", "추천", "비교", "성능", "디자인",
}

const (
	recentContextSize   = 5
	summaryCompressSize = 500
	embedDim            = 256
)

// Manager composes the recency/summary/vector memory layers over a
// session's mutable state.
type Manager struct {
	maxRecent           int
	similarityThreshold float64
	llm                 llm.Client
	index               repository.MemoryIndex
	logger              *zap.Logger
}

// New builds a Manager.
func New(maxRecent int, similarityThreshold float64, llmClient llm.Client, index repository.MemoryIndex, logger *zap.Logger) *Manager {
	return &Manager{maxRecent: maxRecent, similarityThreshold: similarityThreshold, llm: llmClient, index: index, logger: logger}
}

func isImportant(text string) bool {
	for _, k := range salienceKeywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// AddMessage appends a turn to state.History, evicting the oldest turn
// into the rolling summary once the recency buffer overflows, and
// writing it to the long-term vector store when it matches a salience
// keyword.
func (m *Manager) AddMessage(ctx context.Context, state *domain.SessionState, role, content string) {
	state.History = append(state.History, domain.Turn{Role: role, Content: content})

	if len(state.History) > m.maxRecent {
		evicted := state.History[0]
		state.History = state.History[1:]
		m.addToSummary(ctx, state, evicted)
	}

	if isImportant(content) {
		vector := retrieval.HashEmbed(content, embedDim)
		if err := m.index.Upsert(ctx, state.UserID, role, content, vector); err != nil {
			m.logger.Warn("memory: vector upsert failed", zap.Error(err))
		}
	}
}

func (m *Manager) addToSummary(ctx context.Context, state *domain.SessionState, evicted domain.Turn) {
	snippet := evicted.Content
	if r := []rune(snippet); len(r) > 100 {
		snippet = string(r[:100]) + "..."
	}
	entry := fmt.Sprintf("%s: %s", evicted.Role, snippet)
	if state.SummaryMemory == "" {
		state.SummaryMemory = entry
	} else {
		state.SummaryMemory = state.SummaryMemory + " | " + entry
	}

	if utf8.RuneCountInString(state.SummaryMemory) > summaryCompressSize {
		m.compressSummary(ctx, state)
	}
}

func (m *Manager) compressSummary(ctx context.Context, state *domain.SessionState) {
	prompt := fmt.Sprintf(`다음 대화 요약을 더 간결하게 압축해주세요. 중요한 정보는 유지하되 200자 이내로 요약해주세요:

%s`, state.SummaryMemory)

	compressed, err := m.llm.GenerateContent(ctx, prompt)
	if err != nil {
		m.logger.Warn("memory: summary compression failed", zap.Error(err))
		return
	}
	state.SummaryMemory = strings.TrimSpace(compressed)
}

// GetContext assembles the recent-conversation, rolling-summary and
// vector-search context blocks the conversation engine splices into its
// prompt, ported from memory.py's get_context.
func (m *Manager) GetContext(ctx context.Context, state *domain.SessionState, currentMessage string) string {
	var parts []string

	if n := len(state.History); n > 0 {
		start := 0
		if n > recentContextSize {
			start = n - recentContextSize
		}
		var lines []string
		for _, t := range state.History[start:] {
			lines = append(lines, fmt.Sprintf("%s: %s", t.Role, t.Content))
		}
		parts = append(parts, "[최근 대화]\n"+strings.Join(lines, "\n"))
	}

	if state.SummaryMemory != "" {
		parts = append(parts, "[이전 대화 요약]\n"+state.SummaryMemory)
	}

	vector := retrieval.HashEmbed(currentMessage, embedDim)
	hits, err := m.index.Search(ctx, state.UserID, vector, 3, m.similarityThreshold)
	if err != nil {
		m.logger.Warn("memory: vector search failed", zap.Error(err))
	} else if len(hits) > 0 {
		var lines []string
		for _, h := range hits {
			lines = append(lines, fmt.Sprintf("%s: %s", h.Role, h.Content))
		}
		parts = append(parts, "[관련 이전 정보]\n"+strings.Join(lines, "\n"))
	}

	return strings.Join(parts, "\n\n")
}
