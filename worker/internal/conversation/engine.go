// Package conversation drives the Korean sales-persona simulation state
// machine, grounded on
// original_source/worker/AI_Simulation_Training/ai.py's SalesPersonaAI:
// _build_prompt, stream_response, maybe_autoclose, analyze_conversation
// and generate_first_greeting.
package conversation

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/lxp-platform/fabric/worker/internal/domain"
	"github.com/lxp-platform/fabric/worker/internal/llm"
	"github.com/lxp-platform/fabric/worker/internal/memory"
	"github.com/lxp-platform/fabric/worker/internal/persona"
)

// minDialogueLengthDefault is New's fallback auto-close gate: the session needs at least this
// many turns before the engine will honor a <대화 종료> token.
const minDialogueLengthDefault = 12

// autocloseToken is the literal marker the persona model emits when it
// wants to end the simulated conversation.
const autocloseToken = "<대화 종료>"

// Engine drives one simulated conversation's state transitions.
type Engine struct {
	llm              llm.Client
	memory           *memory.Manager
	minDialogueTurns int
}

// New builds an Engine.
func New(llmClient llm.Client, memoryManager *memory.Manager, minDialogueTurns int) *Engine {
	if minDialogueTurns <= 0 {
		minDialogueTurns = minDialogueLengthDefault
	}
	return &Engine{llm: llmClient, memory: memoryManager, minDialogueTurns: minDialogueTurns}
}

type promptFields struct {
	AgeGroup     string
	Gender       string
	Personality  string
	Tech         string
	Goal         string
	Usage        string
	Type         string
	ScenarioDesc string
}

func (e *Engine) buildSystemPrompt(state *domain.SessionState) (string, error) {
	var buf bytes.Buffer
	fields := promptFields{
		AgeGroup:     state.Persona.AgeGroup,
		Gender:       state.Persona.Gender,
		Personality:  state.Persona.Personality,
		Tech:         state.Persona.Tech,
		Goal:         state.Persona.Goal,
		Usage:        state.Persona.Usage,
		Type:         state.Persona.Type,
		ScenarioDesc: persona.ScenarioDescription(state.Scenario),
	}
	if err := persona.SystemPrompt.Execute(&buf, fields); err != nil {
		return "", fmt.Errorf("conversation: render system prompt: %w", err)
	}
	return buf.String(), nil
}

// buildPrompt composes the full prompt handed to the LLM: system prompt
// plus memory context plus the new seller message, mirroring
// _build_prompt's structure.
func (e *Engine) buildPrompt(ctx context.Context, state *domain.SessionState, sellerMessage string) (string, error) {
	systemPrompt, err := e.buildSystemPrompt(state)
	if err != nil {
		return "", err
	}

	memoryContext := e.memory.GetContext(ctx, state, sellerMessage)

	var b strings.Builder
	b.WriteString(systemPrompt)
	if memoryContext != "" {
		b.WriteString("\n\n# 대화 기록\n")
		b.WriteString(memoryContext)
	}
	b.WriteString("\n\n판매자: ")
	b.WriteString(sellerMessage)
	b.WriteString("\n고객:")
	return b.String(), nil
}

// StartSession initializes a new session: assigns a random persona and
// scenario (when not already pinned on state) and generates the
// opening greeting.
func (e *Engine) StartSession(ctx context.Context, state *domain.SessionState) (string, error) {
	if state.Persona == (domain.Persona{}) {
		state.Persona = persona.RandomPersona()
	}
	if state.Scenario == "" {
		for key := range persona.Scenarios {
			state.Scenario = key
			break
		}
	}
	state.Status = domain.SessionGreeting

	systemPrompt, err := e.buildSystemPrompt(state)
	if err != nil {
		return "", err
	}
	greeting, err := e.llm.GenerateContent(ctx, systemPrompt+"\n\n매장을 처음 방문한 상황입니다. 고객으로서 짧게 인사해주세요.\n고객:")
	if err != nil {
		return "", fmt.Errorf("conversation: generate greeting: %w", err)
	}
	greeting = strings.TrimSpace(greeting)

	e.memory.AddMessage(ctx, state, "ai", greeting)
	state.Status = domain.SessionAwaitingTurn
	return greeting, nil
}

// Respond answers one seller turn: builds the full prompt, calls the
// LLM once (stream_response is one-shot in the original, not
// token-streamed), records both turns in memory, and checks for
// auto-close.
func (e *Engine) Respond(ctx context.Context, state *domain.SessionState, sellerMessage string) (reply string, closed bool, err error) {
	if state.IsClosed() {
		return "", true, domain.ErrSessionClosed
	}

	state.Status = domain.SessionGenerating
	e.memory.AddMessage(ctx, state, "seller", sellerMessage)

	prompt, err := e.buildPrompt(ctx, state, sellerMessage)
	if err != nil {
		return "", false, err
	}

	reply, err = e.llm.GenerateContent(ctx, prompt)
	if err != nil {
		return "", false, fmt.Errorf("conversation: generate content: %w", err)
	}
	reply = strings.TrimSpace(reply)

	e.memory.AddMessage(ctx, state, "ai", reply)
	state.LastActivity = time.Now()

	closed = e.maybeAutoclose(state, reply)
	if closed {
		state.Status = domain.SessionClosed
	} else {
		state.Status = domain.SessionAwaitingTurn
	}
	return reply, closed, nil
}

// maybeAutoclose reports whether the conversation should end, gated by
// minDialogueTurns and the literal autocloseToken appearing in the
// latest AI message, per maybe_autoclose.
func (e *Engine) maybeAutoclose(state *domain.SessionState, latestReply string) bool {
	if len(state.History) < e.minDialogueTurns {
		return false
	}
	return strings.Contains(latestReply, autocloseToken)
}

var scorePatterns = []*regexp.Regexp{
	regexp.MustCompile(`총점[:\s]*(\d+)`),
	regexp.MustCompile(`점수[:\s]*(\d+)`),
	regexp.MustCompile(`score[:\s]*(\d+)`),
}

// Analysis is the scored outcome of a closed conversation.
type Analysis struct {
	Score    int
	Feedback string
}

// AnalyzeConversation scores a completed conversation against a fixed
// Korean sales rubric, extracting the numeric score via regex from the
// LLM's free-text response, ported from analyze_conversation.
func (e *Engine) AnalyzeConversation(ctx context.Context, state *domain.SessionState) (*Analysis, error) {
	var transcript strings.Builder
	for _, t := range state.History {
		transcript.WriteString(fmt.Sprintf("%s: %s\n", t.Role, t.Content))
	}

	prompt := fmt.Sprintf(`다음은 판매자와 고객(AI 시뮬레이션) 간의 판매 상담 대화입니다. 판매자의 상담 역량을 평가해주세요.

평가 기준:
1. 고객 니즈 파악 (0~20점)
2. 제품 설명의 정확성 및 적합성 (0~20점)
3. 반론 처리 능력 (0~20점)
4. 신뢰 형성 및 공감 능력 (0~20점)
5. 클로징 역량 (0~20점)

대화 내용:
%s

각 항목별 점수와 총평을 작성하고, 마지막 줄에 "총점: N" 형식으로 100점 만점 총점을 명시해주세요.`, transcript.String())

	feedback, err := e.llm.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("conversation: analyze: %w", err)
	}

	score := extractScore(feedback)
	return &Analysis{Score: score, Feedback: strings.TrimSpace(feedback)}, nil
}

func extractScore(text string) int {
	for _, re := range scorePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n
			}
		}
	}
	return 0
}
