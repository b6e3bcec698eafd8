// Package llm is a thin wrapper around the chat-completions vendor used
// by both the Conversation Engine's generation/scoring calls and the
// Retrieval Adapter's answer_with_rag step. It stands in for the
// original's google.generativeai client (see DESIGN.md for why
// sashabaranov/go-openai was adopted instead); the one-shot,
// non-token-streamed `GenerateContent` shape it exposes preserves the
// original's stream_response/generate_content behavior of returning one
// complete string.
package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Client generates complete chat completions from a single prompt.
type Client interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Embed(ctx context.Context, text string) ([]float32, error)
}

type openAIClient struct {
	client *openai.Client
	model  string
}

// New builds a Client against the configured vendor base URL and model.
func New(apiKey, apiBase, model string) Client {
	cfg := openai.DefaultConfig(apiKey)
	if apiBase != "" {
		cfg.BaseURL = apiBase
	}
	return &openAIClient{client: openai.NewClientWithConfig(cfg), model: model}
}

func (c *openAIClient) GenerateContent(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("llm: generate content: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *openAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.AdaEmbeddingV2,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: embed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("llm: empty embedding response")
	}
	return resp.Data[0].Embedding, nil
}
