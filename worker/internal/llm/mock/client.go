package mock

import (
	"context"

	"github.com/lxp-platform/fabric/worker/internal/llm"
)

var _ llm.Client = (*Client)(nil)

// Client is a test double for llm.Client.
type Client struct {
	GenerateContentFn func(ctx context.Context, prompt string) (string, error)
	EmbedFn           func(ctx context.Context, text string) ([]float32, error)

	Prompts []string
}

func (m *Client) GenerateContent(ctx context.Context, prompt string) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.GenerateContentFn != nil {
		return m.GenerateContentFn(ctx, prompt)
	}
	return "", nil
}

func (m *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.EmbedFn != nil {
		return m.EmbedFn(ctx, text)
	}
	return make([]float32, 8), nil
}
