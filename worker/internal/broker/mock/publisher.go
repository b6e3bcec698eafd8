package mock

import (
	"context"
	"sync"

	"github.com/lxp-platform/fabric/worker/internal/broker"
	"github.com/lxp-platform/fabric/worker/internal/domain"
)

var _ broker.ResultPublisher = (*ResultPublisher)(nil)

// ResultPublisher is a test double for broker.ResultPublisher.
type ResultPublisher struct {
	mu sync.Mutex

	PublishResultFn       func(ctx context.Context, result domain.Result) error
	PublishChatResponseFn func(ctx context.Context, payload map[string]any) error

	Results       []domain.Result
	ChatResponses []map[string]any
}

func (m *ResultPublisher) PublishResult(ctx context.Context, result domain.Result) error {
	m.mu.Lock()
	m.Results = append(m.Results, result)
	m.mu.Unlock()
	if m.PublishResultFn != nil {
		return m.PublishResultFn(ctx, result)
	}
	return nil
}

func (m *ResultPublisher) PublishChatResponse(ctx context.Context, payload map[string]any) error {
	m.mu.Lock()
	m.ChatResponses = append(m.ChatResponses, payload)
	m.mu.Unlock()
	if m.PublishChatResponseFn != nil {
		return m.PublishChatResponseFn(ctx, payload)
	}
	return nil
}

func (m *ResultPublisher) Close() error { return nil }
