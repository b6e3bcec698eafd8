package mock

import (
	"context"
	"sync"

	"github.com/lxp-platform/fabric/api/internal/broker"
	"github.com/lxp-platform/fabric/api/internal/domain"
)

var _ broker.Publisher = (*Publisher)(nil)

// Publisher is a test double for broker.Publisher.
type Publisher struct {
	mu sync.Mutex

	PublishTaskFn        func(ctx context.Context, task *domain.Task) error
	PublishChatMessageFn func(ctx context.Context, payload map[string]any) error

	Tasks        []*domain.Task
	ChatMessages []map[string]any
}

func (m *Publisher) PublishTask(ctx context.Context, task *domain.Task) error {
	m.mu.Lock()
	m.Tasks = append(m.Tasks, task)
	m.mu.Unlock()
	if m.PublishTaskFn != nil {
		return m.PublishTaskFn(ctx, task)
	}
	return nil
}

func (m *Publisher) PublishChatMessage(ctx context.Context, payload map[string]any) error {
	m.mu.Lock()
	m.ChatMessages = append(m.ChatMessages, payload)
	m.mu.Unlock()
	if m.PublishChatMessageFn != nil {
		return m.PublishChatMessageFn(ctx, payload)
	}
	return nil
}

func (m *Publisher) Close() error { return nil }
