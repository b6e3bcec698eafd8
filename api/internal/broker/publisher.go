package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/lxp-platform/fabric/api/internal/domain"
)

const (
	// Reconnection settings for the background connection watcher.
	reconnectDelay    = 2 * time.Second
	maxReconnectDelay = 30 * time.Second

	// Per-publish confirmation timeout.
	publishTimeout = 5 * time.Second

	// Per-publish retry policy (spec.md §4.1): 5 attempts, 100ms base,
	// 5s cap, exponential backoff.
	publishRetries   = 5
	publishBaseDelay = 100 * time.Millisecond
	publishMaxDelay  = 5 * time.Second
)

// Publisher is the Broker Adapter's publish-side contract.
type Publisher interface {
	PublishTask(ctx context.Context, task *domain.Task) error
	PublishChatMessage(ctx context.Context, payload map[string]any) error
	Close() error
}

type rabbitPublisher struct {
	url     string
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *zap.Logger
	mu      sync.RWMutex
	closed  bool
}

// NewRabbitMQPublisher dials RabbitMQ, declares the platform topology, and
// starts a background connection watcher.
func NewRabbitMQPublisher(url string, logger *zap.Logger) (Publisher, error) {
	p := &rabbitPublisher{url: url, logger: logger}

	if err := p.connect(); err != nil {
		return nil, err
	}

	go p.watchConnection()

	return p, nil
}

func (p *rabbitPublisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("broker: dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("broker: channel: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("broker: enable confirms: %w", err)
	}

	if err := DeclareTopology(ch); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("broker: declare topology: %w", err)
	}

	p.mu.Lock()
	p.conn = conn
	p.channel = ch
	p.mu.Unlock()

	p.logger.Info("broker publisher initialized", zap.String("url_host", safeHost(p.url)))
	return nil
}

func safeHost(url string) string {
	// Avoid logging credentials embedded in the AMQP URL.
	at := -1
	for i, c := range url {
		if c == '@' {
			at = i
		}
	}
	if at == -1 {
		return url
	}
	return url[at+1:]
}

func (p *rabbitPublisher) watchConnection() {
	for {
		p.mu.RLock()
		if p.closed {
			p.mu.RUnlock()
			return
		}
		conn := p.conn
		p.mu.RUnlock()

		if conn == nil {
			time.Sleep(reconnectDelay)
			continue
		}

		reason, ok := <-conn.NotifyClose(make(chan *amqp.Error))
		if !ok {
			return
		}

		p.logger.Warn("broker connection lost, reconnecting", zap.Error(reason))

		delay := reconnectDelay
		for {
			p.mu.RLock()
			if p.closed {
				p.mu.RUnlock()
				return
			}
			p.mu.RUnlock()

			time.Sleep(delay)

			if err := p.connect(); err != nil {
				p.logger.Warn("broker reconnect failed", zap.Error(err), zap.Duration("retry_in", delay))
				delay *= 2
				if delay > maxReconnectDelay {
					delay = maxReconnectDelay
				}
				continue
			}

			p.logger.Info("broker reconnected")
			break
		}
	}
}

func (p *rabbitPublisher) publish(ctx context.Context, exchange, routingKey string, body []byte, messageID string) error {
	delay := publishBaseDelay
	var lastErr error

	for attempt := 0; attempt < publishRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
			if delay > publishMaxDelay {
				delay = publishMaxDelay
			}
		}

		p.mu.RLock()
		ch := p.channel
		p.mu.RUnlock()

		if ch == nil {
			lastErr = fmt.Errorf("broker: channel not available (reconnecting)")
			continue
		}

		confirm := ch.NotifyPublish(make(chan amqp.Confirmation, 1))

		publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		err := ch.PublishWithContext(publishCtx,
			exchange,
			routingKey,
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    messageID,
				Timestamp:    time.Now(),
				Body:         body,
			},
		)
		if err != nil {
			cancel()
			lastErr = fmt.Errorf("broker: publish: %w", err)
			continue
		}

		select {
		case ack := <-confirm:
			cancel()
			if !ack.Ack {
				lastErr = fmt.Errorf("broker: broker nacked message (id=%s)", messageID)
				continue
			}
			return nil
		case <-publishCtx.Done():
			cancel()
			lastErr = fmt.Errorf("broker: publish confirmation timeout (id=%s)", messageID)
			continue
		}
	}

	return fmt.Errorf("%w: %v", domain.ErrBrokerUnavailable, lastErr)
}

func (p *rabbitPublisher) PublishTask(ctx context.Context, task *domain.Task) error {
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("broker: marshal task: %w", err)
	}

	routingKey := task.DeriveRoutingKey()
	if err := p.publish(ctx, TasksExchange, routingKey, body, task.JobID); err != nil {
		return err
	}

	p.logger.Debug("published task",
		zap.String("job_id", task.JobID),
		zap.String("routing_key", routingKey),
	)
	return nil
}

func (p *rabbitPublisher) PublishChatMessage(ctx context.Context, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("broker: marshal chat message: %w", err)
	}
	return p.publish(ctx, ChatMessagesExchange, "request", body, fmt.Sprintf("%v", payload["session_id"]))
}

func (p *rabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true

	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
