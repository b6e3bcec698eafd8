package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/lxp-platform/fabric/worker/internal/domain"
)

const (
	reconnectDelay    = 2 * time.Second
	maxPublishDelay   = 30 * time.Second
	publishTimeout    = 5 * time.Second
	publishRetries    = 5
	publishBaseDelay  = 100 * time.Millisecond
	publishMaxBackoff = 5 * time.Second
)

// ResultPublisher is the worker's side of the Broker Adapter: it forwards
// conversation/task output onto the results exchange for the Result
// Router to pick up, mirroring the dispatcher's publish-with-confirms and
// bounded-retry shape.
type ResultPublisher interface {
	PublishResult(ctx context.Context, result domain.Result) error
	PublishChatResponse(ctx context.Context, payload map[string]any) error
	Close() error
}

type rabbitResultPublisher struct {
	url     string
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *zap.Logger
	mu      sync.RWMutex
	closed  bool
}

// NewResultPublisher dials RabbitMQ, declares the topology, and starts a
// background reconnect watcher.
func NewResultPublisher(url string, logger *zap.Logger) (ResultPublisher, error) {
	p := &rabbitResultPublisher{url: url, logger: logger}
	if err := p.connect(); err != nil {
		return nil, err
	}
	go p.watchConnection()
	return p, nil
}

func (p *rabbitResultPublisher) connect() error {
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

	p.logger.Info("result publisher initialized")
	return nil
}

func (p *rabbitResultPublisher) watchConnection() {
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
		p.logger.Warn("result publisher connection lost, reconnecting", zap.Error(reason))

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
				p.logger.Warn("result publisher reconnect failed", zap.Error(err))
				delay *= 2
				if delay > maxPublishDelay {
					delay = maxPublishDelay
				}
				continue
			}
			p.logger.Info("result publisher reconnected")
			break
		}
	}
}

func (p *rabbitResultPublisher) publish(ctx context.Context, exchange, routingKey string, body []byte, messageID string) error {
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
			if delay > publishMaxBackoff {
				delay = publishMaxBackoff
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
		err := ch.PublishWithContext(publishCtx, exchange, routingKey, false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    messageID,
			Timestamp:    time.Now(),
			Body:         body,
		})
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

	return fmt.Errorf("broker: publish exhausted retries: %v", lastErr)
}

func (p *rabbitResultPublisher) PublishResult(ctx context.Context, result domain.Result) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("broker: marshal result: %w", err)
	}
	key := result.RoutingKey
	if key == "" {
		key = "task.result"
	}
	return p.publish(ctx, ResultsExchange, key, body, result.JobID)
}

func (p *rabbitResultPublisher) PublishChatResponse(ctx context.Context, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("broker: marshal chat response: %w", err)
	}
	return p.publish(ctx, ChatResponsesExchange, "", body, fmt.Sprintf("%v", payload["session_id"]))
}

func (p *rabbitResultPublisher) Close() error {
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
