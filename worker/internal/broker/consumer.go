package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	amqplib "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/lxp-platform/fabric/worker/internal/domain"
)

const (
	maxReconnectDelay  = 30 * time.Second
	baseReconnectDelay = 1 * time.Second
)

// Consumer listens across every function task queue plus the direct
// chat-messages queue, dispatching decoded Tasks wrapped in a
// TaskEnvelope carrying Ack/Nack callbacks, adapted from the sandbox
// worker's single-queue amqp.Consumer.
type Consumer struct {
	url     string
	prefetch int
	queues  []string
	conn    *amqplib.Connection
	channel *amqplib.Channel
	logger  *zap.Logger
	tasks   chan<- *domain.TaskEnvelope

	mu      sync.Mutex
	closed  bool
	closeCh chan struct{}
}

// NewConsumer dials RabbitMQ, declares the full topology, and prepares to
// consume from every function queue the worker can service.
func NewConsumer(url string, prefetch int, tasks chan<- *domain.TaskEnvelope, logger *zap.Logger) (*Consumer, error) {
	c := &Consumer{
		url:      url,
		prefetch: prefetch,
		queues:   []string{QueueAssist, QueueGalaxy, QueueCoach, QueueTranslate, QueueSimControl, QueueChatMessages},
		logger:   logger,
		tasks:    tasks,
		closeCh:  make(chan struct{}),
	}

	if err := c.connect(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Consumer) connect() error {
	conn, err := amqplib.Dial(c.url)
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("amqp channel: %w", err)
	}

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("amqp qos: %w", err)
	}

	if err := DeclareTopology(ch); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("amqp declare topology: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.channel = ch
	c.mu.Unlock()

	return nil
}

// Start begins consuming from every queue. It blocks until ctx is
// cancelled, reconnecting with exponential backoff on connection loss.
func (c *Consumer) Start(ctx context.Context) error {
	for {
		err := c.consume(ctx)
		if err == nil {
			return nil
		}

		select {
		case <-c.closeCh:
			return nil
		case <-ctx.Done():
			return nil
		default:
		}

		c.logger.Warn("broker consumer lost connection, reconnecting", zap.Error(err))

		for attempt := 0; ; attempt++ {
			select {
			case <-c.closeCh:
				return nil
			case <-ctx.Done():
				return nil
			default:
			}

			delay := time.Duration(math.Min(
				float64(baseReconnectDelay)*math.Pow(2, float64(attempt)),
				float64(maxReconnectDelay),
			))
			time.Sleep(delay)

			if err := c.connect(); err != nil {
				c.logger.Error("broker reconnect failed", zap.Error(err))
				continue
			}

			c.logger.Info("broker consumer reconnected")
			break
		}
	}
}

func (c *Consumer) consume(ctx context.Context) error {
	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()

	if ch == nil {
		return fmt.Errorf("channel is nil")
	}

	type labeled struct {
		queue string
		ch    <-chan amqplib.Delivery
	}
	var streams []labeled
	for _, q := range c.queues {
		d, err := ch.Consume(q, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("amqp consume %s: %w", q, err)
		}
		streams = append(streams, labeled{queue: q, ch: d})
	}

	c.logger.Info("broker consumer started", zap.Strings("queues", c.queues))

	merged := make(chan amqplib.Delivery)
	done := make(chan struct{})
	var wg sync.WaitGroup
	for _, s := range streams {
		wg.Add(1)
		go func(s labeled) {
			defer wg.Done()
			for {
				select {
				case d, ok := <-s.ch:
					if !ok {
						return
					}
					select {
					case merged <- d:
					case <-done:
						return
					}
				case <-done:
					return
				}
			}
		}(s)
	}
	go func() {
		wg.Wait()
		close(merged)
	}()
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("broker consumer stopping (context cancelled)")
			return nil
		case delivery, ok := <-merged:
			if !ok {
				return fmt.Errorf("all delivery channels closed")
			}

			var task domain.Task
			if err := json.Unmarshal(delivery.Body, &task); err != nil {
				c.logger.Error("failed to unmarshal task, rejecting",
					zap.Error(err), zap.String("body", string(delivery.Body)))
				delivery.Nack(false, false)
				continue
			}

			tag := delivery.DeliveryTag
			localCh := ch
			env := &domain.TaskEnvelope{
				Task: &task,
				Ack: func() error {
					return localCh.Ack(tag, false)
				},
				Nack: func(requeue bool) error {
					return localCh.Nack(tag, false, requeue)
				},
			}

			select {
			case c.tasks <- env:
			case <-ctx.Done():
				delivery.Nack(false, true)
				return nil
			}
		}
	}
}

// Close gracefully shuts down the consumer.
func (c *Consumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	close(c.closeCh)

	var firstErr error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			firstErr = err
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
