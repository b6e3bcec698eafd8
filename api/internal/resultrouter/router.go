// Package resultrouter consumes the ai.results topic exchange over an
// exclusive, auto-delete queue and forwards every chunk into the Stream
// Hub so SSE handlers can fan it out to subscribers.
package resultrouter

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/lxp-platform/fabric/api/internal/broker"
	"github.com/lxp-platform/fabric/api/internal/domain"
	"github.com/lxp-platform/fabric/api/internal/streamhub"
)

const (
	maxReconnectDelay  = 30 * time.Second
	baseReconnectDelay = 1 * time.Second
)

// Router owns the exclusive results queue and republishes into Hub.
type Router struct {
	url    string
	hub    *streamhub.Hub
	logger *zap.Logger

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	closed  bool
	closeCh chan struct{}
}

// New creates a Router. Connection is established lazily by Start.
func New(url string, hub *streamhub.Hub, logger *zap.Logger) *Router {
	return &Router{
		url:     url,
		hub:     hub,
		logger:  logger,
		closeCh: make(chan struct{}),
	}
}

func (r *Router) connect() error {
	conn, err := amqp.Dial(r.url)
	if err != nil {
		return fmt.Errorf("resultrouter: dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("resultrouter: channel: %w", err)
	}

	if err := broker.DeclareTopology(ch); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("resultrouter: declare topology: %w", err)
	}

	// Exclusive, auto-delete queue: one per api process, torn down on
	// disconnect, bound with the wildcard key so every result routing key
	// reaches this process regardless of job_id/session_id.
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("resultrouter: declare exclusive queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, "#", broker.ResultsExchange, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("resultrouter: bind exclusive queue: %w", err)
	}

	r.mu.Lock()
	r.conn = conn
	r.channel = ch
	r.mu.Unlock()

	r.logger.Info("result router connected", zap.String("queue", q.Name))
	return nil
}

// Start consumes results until ctx is cancelled, reconnecting with
// exponential backoff on connection loss.
func (r *Router) Start(ctx context.Context) error {
	if err := r.connect(); err != nil {
		return err
	}

	for {
		err := r.consume(ctx)
		if err == nil {
			return nil
		}

		select {
		case <-r.closeCh:
			return nil
		case <-ctx.Done():
			return nil
		default:
		}

		r.logger.Warn("result router lost connection, reconnecting", zap.Error(err))

		for attempt := 0; ; attempt++ {
			select {
			case <-r.closeCh:
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

			if err := r.connect(); err != nil {
				r.logger.Warn("result router reconnect failed", zap.Error(err), zap.Duration("retry_in", delay))
				continue
			}
			break
		}
	}
}

func (r *Router) consume(ctx context.Context) error {
	r.mu.Lock()
	ch := r.channel
	r.mu.Unlock()

	if ch == nil {
		return fmt.Errorf("resultrouter: channel is nil")
	}

	deliveries, err := ch.Consume("", "", true, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("resultrouter: consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("resultrouter: delivery channel closed")
			}
			r.route(delivery)
		}
	}
}

// route forwards one delivery into the Stream Hub under both the job_id and
// session_id filters, when present. Malformed payloads are logged and
// dropped — a bad message on the results exchange must never take the router
// down.
func (r *Router) route(delivery amqp.Delivery) {
	var result domain.Result
	if err := json.Unmarshal(delivery.Body, &result); err != nil {
		r.logger.Warn("result router: malformed payload, dropping",
			zap.Error(err), zap.String("routing_key", delivery.RoutingKey))
		return
	}
	if result.Ts.IsZero() {
		result.Ts = time.Now()
	}

	if result.JobID != "" {
		r.hub.Publish(result.JobID, result)
	}
	if result.SessionID != "" {
		r.hub.Publish(result.SessionID, result)
	}
}

// Close tears down the router's connection.
func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	close(r.closeCh)

	var firstErr error
	if r.channel != nil {
		if err := r.channel.Close(); err != nil {
			firstErr = err
		}
	}
	if r.conn != nil {
		if err := r.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
