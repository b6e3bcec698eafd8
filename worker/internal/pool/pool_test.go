package pool_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/lxp-platform/fabric/worker/internal/domain"
	"github.com/lxp-platform/fabric/worker/internal/handlers"
	"github.com/lxp-platform/fabric/worker/internal/pool"
)

func newTestPool(t *testing.T, poolSize int, handler handlers.Handler) (chan *domain.TaskEnvelope, *pool.WorkerPool, context.CancelFunc) {
	t.Helper()

	logger := zap.NewNop()
	registry := handlers.NewEmptyRegistry(logger)
	registry.Register(domain.FunctionChat, handler)

	ch := make(chan *domain.TaskEnvelope, 16)
	ctx, cancel := context.WithCancel(context.Background())
	wp := pool.NewWorkerPool(poolSize, ch, registry, logger)
	wp.Start(ctx)

	return ch, wp, cancel
}

func sendTask(ch chan<- *domain.TaskEnvelope, acked, nacked *atomic.Int32) {
	ch <- &domain.TaskEnvelope{
		Task: &domain.Task{JobID: "job-1", Function: domain.FunctionChat},
		Ack: func() error {
			acked.Add(1)
			return nil
		},
		Nack: func(requeue bool) error {
			nacked.Add(1)
			return nil
		},
	}
}

// Test: pool processes tasks and ACKs them.
func TestPool_ProcessAndAck(t *testing.T) {
	handler := func(ctx context.Context, task *domain.Task) error { return nil }
	ch, wp, cancel := newTestPool(t, 2, handler)

	var acked, nacked atomic.Int32
	for i := 0; i < 5; i++ {
		sendTask(ch, &acked, &nacked)
	}

	time.Sleep(200 * time.Millisecond)

	cancel()
	wp.Stop()

	if acked.Load() != 5 {
		t.Errorf("expected 5 ACKs, got %d", acked.Load())
	}
	if nacked.Load() != 0 {
		t.Errorf("expected 0 NACKs, got %d", nacked.Load())
	}
}

// Test: pool NACKs tasks whose handler returns an error.
func TestPool_NacksOnFailure(t *testing.T) {
	handler := func(ctx context.Context, task *domain.Task) error { return errors.New("boom") }
	ch, wp, cancel := newTestPool(t, 1, handler)

	var acked, nacked atomic.Int32
	sendTask(ch, &acked, &nacked)

	time.Sleep(200 * time.Millisecond)

	cancel()
	wp.Stop()

	if nacked.Load() != 1 {
		t.Errorf("expected 1 NACK, got %d", nacked.Load())
	}
	if acked.Load() != 0 {
		t.Errorf("expected 0 ACKs, got %d", acked.Load())
	}
}

// Test: pool shuts down gracefully (context cancellation).
func TestPool_GracefulShutdown(t *testing.T) {
	handler := func(ctx context.Context, task *domain.Task) error { return nil }
	ch, wp, cancel := newTestPool(t, 4, handler)

	var acked, nacked atomic.Int32
	sendTask(ch, &acked, &nacked)
	sendTask(ch, &acked, &nacked)

	time.Sleep(50 * time.Millisecond)
	cancel()
	wp.Stop()
	close(ch)

	total := acked.Load() + nacked.Load()
	if total < 1 {
		t.Errorf("expected at least 1 processed task, got %d", total)
	}
}

// Test: an unregistered function nacks without the pool panicking.
func TestPool_UnknownFunctionNacks(t *testing.T) {
	logger := zap.NewNop()
	registry := handlers.NewEmptyRegistry(logger)

	ch := make(chan *domain.TaskEnvelope, 4)
	ctx, cancel := context.WithCancel(context.Background())
	wp := pool.NewWorkerPool(1, ch, registry, logger)
	wp.Start(ctx)

	var acked, nacked atomic.Int32
	ch <- &domain.TaskEnvelope{
		Task: &domain.Task{JobID: "job-2", Function: domain.FunctionTranslate},
		Ack: func() error {
			acked.Add(1)
			return nil
		},
		Nack: func(requeue bool) error {
			nacked.Add(1)
			return nil
		},
	}

	time.Sleep(200 * time.Millisecond)
	cancel()
	wp.Stop()

	if nacked.Load() != 1 {
		t.Errorf("expected 1 NACK for unknown function, got %d", nacked.Load())
	}
}
