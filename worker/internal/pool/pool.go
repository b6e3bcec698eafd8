package pool

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lxp-platform/fabric/worker/internal/domain"
	"github.com/lxp-platform/fabric/worker/internal/handlers"
	"github.com/lxp-platform/fabric/worker/internal/metrics"
)

// WorkerPool manages a fixed-size pool of goroutines that dispatch
// TaskEnvelopes to the handler registry.
type WorkerPool struct {
	size     int
	tasks    <-chan *domain.TaskEnvelope
	registry *handlers.Registry
	logger   *zap.Logger
	wg       sync.WaitGroup
}

// NewWorkerPool creates a new fixed-size worker pool.
func NewWorkerPool(size int, tasks <-chan *domain.TaskEnvelope, registry *handlers.Registry, logger *zap.Logger) *WorkerPool {
	return &WorkerPool{
		size:     size,
		tasks:    tasks,
		registry: registry,
		logger:   logger,
	}
}

// Start launches all worker goroutines. Call Stop to wait for them to finish.
func (p *WorkerPool) Start(ctx context.Context) {
	p.logger.Info("starting worker pool", zap.Int("pool_size", p.size))

	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Stop waits for all workers to finish their current tasks and exit.
func (p *WorkerPool) Stop() {
	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

func (p *WorkerPool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("worker panic recovered",
				zap.Int("worker_id", id),
				zap.Any("panic", r),
			)
		}
	}()

	p.logger.Debug("worker started", zap.Int("worker_id", id))

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("worker shutting down", zap.Int("worker_id", id))
			return
		case env, ok := <-p.tasks:
			if !ok {
				p.logger.Debug("task channel closed", zap.Int("worker_id", id))
				return
			}

			task := env.Task

			p.logger.Info("worker processing task",
				zap.Int("worker_id", id),
				zap.String("job_id", task.JobID),
				zap.String("function", string(task.Function)),
			)

			metrics.WorkersActive.Inc()
			startTime := time.Now()

			err := p.registry.Dispatch(ctx, task)
			elapsed := time.Since(startTime).Seconds()

			metrics.WorkersActive.Dec()
			metrics.TaskDuration.WithLabelValues(string(task.Function)).Observe(elapsed)

			if err != nil {
				p.logger.Error("task handling failed",
					zap.Int("worker_id", id),
					zap.String("job_id", task.JobID),
					zap.Error(err),
				)

				// Nack without requeue — failed tasks go to DLQ. Requeuing a
				// deterministic failure would cause an infinite loop.
				if nackErr := env.Nack(false); nackErr != nil {
					p.logger.Error("failed to nack message",
						zap.String("job_id", task.JobID),
						zap.Error(nackErr),
					)
				}

				metrics.TasksTotal.WithLabelValues(string(task.Function), "error").Inc()
				continue
			}

			if ackErr := env.Ack(); ackErr != nil {
				p.logger.Error("failed to ack message after handling",
					zap.String("job_id", task.JobID),
					zap.Error(ackErr),
				)
			}

			metrics.TasksTotal.WithLabelValues(string(task.Function), "ok").Inc()
		}
	}
}
