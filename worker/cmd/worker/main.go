package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lxp-platform/fabric/worker/internal/broker"
	"github.com/lxp-platform/fabric/worker/internal/config"
	"github.com/lxp-platform/fabric/worker/internal/conversation"
	"github.com/lxp-platform/fabric/worker/internal/domain"
	"github.com/lxp-platform/fabric/worker/internal/handlers"
	"github.com/lxp-platform/fabric/worker/internal/llm"
	"github.com/lxp-platform/fabric/worker/internal/memory"
	"github.com/lxp-platform/fabric/worker/internal/pool"
	"github.com/lxp-platform/fabric/worker/internal/repository/postgres"
	redisrepo "github.com/lxp-platform/fabric/worker/internal/repository/redis"
	"github.com/lxp-platform/fabric/worker/internal/sessionstore"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	logger.Info("starting worker runtime")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbPool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal("failed to connect to postgresql", zap.Error(err))
	}
	defer dbPool.Close()
	if err := dbPool.Ping(ctx); err != nil {
		logger.Fatal("failed to ping postgresql", zap.Error(err))
	}
	logger.Info("connected to postgresql")

	redisOpts, err := goredis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Fatal("invalid redis url", zap.Error(err))
	}
	redisClient := goredis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("connected to redis")

	vectorIndex := postgres.NewPostgresVectorIndex(dbPool)
	memoryIndex := postgres.NewPostgresMemoryIndex(dbPool)
	analytics := postgres.NewPostgresAnalytics(dbPool)
	dedupStore := redisrepo.NewRedisDedupStore(redisClient)
	store := sessionstore.New(redisClient)

	llmClient := llm.New(cfg.LLM.APIKey, cfg.LLM.APIURL, cfg.LLM.Model)
	memoryManager := memory.New(cfg.Memory.MaxRecentMessages, cfg.Memory.SimilarityThreshold, llmClient, memoryIndex, logger)
	engine := conversation.New(llmClient, memoryManager, cfg.Memory.MinDialogueLength)

	publisher, err := broker.NewResultPublisher(cfg.RabbitMQ.URL, logger)
	if err != nil {
		logger.Fatal("failed to initialize result publisher", zap.Error(err))
	}
	defer publisher.Close()

	registry := handlers.NewRegistry(logger, publisher, store, engine, llmClient, vectorIndex, analytics, cfg.Memory.SessionTTL, cfg.VectorIndex.Dim, dedupStore)

	tasksChan := make(chan *domain.TaskEnvelope, cfg.Worker.PoolSize*2)

	consumer, err := broker.NewConsumer(cfg.RabbitMQ.URL, cfg.Worker.Prefetch, tasksChan, logger)
	if err != nil {
		logger.Fatal("failed to initialize amqp consumer", zap.Error(err))
	}
	logger.Info("connected to rabbitmq")

	workerPool := pool.NewWorkerPool(cfg.Worker.PoolSize, tasksChan, registry, logger)
	workerPool.Start(ctx)

	go func() {
		if err := consumer.Start(ctx); err != nil {
			logger.Error("amqp consumer error", zap.Error(err))
			cancel()
		}
	}()

	metricsSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Worker.MetricsPort),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		pingCtx, pingCancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer pingCancel()
		if err := dbPool.Ping(pingCtx); err != nil {
			http.Error(w, "db unreachable", http.StatusServiceUnavailable)
			return
		}
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			http.Error(w, "redis unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	metricsSrv.Handler = mux

	go func() {
		logger.Info("metrics/health server listening", zap.String("addr", metricsSrv.Addr))
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down worker...")

	// 1. Stop the AMQP consumer first so no new messages are fetched.
	if err := consumer.Close(); err != nil {
		logger.Error("error closing amqp consumer", zap.Error(err))
	}

	// 2. Cancel the context so workers finish their current task and exit.
	cancel()

	// 3. Wait for workers to drain in-flight tasks.
	workerPool.Stop()

	// 4. Close the task channel.
	close(tasksChan)

	// 5. Shut down the metrics server.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown error", zap.Error(err))
	}

	logger.Info("worker stopped")
}
