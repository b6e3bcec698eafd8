package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lxp-platform/fabric/api/internal/broker"
	"github.com/lxp-platform/fabric/api/internal/config"
	handler "github.com/lxp-platform/fabric/api/internal/delivery/http"
	"github.com/lxp-platform/fabric/api/internal/repository/postgres"
	"github.com/lxp-platform/fabric/api/internal/resultrouter"
	"github.com/lxp-platform/fabric/api/internal/sessionstore"
	"github.com/lxp-platform/fabric/api/internal/storage"
	"github.com/lxp-platform/fabric/api/internal/streamhub"
	"github.com/lxp-platform/fabric/api/internal/usecase"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	logger.Info("starting dispatcher")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	gin.SetMode(cfg.Server.GinMode)

	ctx := context.Background()
	dbPool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		logger.Fatal("failed to ping postgres", zap.Error(err))
	}
	logger.Info("connected to postgres")

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Fatal("failed to parse redis url", zap.Error(err))
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to ping redis", zap.Error(err))
	}
	logger.Info("connected to redis")

	pub, err := broker.NewRabbitMQPublisher(cfg.RabbitMQ.URL, logger)
	if err != nil {
		logger.Fatal("failed to initialize broker publisher", zap.Error(err))
	}
	defer pub.Close()
	logger.Info("connected to broker")

	objectStore, err := storage.New(storage.Config{
		Endpoint:  cfg.Storage.Endpoint,
		Region:    cfg.Storage.Region,
		Bucket:    cfg.Storage.Bucket,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
	})
	if err != nil {
		logger.Fatal("failed to initialize object store", zap.Error(err))
	}

	documents := postgres.NewPostgresDocumentStore(dbPool)
	vectorstores := postgres.NewPostgresVectorstoreStore(dbPool)
	vectorIndex := postgres.NewPostgresVectorIndex(dbPool)
	sessions := sessionstore.New(rdb)

	hub := streamhub.New()

	router := resultrouter.New(cfg.RabbitMQ.URL, hub, logger)
	resultCtx, cancelResults := context.WithCancel(context.Background())
	go func() {
		if err := router.Start(resultCtx); err != nil {
			logger.Error("result router stopped", zap.Error(err))
		}
	}()
	defer router.Close()

	submitTask := usecase.NewSubmitTask(pub, documents, logger)
	startSession := usecase.NewStartSession(pub, documents, hub, cfg.Worker.GreetingTimeout, logger)
	sendChat := usecase.NewSendChat(pub, sessions, logger)
	manageVectorstore := usecase.NewManageVectorstore(vectorstores, vectorIndex, objectStore, cfg.VectorIndex.Dim, logger)
	uploadFile := usecase.NewUploadFile(vectorstores, vectorIndex, objectStore, cfg.VectorIndex.Dim, logger)
	sseHandler := handler.NewSSEHandler(hub, logger)

	ginRouter := handler.NewRouter(&handler.RouterDeps{
		SubmitTask:        submitTask,
		StartSession:      startSession,
		SendChat:          sendChat,
		ManageVectorstore: manageVectorstore,
		UploadFile:        uploadFile,
		SSE:               sseHandler,
		Logger:            logger,
		RateLimitPerMin:   cfg.Server.RateLimit,
		DBPool:            dbPool,
		AmqpURI:           cfg.RabbitMQ.URL,
		Redis:             rdb,
		OrgID:             cfg.Tenant.OrgID,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      ginRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("dispatcher listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down dispatcher")

	cancelResults()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("dispatcher stopped")
}
