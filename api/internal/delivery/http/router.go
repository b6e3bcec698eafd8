package http

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lxp-platform/fabric/api/internal/delivery/http/middleware"
	"github.com/lxp-platform/fabric/api/internal/usecase"
)

// RouterDeps holds all dependencies needed to construct the router.
type RouterDeps struct {
	SubmitTask        *usecase.SubmitTask
	StartSession      *usecase.StartSession
	SendChat          *usecase.SendChat
	ManageVectorstore *usecase.ManageVectorstore
	UploadFile        *usecase.UploadFile
	SSE               *SSEHandler

	Logger          *zap.Logger
	RateLimitPerMin int
	DBPool          *pgxpool.Pool
	AmqpURI         string
	Redis           *redis.Client
	OrgID           string
}

// NewRouter creates and configures the Gin router with all routes and
// middleware.
func NewRouter(deps *RouterDeps) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger(deps.Logger))
	router.Use(middleware.BodySizeLimit(10 << 20)) // 10 MB, to admit file uploads

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	healthHandler := NewHealthHandler(deps.Logger, deps.DBPool, deps.AmqpURI, deps.Redis, deps.OrgID)
	router.GET("/healthz", healthHandler.Health)

	rateLimited := router.Group("")
	rateLimited.Use(middleware.RateLimiter(deps.Redis, deps.RateLimitPerMin))
	{
		functionHandler := NewFunctionHandler(deps.SubmitTask, deps.Logger)
		rateLimited.POST("/:function", functionHandler.Submit)

		salesHandler := NewSalesHandler(deps.StartSession, deps.SendChat, deps.Logger)
		rateLimited.POST("/sales/session", salesHandler.StartSession)
		rateLimited.POST("/sales/chat", salesHandler.Chat)

		vectorstoreHandler := NewVectorstoreHandler(deps.ManageVectorstore, deps.Logger)
		rateLimited.POST("/vectorstores", vectorstoreHandler.Create)
		rateLimited.POST("/vectorstores/:id/index", vectorstoreHandler.Index)

		filesHandler := NewFilesHandler(deps.UploadFile, deps.Logger)
		rateLimited.POST("/files/upload", filesHandler.Upload)
	}

	// SSE streams are long-lived, single connection per client — excluded
	// from rate limiting the same way the teacher's WebSocket stream was.
	router.GET("/sales/stream/:session_id", deps.SSE.StreamSession)
	router.GET("/events/jobs/:job_id", deps.SSE.StreamJob)

	return router
}
