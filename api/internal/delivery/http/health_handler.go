package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	logger  *zap.Logger
	dbPool  *pgxpool.Pool
	amqpURI string
	rdb     *redis.Client
	orgID   string
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(logger *zap.Logger, dbPool *pgxpool.Pool, amqpURI string, rdb *redis.Client, orgID string) *HealthHandler {
	return &HealthHandler{
		logger:  logger,
		dbPool:  dbPool,
		amqpURI: amqpURI,
		rdb:     rdb,
		orgID:   orgID,
	}
}

// Health handles GET /healthz. The vector index lives in the Postgres
// database probed via dbPool, so the Postgres ping covers it; the
// S3-compatible object store is not probed.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	pgStatus := "ok"
	if err := h.dbPool.Ping(ctx); err != nil {
		pgStatus = "error: " + err.Error()
		h.logger.Warn("postgres health check failed", zap.Error(err))
	}

	rabbitStatus := "ok"
	conn, err := amqp.Dial(h.amqpURI)
	if err != nil {
		rabbitStatus = "error: " + err.Error()
		h.logger.Warn("rabbitmq health check failed", zap.Error(err))
	} else {
		conn.Close()
	}

	redisStatus := "ok"
	if err := h.rdb.Ping(ctx).Err(); err != nil {
		redisStatus = "error: " + err.Error()
		h.logger.Warn("redis health check failed", zap.Error(err))
	}

	ok := pgStatus == "ok" && rabbitStatus == "ok" && redisStatus == "ok"
	statusCode := http.StatusOK
	if !ok {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"ok":      ok,
		"org_id":  h.orgID,
		"ts":      time.Now().UTC(),
		"services": gin.H{
			"postgres": pgStatus,
			"rabbitmq": rabbitStatus,
			"redis":    redisStatus,
		},
	})
}
