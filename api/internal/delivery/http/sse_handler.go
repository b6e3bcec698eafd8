package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lxp-platform/fabric/api/internal/domain"
	"github.com/lxp-platform/fabric/api/internal/streamhub"
)

const (
	// Maximum duration a stream can remain open, mirroring the teacher's
	// bounded WebSocket connection lifetime.
	sseMaxDuration = 5 * time.Minute

	// Keepalive comment interval, adapted from the WebSocket ping/pong
	// keepalive — SSE has no protocol-level ping, so a comment line serves
	// the same purpose of keeping intermediaries from timing out the
	// connection.
	sseKeepaliveInterval = 30 * time.Second
)

// SSEHandler serves both the per-session sales stream and the generic
// per-job event stream off the same Stream Hub.
type SSEHandler struct {
	hub    *streamhub.Hub
	logger *zap.Logger
}

// NewSSEHandler creates a new SSEHandler.
func NewSSEHandler(hub *streamhub.Hub, logger *zap.Logger) *SSEHandler {
	return &SSEHandler{hub: hub, logger: logger}
}

// StreamSession handles GET /sales/stream/:session_id.
func (h *SSEHandler) StreamSession(c *gin.Context) {
	h.stream(c, c.Param("session_id"))
}

// StreamJob handles GET /events/jobs/:job_id.
func (h *SSEHandler) StreamJob(c *gin.Context) {
	h.stream(c, c.Param("job_id"))
}

func (h *SSEHandler) stream(c *gin.Context, filter string) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	sub, cancel := h.hub.Subscribe(filter)
	defer cancel()

	keepalive := time.NewTicker(sseKeepaliveInterval)
	defer keepalive.Stop()

	maxTimer := time.NewTimer(sseMaxDuration)
	defer maxTimer.Stop()

	ctx := c.Request.Context()

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("sse client disconnected", zap.String("filter", filter))
			return

		case <-maxTimer.C:
			h.writeEvent(c, domain.Result{Event: domain.EventEnd, Final: true})
			flusher.Flush()
			return

		case <-keepalive.C:
			fmt.Fprint(c.Writer, ": keepalive\n\n")
			flusher.Flush()

		case chunk, ok := <-sub.Ch:
			if !ok {
				return
			}
			h.writeEvent(c, chunk)
			flusher.Flush()
			if chunk.Final {
				h.drainLagNotice(c, sub, flusher)
				return
			}
		}
	}
}

func (h *SSEHandler) writeEvent(c *gin.Context, result domain.Result) {
	body, err := json.Marshal(result)
	if err != nil {
		h.logger.Error("sse: marshal result failed", zap.Error(err))
		return
	}
	fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", result.Event, body)
}

// drainLagNotice flushes a lag notice the hub queued directly behind the
// final chunk, if one is waiting; otherwise it returns immediately.
// Subscription.Lag alone isn't enough here since the hub only stamps the
// notice onto the channel, never clears the flag itself.
func (h *SSEHandler) drainLagNotice(c *gin.Context, sub *streamhub.Subscription, flusher http.Flusher) {
	select {
	case notice, ok := <-sub.Ch:
		if !ok {
			return
		}
		h.writeEvent(c, notice)
		flusher.Flush()
	default:
	}
}
