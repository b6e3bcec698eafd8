package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lxp-platform/fabric/api/internal/domain"
	"github.com/lxp-platform/fabric/api/internal/usecase"
)

// SalesHandler serves the sales-simulation surface: session start and chat
// turns (the streamed reply travels over SSE, see sse_handler.go).
type SalesHandler struct {
	startSession *usecase.StartSession
	sendChat     *usecase.SendChat
	logger       *zap.Logger
}

// NewSalesHandler creates a new SalesHandler.
func NewSalesHandler(startSession *usecase.StartSession, sendChat *usecase.SendChat, logger *zap.Logger) *SalesHandler {
	return &SalesHandler{startSession: startSession, sendChat: sendChat, logger: logger}
}

// StartSession handles POST /sales/session.
func (h *SalesHandler) StartSession(c *gin.Context) {
	var req domain.SessionStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.startSession.Execute(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Chat handles POST /sales/chat.
func (h *SalesHandler) Chat(c *gin.Context) {
	var req domain.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.sendChat.Execute(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, resp)
}

func (h *SalesHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrEmptyUserID), errors.Is(err, domain.ErrMissingField):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrSessionClosed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrGreetingTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrBrokerUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		h.logger.Error("sales handler failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
