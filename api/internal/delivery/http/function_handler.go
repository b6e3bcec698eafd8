package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lxp-platform/fabric/api/internal/domain"
	"github.com/lxp-platform/fabric/api/internal/usecase"
)

// FunctionHandler serves the generic POST /{function} surface for
// assist/galaxy/coach/translate.
type FunctionHandler struct {
	submit *usecase.SubmitTask
	logger *zap.Logger
}

// NewFunctionHandler creates a new FunctionHandler.
func NewFunctionHandler(submit *usecase.SubmitTask, logger *zap.Logger) *FunctionHandler {
	return &FunctionHandler{submit: submit, logger: logger}
}

// Submit handles POST /:function.
func (h *FunctionHandler) Submit(c *gin.Context) {
	function := c.Param("function")

	var req domain.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.submit.Execute(c.Request.Context(), function, req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, resp)
}

func (h *FunctionHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidFunction),
		errors.Is(err, domain.ErrInvalidSubFunction),
		errors.Is(err, domain.ErrEmptyUserID),
		errors.Is(err, domain.ErrInvalidVectorstoreID),
		errors.Is(err, domain.ErrMissingField):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrBrokerUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		h.logger.Error("function submit failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
