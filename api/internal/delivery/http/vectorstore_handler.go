package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lxp-platform/fabric/api/internal/domain"
	"github.com/lxp-platform/fabric/api/internal/usecase"
)

// VectorstoreHandler serves vectorstore lifecycle management.
type VectorstoreHandler struct {
	manage *usecase.ManageVectorstore
	logger *zap.Logger
}

// NewVectorstoreHandler creates a new VectorstoreHandler.
func NewVectorstoreHandler(manage *usecase.ManageVectorstore, logger *zap.Logger) *VectorstoreHandler {
	return &VectorstoreHandler{manage: manage, logger: logger}
}

type createVectorstoreRequest struct {
	Name string `json:"name" binding:"required"`
}

// Create handles POST /vectorstores.
func (h *VectorstoreHandler) Create(c *gin.Context) {
	var req createVectorstoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.manage.Create(c.Request.Context(), req.Name)
	if err != nil {
		h.logger.Error("create vectorstore failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"vectorstore_id": id})
}

// Index handles POST /vectorstores/:id/index.
func (h *VectorstoreHandler) Index(c *gin.Context) {
	id := c.Param("id")

	count, err := h.manage.Reindex(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrVectorstoreNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("reindex vectorstore failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"vectorstore_id": id, "chunks_indexed": count})
}
