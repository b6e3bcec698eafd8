package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lxp-platform/fabric/api/internal/domain"
	"github.com/lxp-platform/fabric/api/internal/usecase"
)

// FilesHandler serves file upload into a vectorstore.
type FilesHandler struct {
	upload *usecase.UploadFile
	logger *zap.Logger
}

// NewFilesHandler creates a new FilesHandler.
func NewFilesHandler(upload *usecase.UploadFile, logger *zap.Logger) *FilesHandler {
	return &FilesHandler{upload: upload, logger: logger}
}

// Upload handles POST /files/upload (multipart form: vectorstore_id, file).
func (h *FilesHandler) Upload(c *gin.Context) {
	vectorstoreID := c.PostForm("vectorstore_id")
	if vectorstoreID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "vectorstore_id is required"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not open uploaded file"})
		return
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded file"})
		return
	}

	fileID, err := h.upload.Execute(c.Request.Context(), vectorstoreID, fileHeader.Filename, content)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"file_id": fileID, "vectorstore_id": vectorstoreID})
}

func (h *FilesHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrEmptyFile):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrVectorstoreNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.logger.Error("file upload failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
