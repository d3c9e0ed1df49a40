package handler

import (
	"errors"
	"net/http"

	"chatdesk/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

type UploadHandler struct {
	uploads service.UploadService
}

func NewUploadHandler(uploads service.UploadService) *UploadHandler {
	return &UploadHandler{uploads: uploads}
}

// RequestTarget issues a one-shot upload URL the client PUTs the file to.
func (h *UploadHandler) RequestTarget(c *gin.Context) {
	target, err := h.uploads.RequestUploadTarget(c.Request.Context(), callerFrom(c))
	if err != nil {
		respondChatError(c, err)
		return
	}
	c.JSON(http.StatusCreated, target)
}

// Receive accepts the direct transfer and returns the opaque blob ref the
// client attaches to its message.
func (h *UploadHandler) Receive(c *gin.Context) {
	ref, err := h.uploads.SaveBlob(c.Request.Context(), c.Param("token"), c.Request.Body)
	if err != nil {
		if errors.Is(err, service.ErrUploadTokenInvalid) {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"file_ref": ref})
}

// Serve streams a stored blob back by ref.
func (h *UploadHandler) Serve(c *gin.Context) {
	path, err := h.uploads.BlobPath(c.Param("ref"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}
	c.File(path)
}
