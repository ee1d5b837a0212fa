package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuspulse/occupancy-backend-go/pkg/response"
)

// ImageReader loads a stored still by reference
type ImageReader interface {
	Open(ref string) ([]byte, error)
}

// ImageHandler serves the latest still of each camera
type ImageHandler struct {
	images ImageReader
}

// NewImageHandler creates a new image handler
func NewImageHandler(images ImageReader) *ImageHandler {
	return &ImageHandler{images: images}
}

// GetImage handles GET /image/:ref
func (h *ImageHandler) GetImage(c *gin.Context) {
	data, err := h.images.Open(c.Param("ref"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "image/jpeg", data)
}
