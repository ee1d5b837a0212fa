package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campuspulse/occupancy-backend-go/internal/models"
	"github.com/campuspulse/occupancy-backend-go/internal/service"
	"github.com/campuspulse/occupancy-backend-go/pkg/response"
)

// CameraHandler handles HTTP requests for per camera history
type CameraHandler struct {
	queryService *service.QueryService
}

// NewCameraHandler creates a new camera handler
func NewCameraHandler(queryService *service.QueryService) *CameraHandler {
	return &CameraHandler{
		queryService: queryService,
	}
}

// GetHistory handles GET /camera/:id/history
func (h *CameraHandler) GetHistory(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "Invalid camera ID")
		return
	}

	var filter models.ObservationFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid limit parameter")
		return
	}

	history, err := h.queryService.CameraHistory(c.Request.Context(), id, filter)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.JSON(c, history)
}
