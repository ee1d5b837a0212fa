package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/campuspulse/occupancy-backend-go/internal/models"
	"github.com/campuspulse/occupancy-backend-go/internal/service"
	"github.com/campuspulse/occupancy-backend-go/pkg/response"
)

// LocationHandler handles HTTP requests for locations and their live state
type LocationHandler struct {
	queryService *service.QueryService
}

// NewLocationHandler creates a new location handler
func NewLocationHandler(queryService *service.QueryService) *LocationHandler {
	return &LocationHandler{
		queryService: queryService,
	}
}

// ListLocations handles GET /locations
func (h *LocationHandler) ListLocations(c *gin.Context) {
	var filter models.LocationFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	locations, err := h.queryService.ListLocations(c.Request.Context(), filter)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.JSON(c, locations)
}

// GetLocation handles GET /location/:name
func (h *LocationHandler) GetLocation(c *gin.Context) {
	cameras, err := h.queryService.LocationCameras(c.Request.Context(), c.Param("name"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.JSON(c, cameras)
}

// GetUsual handles GET /usual/:location
func (h *LocationHandler) GetUsual(c *gin.Context) {
	views, err := h.queryService.Usual(c.Request.Context(), c.Param("location"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.JSON(c, views)
}
