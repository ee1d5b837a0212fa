package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/campuspulse/occupancy-backend-go/internal/models"
	"github.com/campuspulse/occupancy-backend-go/internal/service"
	"github.com/campuspulse/occupancy-backend-go/pkg/response"
)

// AnalyticsHandler handles HTTP requests for occupancy profiles
type AnalyticsHandler struct {
	queryService *service.QueryService
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(queryService *service.QueryService) *AnalyticsHandler {
	return &AnalyticsHandler{
		queryService: queryService,
	}
}

// GetAnalytics handles GET /analytics/:location/:weekday
func (h *AnalyticsHandler) GetAnalytics(c *gin.Context) {
	var filter models.AnalyticsFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	buckets, err := h.queryService.Analytics(c.Request.Context(), c.Param("location"), c.Param("weekday"), filter)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.JSON(c, buckets)
}
