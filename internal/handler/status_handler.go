package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/campuspulse/occupancy-backend-go/internal/service"
	"github.com/campuspulse/occupancy-backend-go/pkg/response"
)

// StatusHandler reports on the ingestion scheduler
type StatusHandler struct {
	queryService *service.QueryService
	interval     time.Duration
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(queryService *service.QueryService, interval time.Duration) *StatusHandler {
	return &StatusHandler{queryService: queryService, interval: interval}
}

type cycleSummary struct {
	ID         uuid.UUID `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Duplicates int       `json:"duplicates"`
	Stale      int       `json:"stale"`
}

type statusResponse struct {
	Interval  string        `json:"interval"`
	LastCycle *cycleSummary `json:"last_cycle"`
}

// GetStatus handles GET /status
func (h *StatusHandler) GetStatus(c *gin.Context) {
	resp := statusResponse{Interval: h.interval.String()}

	if r := h.queryService.LastCycle(); r != nil {
		resp.LastCycle = &cycleSummary{
			ID:         r.ID,
			StartedAt:  r.StartedAt,
			FinishedAt: r.FinishedAt,
			Succeeded:  r.Succeeded,
			Failed:     r.Failed,
			Duplicates: r.Duplicates,
			Stale:      r.Stale,
		}
	}

	response.JSON(c, resp)
}
