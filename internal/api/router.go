package api

import (
	"net/http"

	"cdr.dev/slog/v3"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/campuspulse/occupancy-backend-go/internal/handler"
	"github.com/campuspulse/occupancy-backend-go/internal/middleware"
)

// Handlers groups the HTTP handlers mounted by the router
type Handlers struct {
	Locations *handler.LocationHandler
	Analytics *handler.AnalyticsHandler
	Cameras   *handler.CameraHandler
	Images    *handler.ImageHandler
	Status    *handler.StatusHandler
}

// Options configures the router
type Options struct {
	Prefix      string // Mount point of the query routes, "" for root
	Logger      slog.Logger
	RateLimiter *middleware.RateLimiter // Nil disables rate limiting
	Gatherer    prometheus.Gatherer     // Nil disables /metrics
}

// SetupRouter 设置路由
func SetupRouter(opts Options, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(opts.Logger))

	// CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Occupancy API is running",
		})
	})

	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group(opts.Prefix)
	if opts.RateLimiter != nil {
		api.Use(middleware.RateLimit(opts.RateLimiter))
	}
	{
		api.GET("/locations", h.Locations.ListLocations)
		api.GET("/location/:name", h.Locations.GetLocation)
		api.GET("/usual/:location", h.Locations.GetUsual)
		api.GET("/analytics/:location/:weekday", h.Analytics.GetAnalytics)
		api.GET("/camera/:id/history", h.Cameras.GetHistory)
		api.GET("/image/:ref", h.Images.GetImage)
		api.GET("/status", h.Status.GetStatus)
	}

	return r
}
