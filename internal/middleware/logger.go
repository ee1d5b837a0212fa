package middleware

import (
	"time"

	"cdr.dev/slog/v3"
	"github.com/gin-gonic/gin"
)

// Logger middleware logs HTTP requests. Requests that recorded errors are
// logged at error level with the errors attached.
func Logger(log slog.Logger) gin.HandlerFunc {
	log = log.Named("http")

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		fields := []slog.Field{
			slog.F("method", c.Request.Method),
			slog.F("path", path),
			slog.F("status", c.Writer.Status()),
			slog.F("latency", time.Since(start)),
			slog.F("client_ip", c.ClientIP()),
		}

		ctx := c.Request.Context()
		if len(c.Errors) > 0 {
			log.Error(ctx, "request failed", append(fields, slog.F("errors", c.Errors.String()))...)
			return
		}
		log.Debug(ctx, "request", fields...)
	}
}
