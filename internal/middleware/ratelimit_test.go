package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiterWindow(t *testing.T) {
	mClock := quartz.NewMock(t)
	rl := NewRateLimiter(2, time.Minute, mClock)

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"))

	mClock.Advance(30 * time.Second)
	assert.False(t, rl.Allow("10.0.0.1"))

	mClock.Advance(31 * time.Second)
	assert.True(t, rl.Allow("10.0.0.1"))
}

func TestRateLimiterFreesSlotsOneAtATime(t *testing.T) {
	mClock := quartz.NewMock(t)
	rl := NewRateLimiter(2, time.Minute, mClock)

	assert.True(t, rl.Allow("10.0.0.1"))
	mClock.Advance(40 * time.Second)
	assert.True(t, rl.Allow("10.0.0.1"))

	// Only the first request has aged out
	mClock.Advance(21 * time.Second)
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))

	mClock.Advance(40 * time.Second)
	assert.True(t, rl.Allow("10.0.0.1"))
}

func TestRateLimiterSweepsIdleClients(t *testing.T) {
	mClock := quartz.NewMock(t)
	rl := NewRateLimiter(5, time.Minute, mClock)

	for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		rl.Allow(ip)
	}
	assert.Equal(t, 3, rl.tracked())

	mClock.Advance(2 * time.Minute)
	rl.Allow("10.0.0.4")
	assert.Equal(t, 1, rl.tracked())
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(NewRateLimiter(1, time.Minute, quartz.NewMock(t))))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), `"code":429`)
}
