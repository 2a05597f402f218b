package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	"resume-builder/internal/shared/metrics"
	"resume-builder/internal/shared/server/respond"
)

// Backpressure admits at most limit concurrent requests into storage-bound
// handlers. Excess requests are shed with 503 rather than queued.
func Backpressure(limit int) gin.HandlerFunc {
	if limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	sem := semaphore.NewWeighted(int64(limit))
	return func(c *gin.Context) {
		if !sem.TryAcquire(1) {
			metrics.IncBackpressureRejection()
			c.Header("Retry-After", "1")
			respond.Error(c, http.StatusServiceUnavailable, "unavailable", "Server is busy. Please retry.", nil)
			return
		}
		defer sem.Release(1)
		c.Next()
	}
}
