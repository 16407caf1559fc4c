package worker

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandler serves liveness, readiness and a dispatch counter
// snapshot for quick inspection without scraping Prometheus.
func (w *Worker) HealthHandler() http.Handler {
	r := gin.New()

	r.Use(gin.Recovery())

	// liveness: process is up
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	// readiness: the claim loop is running
	r.GET("/readyz", func(c *gin.Context) {
		if !w.isReady() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/statusz", func(c *gin.Context) {
		snap := w.metrics.Snapshot()

		c.JSON(http.StatusOK, gin.H{
			"claimed":      snap.Claimed,
			"sent":         snap.Sent,
			"failed":       snap.Failed,
			"retried":      snap.Retried,
			"deadLettered": snap.DeadLettered,
			"avgDuration":  snap.AverageDuration.String(),
			"maxDuration":  snap.MaxDuration.String(),
		})
	})

	return r
}
