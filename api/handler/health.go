package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/harvester/cache"
	"github.com/use-agent/harvester/harvest"
	"github.com/use-agent/harvester/models"
)

// Health returns a handler for GET /api/v1/health.
//
// Status is "busy" while a crawl holds the harvester; requests still queue.
func Health(hv *harvest.Harvester, pages *cache.Cache, jobs *JobStore, fetchMode, version string, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "healthy"
		if hv.Busy() {
			status = "busy"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:     status,
			Uptime:     time.Since(startTime).Round(time.Second).String(),
			Version:    version,
			FetchMode:  fetchMode,
			CacheSize:  pages.Len(),
			ActiveJobs: jobs.Active(),
		})
	}
}
