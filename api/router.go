package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/harvester/api/handler"
	"github.com/use-agent/harvester/api/middleware"
	"github.com/use-agent/harvester/cache"
	"github.com/use-agent/harvester/config"
	"github.com/use-agent/harvester/harvest"
	"github.com/use-agent/harvester/output"
)

// jobTTL is how long finished harvest jobs stay queryable.
const jobTTL = time.Hour

// NewRouter creates a configured Gin engine with all routes and middleware.
// ctx bounds the background goroutines the router owns.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint is intentionally outside auth so monitoring probes always work.
func NewRouter(ctx context.Context, hv *harvest.Harvester, pages *cache.Cache, cfg *config.Config, version string, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	jobs := handler.NewJobStore(ctx, jobTTL)

	v1 := r.Group("/api/v1")

	// Health: no auth required.
	v1.GET("/health", handler.Health(hv, pages, jobs, cfg.Fetch.Mode, version, startTime))

	// Protected group: auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.POST("/locators", handler.PostLocators(hv))

	protected.POST("/harvest", handler.PostHarvest(hv, output.Options{CRLF: cfg.Output.CRLF}))
	protected.POST("/harvest/jobs", handler.PostHarvestJob(hv, jobs))
	protected.GET("/harvest/jobs/:id", handler.GetHarvestJob(jobs))

	return r
}
