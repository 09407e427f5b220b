package app

import (
	"github.com/gin-gonic/gin"
	"github.com/pixelspace/views-core/internal/middleware"
	"github.com/pixelspace/views-core/internal/modules/jobs"
	"github.com/pixelspace/views-core/internal/modules/tracking/record"
	"github.com/pixelspace/views-core/internal/modules/tracking/stats"
	pkgredis "github.com/pixelspace/views-core/internal/pkg/redis"
	"github.com/pixelspace/views-core/internal/pkg/response"
)

func (a *App) registerRoutes(rc *pkgredis.Client, recorder *record.Service, statsSvc *stats.Service) {
	r := a.router
	authMW := middleware.Auth()

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	r.GET("/healthz", func(c *gin.Context) {
		response.OK(c, gin.H{"status": "ok"})
	})

	r.Use(middleware.RateLimit(rc.Raw()))

	api := r.Group("/api/v2")
	api.Use(middleware.OptionalAuth())

	record.NewHandler(recorder).RegisterRoutes(api)
	stats.NewHandler(statsSvc, a.db).RegisterRoutes(api, authMW)
	jobs.NewHandler(a.sched).RegisterRoutes(api, authMW)
}
