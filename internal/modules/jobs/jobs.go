// Package jobs exposes the scheduler over HTTP so the admin dashboard can
// inspect and manually trigger the tracking jobs.
package jobs

import (
	"github.com/gin-gonic/gin"
	pkgcron "github.com/pixelspace/views-core/internal/pkg/cron"
	"github.com/pixelspace/views-core/internal/pkg/response"
)

// Handler wraps the scheduler for HTTP access.
type Handler struct {
	sched *pkgcron.Scheduler
}

func NewHandler(sched *pkgcron.Scheduler) *Handler {
	return &Handler{sched: sched}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/jobs", authMW)
	g.GET("", h.list)
	g.GET("/:name", h.status)
	g.POST("/:name/run", h.run)
}

// GET /jobs — list all jobs
func (h *Handler) list(c *gin.Context) {
	response.OK(c, h.sched.List())
}

// GET /jobs/:name — last known execution state
func (h *Handler) status(c *gin.Context) {
	result, err := h.sched.Status(c.Param("name"))
	if err != nil {
		response.NotFoundMsg(c, "job not found")
		return
	}
	response.OK(c, result)
}

// POST /jobs/:name/run — manually trigger a job
func (h *Handler) run(c *gin.Context) {
	if err := h.sched.Run(c.Request.Context(), c.Param("name")); err != nil {
		response.NotFoundMsg(c, "job not found")
		return
	}
	response.OK(c, gin.H{"message": "job triggered"})
}
