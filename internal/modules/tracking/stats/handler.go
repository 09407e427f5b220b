package stats

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pixelspace/views-core/internal/models"
	"github.com/pixelspace/views-core/internal/pkg/pagination"
	"github.com/pixelspace/views-core/internal/pkg/response"
	"gorm.io/gorm"
)

// Handler exposes the statistics query surface to dashboards.
type Handler struct {
	svc *Service
	db  *gorm.DB
}

func NewHandler(svc *Service, db *gorm.DB) *Handler {
	return &Handler{svc: svc, db: db}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/views", authMW)
	g.GET("/stats/:contentID", h.postStats)
	g.DELETE("/stats/:contentID", h.invalidatePost)
	g.GET("/artists/:artistID/stats", h.artistStats)
	g.DELETE("/artists/:artistID/stats", h.invalidateArtist)
	g.GET("/events", h.listEvents)
}

// GET /views/stats/:contentID — the PostStats object. computed_at lets the
// consumer display staleness.
func (h *Handler) postStats(c *gin.Context) {
	out, err := h.svc.GetPostStats(c.Request.Context(), c.Param("contentID"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, out)
}

// DELETE /views/stats/:contentID — explicit invalidation for collaborators
// whose writes change the ground truth (reactions, comments, takedowns).
func (h *Handler) invalidatePost(c *gin.Context) {
	if err := h.svc.InvalidatePost(c.Request.Context(), c.Param("contentID")); err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

// GET /views/artists/:artistID/stats — the ArtistStats rollup.
func (h *Handler) artistStats(c *gin.Context) {
	out, err := h.svc.GetArtistStats(c.Request.Context(), c.Param("artistID"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, out)
}

// DELETE /views/artists/:artistID/stats
func (h *Handler) invalidateArtist(c *gin.Context) {
	if err := h.svc.InvalidateArtist(c.Request.Context(), c.Param("artistID")); err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

type eventQuery struct {
	ContentID string     `form:"content_id"`
	PlayerID  string     `form:"player_id"`
	Channel   string     `form:"channel"`
	From      *time.Time `form:"from" time_format:"2006-01-02"`
	To        *time.Time `form:"to"   time_format:"2006-01-02"`
}

// GET /views/events — paged raw-event listing for the moderation dashboard.
// Rows only cover the raw retention window; older views exist solely as
// daily aggregates.
func (h *Handler) listEvents(c *gin.Context) {
	var eq eventQuery
	if err := c.ShouldBindQuery(&eq); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	tx := h.db.Model(&models.ViewEventModel{}).Order("created_at DESC")
	if eq.ContentID != "" {
		tx = tx.Where("content_id = ?", eq.ContentID)
	}
	if eq.PlayerID != "" {
		tx = tx.Where("player_id = ?", eq.PlayerID)
	}
	if eq.Channel != "" {
		tx = tx.Where("channel = ?", eq.Channel)
	}
	if eq.From != nil {
		tx = tx.Where("created_at >= ?", *eq.From)
	}
	if eq.To != nil {
		tx = tx.Where("created_at <= ?", *eq.To)
	}

	var items []models.ViewEventModel
	pag, err := pagination.Paginate(tx, pagination.FromContext(c), &items)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, items, pag)
}
