package record

import (
	"github.com/gin-gonic/gin"
	"github.com/pixelspace/views-core/internal/middleware"
	"github.com/pixelspace/views-core/internal/pkg/response"
)

// Handler exposes the ingestion endpoint.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/views", h.record)
}

// POST /views — accept one view. Responds 202 as soon as the event is
// queued; durability is not part of the contract.
func (h *Handler) record(c *gin.Context) {
	var in RecordViewInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	in.IP = c.ClientIP()
	in.UserAgent = c.GetHeader("User-Agent")

	// A token on the ingestion call attributes the view to the signed-in
	// viewer; the payload field wins when both are present.
	if in.ViewerUserID == nil {
		if viewer := middleware.ViewerID(c); viewer != "" {
			in.ViewerUserID = &viewer
		}
	}

	if err := h.svc.Record(c.Request.Context(), in); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.Accepted(c)
}
