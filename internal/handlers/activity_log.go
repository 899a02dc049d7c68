package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mhalvorsen/gigbook/backend/internal/middleware"
	"github.com/mhalvorsen/gigbook/backend/internal/services"
	"github.com/mhalvorsen/gigbook/backend/pkg/response"
	"gorm.io/gorm"
)

type ActivityLogHandler struct {
	logService *services.ActivityLogService
	gigService *services.GigService
}

func NewActivityLogHandler(db *gorm.DB) *ActivityLogHandler {
	return &ActivityLogHandler{
		logService: services.NewActivityLogService(db),
		gigService: services.NewGigService(db),
	}
}

// List returns filtered activity logs, admin only
// GET /api/admin/logs
func (h *ActivityLogHandler) List(c *gin.Context) {
	var req services.ActivityLogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.logService.List(&req)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, result)
}

// Modules returns the distinct log modules, admin only
// GET /api/admin/logs/modules
func (h *ActivityLogHandler) Modules(c *gin.Context) {
	modules, err := h.logService.GetModules()
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, modules)
}

// GigFeed returns the activity trail for one gig
// GET /api/gigs/:id/activity
func (h *ActivityLogHandler) GigFeed(c *gin.Context) {
	gigID, ok := paramID(c, "id")
	if !ok {
		return
	}

	// Visibility check rides on gig read access.
	if _, err := h.gigService.Get(middleware.GetActor(c), gigID); err != nil {
		respondErr(c, err)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	logs, err := h.logService.ListForGig(gigID, limit)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, logs)
}
