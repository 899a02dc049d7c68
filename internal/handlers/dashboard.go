package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/mhalvorsen/gigbook/backend/internal/middleware"
	"github.com/mhalvorsen/gigbook/backend/internal/services"
	"github.com/mhalvorsen/gigbook/backend/pkg/response"
	"gorm.io/gorm"
)

type DashboardHandler struct {
	dashboardService *services.DashboardService
}

func NewDashboardHandler(db *gorm.DB) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: services.NewDashboardService(db),
	}
}

// Summary returns the landing page overview numbers
// GET /api/dashboard
func (h *DashboardHandler) Summary(c *gin.Context) {
	summary, err := h.dashboardService.Summary(middleware.GetActor(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, summary)
}
