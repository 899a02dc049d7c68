package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/mhalvorsen/gigbook/backend/internal/middleware"
	"github.com/mhalvorsen/gigbook/backend/internal/services"
	"github.com/mhalvorsen/gigbook/backend/pkg/response"
	"gorm.io/gorm"
)

type ReadinessHandler struct {
	readinessService *services.ReadinessService
}

func NewReadinessHandler(db *gorm.DB) *ReadinessHandler {
	return &ReadinessHandler{
		readinessService: services.NewReadinessService(db),
	}
}

// Get returns the caller's prep checklist for a gig
// GET /api/gigs/:id/readiness
func (h *ReadinessHandler) Get(c *gin.Context) {
	gigID, ok := paramID(c, "id")
	if !ok {
		return
	}

	readiness, err := h.readinessService.Get(middleware.GetActor(c), gigID)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, readiness)
}

// Update writes the caller's prep checklist for a gig
// PUT /api/gigs/:id/readiness
func (h *ReadinessHandler) Update(c *gin.Context) {
	gigID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req services.ReadinessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	readiness, err := h.readinessService.Update(middleware.GetActor(c), gigID, &req)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, readiness)
}

// ListForGig is the owner's overview of all musicians' checklists
// GET /api/gigs/:id/readiness/all
func (h *ReadinessHandler) ListForGig(c *gin.Context) {
	gigID, ok := paramID(c, "id")
	if !ok {
		return
	}

	rows, err := h.readinessService.ListForGig(middleware.GetActor(c), gigID)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, rows)
}
