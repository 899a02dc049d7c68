package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/mhalvorsen/gigbook/backend/internal/middleware"
	"github.com/mhalvorsen/gigbook/backend/internal/services"
	"github.com/mhalvorsen/gigbook/backend/pkg/response"
	"gorm.io/gorm"
)

type GigHandler struct {
	gigService *services.GigService
}

func NewGigHandler(db *gorm.DB) *GigHandler {
	return &GigHandler{
		gigService: services.NewGigService(db),
	}
}

// Create creates a gig in a project
// POST /api/gigs
func (h *GigHandler) Create(c *gin.Context) {
	var req services.CreateGigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	gig, err := h.gigService.Create(middleware.GetActor(c), &req)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Created(c, gig)
}

// List returns gigs visible to the user
// GET /api/gigs
func (h *GigHandler) List(c *gin.Context) {
	var req services.GigListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.gigService.List(middleware.GetActor(c), &req)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, result)
}

// Get returns a single gig
// GET /api/gigs/:id
func (h *GigHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	gig, err := h.gigService.Get(middleware.GetActor(c), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, gig)
}

// Update updates gig details
// PUT /api/gigs/:id
func (h *GigHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req services.UpdateGigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	gig, err := h.gigService.Update(middleware.GetActor(c), id, &req)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, gig)
}

// Delete removes a gig and its roles
// DELETE /api/gigs/:id
func (h *GigHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.gigService.Delete(middleware.GetActor(c), id); err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, gin.H{"message": "gig deleted"})
}
