package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/mhalvorsen/gigbook/backend/internal/middleware"
	"github.com/mhalvorsen/gigbook/backend/internal/services"
	"github.com/mhalvorsen/gigbook/backend/pkg/response"
	"gorm.io/gorm"
)

type SetlistHandler struct {
	setlistService *services.SetlistService
}

func NewSetlistHandler(db *gorm.DB) *SetlistHandler {
	return &SetlistHandler{
		setlistService: services.NewSetlistService(db),
	}
}

// List returns a gig's setlist in play order
// GET /api/gigs/:id/setlist
func (h *SetlistHandler) List(c *gin.Context) {
	gigID, ok := paramID(c, "id")
	if !ok {
		return
	}

	items, err := h.setlistService.List(middleware.GetActor(c), gigID)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, items)
}

// Add appends a song to the setlist
// POST /api/gigs/:id/setlist
func (h *SetlistHandler) Add(c *gin.Context) {
	gigID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req services.SetlistItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	item, err := h.setlistService.Add(middleware.GetActor(c), gigID, &req)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Created(c, item)
}

// Update edits a setlist entry
// PUT /api/setlist/:id
func (h *SetlistHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req services.SetlistItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	item, err := h.setlistService.Update(middleware.GetActor(c), id, &req)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, item)
}

// Delete removes a setlist entry
// DELETE /api/setlist/:id
func (h *SetlistHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.setlistService.Delete(middleware.GetActor(c), id); err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, gin.H{"message": "item deleted"})
}

type reorderRequest struct {
	ItemIDs []uint `json:"item_ids" binding:"required"`
}

// Reorder rewrites the play order for a gig's setlist
// PUT /api/gigs/:id/setlist/order
func (h *SetlistHandler) Reorder(c *gin.Context) {
	gigID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.setlistService.Reorder(middleware.GetActor(c), gigID, req.ItemIDs); err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, gin.H{"message": "setlist reordered"})
}

// SetLearning records the caller's learning state for one song
// PUT /api/setlist/:id/learning
func (h *SetlistHandler) SetLearning(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req services.LearningStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	status, err := h.setlistService.SetLearningStatus(middleware.GetActor(c), id, &req)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, status)
}

// ListLearning returns the caller's learning state across a gig's setlist
// GET /api/gigs/:id/setlist/learning
func (h *SetlistHandler) ListLearning(c *gin.Context) {
	gigID, ok := paramID(c, "id")
	if !ok {
		return
	}

	statuses, err := h.setlistService.ListLearningStatuses(middleware.GetActor(c), gigID)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, statuses)
}
