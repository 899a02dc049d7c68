package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/mhalvorsen/gigbook/backend/internal/middleware"
	"github.com/mhalvorsen/gigbook/backend/internal/services"
	"github.com/mhalvorsen/gigbook/backend/pkg/response"
	"gorm.io/gorm"
)

type GigRoleHandler struct {
	roleService *services.GigRoleService
	lifecycle   *services.LifecycleService
}

func NewGigRoleHandler(db *gorm.DB, lifecycle *services.LifecycleService) *GigRoleHandler {
	return &GigRoleHandler{
		roleService: services.NewGigRoleService(db, lifecycle),
		lifecycle:   lifecycle,
	}
}

// Create adds a role to a gig
// POST /api/gigs/:id/roles
func (h *GigRoleHandler) Create(c *gin.Context) {
	gigID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req services.CreateGigRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	role, err := h.roleService.Create(middleware.GetActor(c), gigID, &req)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Created(c, role)
}

// ListByGig returns the roles on a gig with effective payment status
// GET /api/gigs/:id/roles
func (h *GigRoleHandler) ListByGig(c *gin.Context) {
	gigID, ok := paramID(c, "id")
	if !ok {
		return
	}

	roles, err := h.roleService.ListByGig(middleware.GetActor(c), gigID)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, roles)
}

// Get returns a single role
// GET /api/roles/:id
func (h *GigRoleHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	role, err := h.roleService.Get(middleware.GetActor(c), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, role)
}

// MyRoles returns the user's upcoming assignments
// GET /api/roles/mine
func (h *GigRoleHandler) MyRoles(c *gin.Context) {
	roles, err := h.roleService.MyRoles(middleware.GetActor(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, roles)
}

// Update edits role fields the actor is allowed to touch
// PUT /api/roles/:id
func (h *GigRoleHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req services.UpdateGigRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	role, err := h.roleService.Update(middleware.GetActor(c), id, &req)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, role)
}

// Delete removes a role
// DELETE /api/roles/:id
func (h *GigRoleHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.roleService.Delete(middleware.GetActor(c), id); err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, gin.H{"message": "role deleted"})
}

// Transition moves a role along its invitation or payment status axis
// POST /api/roles/:id/transition
func (h *GigRoleHandler) Transition(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req services.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	role, err := h.lifecycle.ApplyTransition(middleware.GetActor(c), id, &req)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, role)
}

type reversePaymentRequest struct {
	Note string `json:"note"`
}

// ReversePayment rolls a paid role back to pending payment
// POST /api/roles/:id/reverse-payment
func (h *GigRoleHandler) ReversePayment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req reversePaymentRequest
	_ = c.ShouldBindJSON(&req)

	role, err := h.lifecycle.ReversePayment(middleware.GetActor(c), id, req.Note)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, role)
}

// History returns the role's status change trail
// GET /api/roles/:id/history
func (h *GigRoleHandler) History(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	entries, err := h.lifecycle.History(middleware.GetActor(c), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, entries)
}
