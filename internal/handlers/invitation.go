package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/mhalvorsen/gigbook/backend/internal/middleware"
	"github.com/mhalvorsen/gigbook/backend/internal/services"
	"github.com/mhalvorsen/gigbook/backend/pkg/response"
)

type InvitationHandler struct {
	invitationService *services.InvitationService
}

func NewInvitationHandler(invitations *services.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitationService: invitations}
}

// Issue creates an invitation token for a role and emails it out
// POST /api/roles/:id/invitations
func (h *InvitationHandler) Issue(c *gin.Context) {
	roleID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req services.IssueInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	invitation, inviteURL, err := h.invitationService.Issue(middleware.GetActor(c), roleID, &req)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Created(c, gin.H{
		"invitation": invitation,
		"invite_url": inviteURL,
	})
}

// ListByGig returns a gig's invitations
// GET /api/gigs/:id/invitations
func (h *InvitationHandler) ListByGig(c *gin.Context) {
	gigID, ok := paramID(c, "id")
	if !ok {
		return
	}

	invitations, err := h.invitationService.ListByGig(middleware.GetActor(c), gigID)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, invitations)
}

// Revoke cancels a pending invitation
// DELETE /api/invitations/:id
func (h *InvitationHandler) Revoke(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.invitationService.Revoke(middleware.GetActor(c), id); err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, gin.H{"message": "invitation revoked"})
}

// Peek shows what an invitation token is for without consuming it
// GET /api/invitations/token/:token
func (h *InvitationHandler) Peek(c *gin.Context) {
	invitation, err := h.invitationService.Peek(c.Param("token"))
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, invitation)
}

// Redeem consumes an invitation token as the logged-in user
// POST /api/invitations/token/:token/redeem
func (h *InvitationHandler) Redeem(c *gin.Context) {
	// Body is optional, the response field defaults to accepted.
	var req services.RedeemInvitationRequest
	_ = c.ShouldBindJSON(&req)

	role, err := h.invitationService.Redeem(middleware.GetActor(c), c.Param("token"), &req)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, role)
}
