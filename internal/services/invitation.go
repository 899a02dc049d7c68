package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mhalvorsen/gigbook/backend/internal/config"
	"github.com/mhalvorsen/gigbook/backend/internal/models"
	"github.com/mhalvorsen/gigbook/backend/internal/utils"
	"github.com/mhalvorsen/gigbook/backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InvitationService issues and redeems the opaque single-use tokens that
// link an email address to a role offer. Token state changes and the role
// transitions they imply commit in one transaction.
type InvitationService struct {
	db         *gorm.DB
	lifecycle  *LifecycleService
	authz      *AuthzService
	dispatcher *DispatcherService
	configSvc  *SystemConfigService
}

func NewInvitationService(db *gorm.DB, lifecycle *LifecycleService, dispatcher *DispatcherService) *InvitationService {
	return &InvitationService{
		db:         db,
		lifecycle:  lifecycle,
		authz:      NewAuthzService(db),
		dispatcher: dispatcher,
		configSvc:  NewSystemConfigService(db),
	}
}

type IssueInvitationRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// Issue creates an invitation for a role and emails the link. Any earlier
// pending invitation for the role is revoked so only one token can win.
// If the role is not yet in the invited state it transitions there as part
// of the same commit.
func (s *InvitationService) Issue(actor Actor, roleID uint, req *IssueInvitationRequest) (*models.GigInvitation, string, error) {
	role, gig, err := s.lifecycle.loadRole(roleID)
	if err != nil {
		return nil, "", err
	}
	if !s.authz.IsGigOwner(actor, gig) {
		return nil, "", ErrForbidden
	}
	if role.InvitationState == models.InvitationAccepted {
		return nil, "", fmt.Errorf("%w: role is already accepted", ErrInvalidTransition)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, "", fmt.Errorf("%w: email is required", ErrValidation)
	}

	token, err := utils.NewOpaqueToken()
	if err != nil {
		return nil, "", err
	}

	expireHours := s.configSvc.GetInt("invitation_expire_hours", 168)
	invitation := &models.GigInvitation{
		Token:     token,
		Email:     email,
		GigRoleID: roleID,
		GigID:     gig.ID,
		Status:    models.InviteTokenPending,
		ExpiresAt: time.Now().Add(time.Duration(expireHours) * time.Hour),
	}

	var oldStatus string
	transitioned := false
	err = s.db.Transaction(func(tx *gorm.DB) error {
		// Supersede: older outstanding tokens for this role lose.
		if err := tx.Model(&models.GigInvitation{}).
			Where("gig_role_id = ? AND status = ?", roleID, models.InviteTokenPending).
			Update("status", models.InviteTokenRevoked).Error; err != nil {
			return err
		}

		if err := tx.Create(invitation).Error; err != nil {
			return err
		}

		var fresh models.GigRole
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&fresh, roleID).Error; err != nil {
			return err
		}
		if fresh.InvitationState != models.InvitationInvited {
			// Re-offering a declined or expired role hops through pending
			// first so each leg stays a tabled transition.
			if fresh.InvitationState == models.InvitationDeclined || fresh.InvitationState == models.InvitationExpired {
				reset := &TransitionRequest{
					Axis:      models.AxisInvitation,
					NewStatus: string(models.InvitationPending),
					Note:      fmt.Sprintf("re-offer to %s", email),
				}
				if _, err := s.lifecycle.applyLocked(tx, actor, roleID, reset, false); err != nil {
					return err
				}
			}
			treq := &TransitionRequest{
				Axis:      models.AxisInvitation,
				NewStatus: string(models.InvitationInvited),
				Note:      fmt.Sprintf("invitation sent to %s", email),
			}
			oldStatus, err = s.lifecycle.applyLocked(tx, actor, roleID, treq, false)
			if err != nil {
				return err
			}
			transitioned = true
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	inviteURL := s.inviteURL(invitation.Token)
	s.dispatcher.OnInvitationIssued(invitation, role, gig, inviteURL, actor)
	if transitioned {
		updated, _, err := s.lifecycle.loadRole(roleID)
		if err == nil {
			s.dispatcher.OnTransition(updated, gig, models.AxisInvitation, oldStatus, string(models.InvitationInvited), actor)
		}
	}
	return invitation, inviteURL, nil
}

type RedeemInvitationRequest struct {
	Response string `json:"response"` // accepted (default), tentative, declined
}

// Redeem consumes a token on behalf of the authenticated musician. The
// token state, the role assignment and the role transition commit together;
// an expired token is lazily marked and reported as such.
func (s *InvitationService) Redeem(actor Actor, token string, req *RedeemInvitationRequest) (*models.GigRole, error) {
	if actor.IsSystem() || actor.UserID == 0 {
		return nil, ErrUnauthenticated
	}

	response := models.InvitationAccepted
	if req != nil && req.Response != "" {
		response = models.InvitationStatus(req.Response)
		if !musicianResponses[response] {
			return nil, fmt.Errorf("%w: invalid response %q", ErrValidation, req.Response)
		}
	}

	var invitation models.GigInvitation
	if err := s.db.Where("token = ?", token).First(&invitation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	switch invitation.Status {
	case models.InviteTokenAccepted, models.InviteTokenRevoked:
		return nil, ErrTokenAlreadyUsed
	case models.InviteTokenExpired:
		return nil, ErrTokenExpired
	}

	if time.Now().After(invitation.ExpiresAt) {
		s.expireInvitation(&invitation)
		return nil, ErrTokenExpired
	}

	var user models.User
	if err := s.db.First(&user, actor.UserID).Error; err != nil {
		return nil, ErrUnauthenticated
	}

	_, gig, err := s.lifecycle.loadRole(invitation.GigRoleID)
	if err != nil {
		return nil, err
	}

	var oldStatus string
	err = s.db.Transaction(func(tx *gorm.DB) error {
		// Lock the token row first so two redeemers serialize here.
		var fresh models.GigInvitation
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&fresh, invitation.ID).Error; err != nil {
			return err
		}
		if fresh.Status != models.InviteTokenPending {
			return ErrTokenAlreadyUsed
		}

		tokenUpdates := map[string]interface{}{}
		switch response {
		case models.InvitationAccepted:
			tokenUpdates["status"] = models.InviteTokenAccepted
			tokenUpdates["accepted_at"] = time.Now()
		case models.InvitationDeclined:
			tokenUpdates["status"] = models.InviteTokenRevoked
		}
		if len(tokenUpdates) > 0 {
			if err := tx.Model(&fresh).Updates(tokenUpdates).Error; err != nil {
				return err
			}
		}

		if response != models.InvitationDeclined {
			claimed := models.GigRole{}
			claimed.SetMusician(user.ID, user.Name)
			if err := tx.Model(&models.GigRole{}).Where("id = ?", invitation.GigRoleID).
				Updates(map[string]interface{}{
					"musician_id":   claimed.MusicianID,
					"contact_id":    nil,
					"musician_name": claimed.MusicianName,
				}).Error; err != nil {
				return err
			}
		}

		treq := &TransitionRequest{
			Axis:      models.AxisInvitation,
			NewStatus: string(response),
			Note:      fmt.Sprintf("invitation response by %s", invitation.Email),
		}
		oldStatus, err = s.lifecycle.applyLocked(tx, actor, invitation.GigRoleID, treq, false)
		return err
	})
	if err != nil {
		return nil, err
	}

	updated, _, err := s.lifecycle.loadRole(invitation.GigRoleID)
	if err != nil {
		return nil, err
	}
	s.dispatcher.OnTransition(updated, gig, models.AxisInvitation, oldStatus, string(response), actor)
	return updated, nil
}

// Peek returns the gig and role behind a token without consuming it, for
// the landing page an invitee sees before signing in. Expired tokens are
// lazily marked here too.
func (s *InvitationService) Peek(token string) (*models.GigInvitation, error) {
	var invitation models.GigInvitation
	if err := s.db.Preload("GigRole").Preload("GigRole.Gig").
		Where("token = ?", token).First(&invitation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	switch invitation.Status {
	case models.InviteTokenAccepted, models.InviteTokenRevoked:
		return nil, ErrTokenAlreadyUsed
	case models.InviteTokenExpired:
		return nil, ErrTokenExpired
	}
	if time.Now().After(invitation.ExpiresAt) {
		s.expireInvitation(&invitation)
		return nil, ErrTokenExpired
	}
	return &invitation, nil
}

// Revoke invalidates a pending invitation. Owner only.
func (s *InvitationService) Revoke(actor Actor, invitationID uint) error {
	var invitation models.GigInvitation
	if err := s.db.First(&invitation, invitationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	var gig models.Gig
	if err := s.db.First(&gig, invitation.GigID).Error; err != nil {
		return err
	}
	if !s.authz.IsGigOwner(actor, &gig) {
		return ErrForbidden
	}
	if invitation.Status != models.InviteTokenPending {
		return ErrTokenAlreadyUsed
	}

	if err := s.db.Model(&invitation).Update("status", models.InviteTokenRevoked).Error; err != nil {
		return err
	}
	s.dispatcher.OnInvitationRevoked(&invitation, &gig, actor)
	return nil
}

// ListByGig returns all invitations for a gig, newest first. Owner only.
func (s *InvitationService) ListByGig(actor Actor, gigID uint) ([]models.GigInvitation, error) {
	var gig models.Gig
	if err := s.db.First(&gig, gigID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !s.authz.IsGigOwner(actor, &gig) {
		return nil, ErrForbidden
	}

	var invitations []models.GigInvitation
	if err := s.db.Where("gig_id = ?", gigID).
		Order("created_at DESC").Find(&invitations).Error; err != nil {
		return nil, err
	}
	return invitations, nil
}

// ExpireStale marks overdue pending invitations and expires the roles still
// waiting on them. Run by the scheduler; returns the number of tokens swept.
func (s *InvitationService) ExpireStale() (int, error) {
	var stale []models.GigInvitation
	if err := s.db.Where("status = ? AND expires_at < ?", models.InviteTokenPending, time.Now()).
		Find(&stale).Error; err != nil {
		return 0, err
	}

	swept := 0
	for i := range stale {
		s.expireInvitation(&stale[i])
		swept++
	}
	return swept, nil
}

// expireInvitation marks a token expired and, when the role is still in the
// invited state, expires the role offer as a system action.
func (s *InvitationService) expireInvitation(invitation *models.GigInvitation) {
	var oldStatus string
	transitioned := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.GigInvitation{}).
			Where("id = ? AND status = ?", invitation.ID, models.InviteTokenPending).
			Update("status", models.InviteTokenExpired).Error; err != nil {
			return err
		}

		var fresh models.GigRole
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&fresh, invitation.GigRoleID).Error; err != nil {
			return err
		}
		if fresh.InvitationState != models.InvitationInvited {
			return nil
		}

		treq := &TransitionRequest{
			Axis:      models.AxisInvitation,
			NewStatus: string(models.InvitationExpired),
			Note:      "invitation expired",
		}
		var err error
		oldStatus, err = s.lifecycle.applyLocked(tx, System, invitation.GigRoleID, treq, false)
		if err != nil {
			return err
		}
		transitioned = true
		return nil
	})
	if err != nil {
		logger.Errorf("[Invitation] Failed to expire invitation %d: %v", invitation.ID, err)
		return
	}

	if transitioned {
		role, gig, err := s.lifecycle.loadRole(invitation.GigRoleID)
		if err == nil {
			s.dispatcher.OnTransition(role, gig, models.AxisInvitation, oldStatus, string(models.InvitationExpired), System)
		}
	}
}

func (s *InvitationService) inviteURL(token string) string {
	base := "http://localhost:8080"
	if config.GlobalConfig != nil && config.GlobalConfig.Server.BaseURL != "" {
		base = strings.TrimRight(config.GlobalConfig.Server.BaseURL, "/")
	}
	return fmt.Sprintf("%s/invitations/%s", base, token)
}
