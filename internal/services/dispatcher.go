package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mhalvorsen/gigbook/backend/internal/models"
	"github.com/mhalvorsen/gigbook/backend/pkg/logger"
	"gorm.io/gorm"
)

// DispatcherService fans out notifications and audit entries after a
// lifecycle event has committed. Everything here is best-effort: a failed
// notification or email never affects the transition that triggered it.
type DispatcherService struct {
	db        *gorm.DB
	queue     TaskQueue
	configSvc *SystemConfigService
}

func NewDispatcherService(db *gorm.DB, queue TaskQueue) *DispatcherService {
	return &DispatcherService{
		db:        db,
		queue:     queue,
		configSvc: NewSystemConfigService(db),
	}
}

// OnTransition notifies the parties affected by a status change. The actor
// never hears about their own action: owner-initiated changes notify the
// assigned musician, musician responses and system sweeps notify the owner.
func (s *DispatcherService) OnTransition(role *models.GigRole, gig *models.Gig, axis models.StatusAxis, oldStatus, newStatus string, actor Actor) {
	ownerID, err := s.gigOwnerID(gig)
	if err != nil {
		logger.Errorf("[Dispatcher] Failed to resolve gig owner for gig %d: %v", gig.ID, err)
		return
	}

	notifType := "role_status"
	if axis == models.AxisPayment {
		notifType = "payment_status"
	}

	title := fmt.Sprintf("%s: %s", gig.Title, role.RoleName)
	message := fmt.Sprintf("%s status changed from %s to %s", axis, oldStatus, newStatus)
	if actor.IsSystem() {
		message += " (automatic)"
	}

	var targets []uint
	if actor.UserID != ownerID {
		targets = append(targets, ownerID)
	}
	if role.MusicianID != nil && *role.MusicianID != actor.UserID {
		targets = append(targets, *role.MusicianID)
	}

	for _, userID := range targets {
		s.deliver(userID, notifType, title, message, gig, role, "")
	}

	s.audit(actor, gig, "transition",
		fmt.Sprintf("role %d (%s): %s %s -> %s", role.ID, role.RoleName, axis, oldStatus, newStatus))
}

// OnInvitationIssued emails the invite link to the recipient and records the
// issue in the audit trail. The recipient may not have an account yet, so
// email is the only channel.
func (s *DispatcherService) OnInvitationIssued(inv *models.GigInvitation, role *models.GigRole, gig *models.Gig, inviteURL string, actor Actor) {
	if s.emailEnabled() && inv.Email != "" {
		task := &NotificationTask{
			Email:     inv.Email,
			Title:     fmt.Sprintf("Invitation: %s for %s", role.RoleName, gig.Title),
			Message:   fmt.Sprintf("You have been invited to play %s at %s. Respond here: %s", role.RoleName, gig.Title, inviteURL),
			LinkURL:   inviteURL,
			SendEmail: true,
		}
		if err := s.queue.Enqueue(task); err != nil {
			logger.Errorf("[Dispatcher] Failed to enqueue invitation email for role %d: %v", role.ID, err)
		}
	}

	s.audit(actor, gig, "invitation_issued",
		fmt.Sprintf("invitation issued to %s for role %d (%s)", inv.Email, role.ID, role.RoleName))
}

// OnInvitationRevoked records a revocation; no one is notified.
func (s *DispatcherService) OnInvitationRevoked(inv *models.GigInvitation, gig *models.Gig, actor Actor) {
	s.audit(actor, gig, "invitation_revoked",
		fmt.Sprintf("invitation %d for %s revoked", inv.ID, inv.Email))
}

// NotifyUser creates a one-off notification outside the transition flow,
// used by schedulers. A non-empty dedupKey suppresses duplicates across
// repeated sweep runs.
func (s *DispatcherService) NotifyUser(userID uint, notifType, title, message string, gig *models.Gig, dedupKey string) {
	if dedupKey != "" {
		var count int64
		s.db.Model(&models.Notification{}).Where("dedup_key = ?", dedupKey).Count(&count)
		if count > 0 {
			return
		}
	}
	s.deliver(userID, notifType, title, message, gig, nil, dedupKey)
}

func (s *DispatcherService) deliver(userID uint, notifType, title, message string, gig *models.Gig, role *models.GigRole, dedupKey string) {
	if dedupKey == "" {
		dedupKey = uuid.NewString()
	}

	notif := models.Notification{
		UserID:   userID,
		Type:     notifType,
		Title:    title,
		Message:  message,
		DedupKey: dedupKey,
	}
	if gig != nil {
		notif.GigID = &gig.ID
		notif.ProjectID = &gig.ProjectID
		notif.LinkURL = fmt.Sprintf("/gigs/%d", gig.ID)
	}
	if role != nil {
		notif.GigRoleID = &role.ID
	}

	if err := s.db.Create(&notif).Error; err != nil {
		logger.Errorf("[Dispatcher] Failed to create notification for user %d: %v", userID, err)
		return
	}

	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		logger.Errorf("[Dispatcher] Failed to load user %d for delivery: %v", userID, err)
		return
	}

	task := &NotificationTask{
		NotificationID: notif.ID,
		UserID:         userID,
		Email:          user.Email,
		Title:          title,
		Message:        message,
		LinkURL:        notif.LinkURL,
		SendEmail:      s.emailEnabled(),
	}
	if err := s.queue.Enqueue(task); err != nil {
		logger.Errorf("[Dispatcher] Failed to enqueue notification %d: %v", notif.ID, err)
	}
}

func (s *DispatcherService) audit(actor Actor, gig *models.Gig, action, message string) {
	gigID := gig.ID
	LogInfo("lifecycle", action, message, changedBy(actor), &gigID, "", "", nil)
}

func (s *DispatcherService) gigOwnerID(gig *models.Gig) (uint, error) {
	var project models.Project
	if err := s.db.First(&project, gig.ProjectID).Error; err != nil {
		return 0, err
	}
	return project.OwnerID, nil
}

func (s *DispatcherService) emailEnabled() bool {
	return s.configSvc.GetWithDefault("email_enabled", "false") == "true"
}

// unread timestamp helper used when marking reads in bulk
func nowPtr() *time.Time {
	t := time.Now()
	return &t
}
