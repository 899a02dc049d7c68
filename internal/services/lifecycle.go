package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/mhalvorsen/gigbook/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Allowed invitation transitions. declined/expired are terminal for the
// attempt but the role can be re-offered, which resets to pending.
var invitationTransitions = map[models.InvitationStatus][]models.InvitationStatus{
	models.InvitationUnfilled:  {models.InvitationPending, models.InvitationInvited},
	models.InvitationPending:   {models.InvitationInvited, models.InvitationAccepted},
	models.InvitationInvited:   {models.InvitationAccepted, models.InvitationTentative, models.InvitationDeclined, models.InvitationExpired},
	models.InvitationTentative: {models.InvitationAccepted, models.InvitationDeclined},
	models.InvitationDeclined:  {models.InvitationPending},
	models.InvitationExpired:   {models.InvitationPending},
	models.InvitationAccepted:  {},
}

// Allowed payment transitions. paid is terminal; the only way back is the
// explicit reversal path. overdue is computed from the gig date, never stored.
var paymentTransitions = map[models.PaymentStatus][]models.PaymentStatus{
	models.PaymentPending: {models.PaymentPartial, models.PaymentPaid},
	models.PaymentPartial: {models.PaymentPaid},
	models.PaymentPaid:    {},
}

// Responses a musician may submit on their own role.
var musicianResponses = map[models.InvitationStatus]bool{
	models.InvitationAccepted:  true,
	models.InvitationTentative: true,
	models.InvitationDeclined:  true,
}

func invitationAllowed(from, to models.InvitationStatus) bool {
	for _, s := range invitationTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func paymentAllowed(from, to models.PaymentStatus) bool {
	for _, s := range paymentTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// LifecycleService enforces the two-axis status state machine on gig roles.
// Role update and history append happen in one transaction; the transition
// is re-validated against the freshly read status inside that transaction,
// so two racing actors resolve to one winner and one InvalidTransition.
type LifecycleService struct {
	db         *gorm.DB
	authz      *AuthzService
	dispatcher *DispatcherService
	calendar   *BusinessCalendarService
	configSvc  *SystemConfigService
}

func NewLifecycleService(db *gorm.DB, dispatcher *DispatcherService) *LifecycleService {
	return &LifecycleService{
		db:         db,
		authz:      NewAuthzService(db),
		dispatcher: dispatcher,
		calendar:   NewBusinessCalendarService(),
		configSvc:  NewSystemConfigService(db),
	}
}

// TransitionRequest describes one requested status change on a role.
type TransitionRequest struct {
	Axis       models.StatusAxis `json:"axis" binding:"required"`
	NewStatus  string            `json:"new_status" binding:"required"`
	Note       string            `json:"note"`
	PaidAmount *float64          `json:"paid_amount"` // payment axis only
}

// ApplyTransition validates authorization and the transition table, then
// applies the change and appends a history row atomically. On success the
// dispatcher is triggered best-effort; its failures never roll back the
// transition.
func (s *LifecycleService) ApplyTransition(actor Actor, roleID uint, req *TransitionRequest) (*models.GigRole, error) {
	role, gig, err := s.loadRole(roleID)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(actor, gig, role, req); err != nil {
		return nil, err
	}

	var oldStatus string
	err = s.db.Transaction(func(tx *gorm.DB) error {
		oldStatus, err = s.applyLocked(tx, actor, roleID, req, false)
		return err
	})
	if err != nil {
		return nil, err
	}

	updated, _, err := s.loadRole(roleID)
	if err != nil {
		return nil, err
	}

	s.dispatcher.OnTransition(updated, gig, req.Axis, oldStatus, req.NewStatus, actor)
	return updated, nil
}

// ReversePayment is the explicit owner-only correction path out of the
// terminal paid status. It resets payment to pending, clears the paid
// stamp and appends a reversal-flagged history entry.
func (s *LifecycleService) ReversePayment(actor Actor, roleID uint, note string) (*models.GigRole, error) {
	_, gig, err := s.loadRole(roleID)
	if err != nil {
		return nil, err
	}
	if !s.authz.IsGigOwner(actor, gig) {
		return nil, ErrForbidden
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var fresh models.GigRole
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&fresh, roleID).Error; err != nil {
			return err
		}
		if fresh.PaymentState != models.PaymentPaid {
			return fmt.Errorf("%w: payment is %s, only paid can be reversed", ErrInvalidTransition, fresh.PaymentState)
		}

		now := time.Now()
		updates := map[string]interface{}{
			"payment_status":    models.PaymentPending,
			"paid_amount":       nil,
			"paid_at":           nil,
			"status_changed_at": now,
			"status_changed_by": changedBy(actor),
		}
		if err := tx.Model(&fresh).Updates(updates).Error; err != nil {
			return err
		}

		history := models.GigRoleStatusHistory{
			GigRoleID: roleID,
			Axis:      models.AxisPayment,
			OldStatus: string(models.PaymentPaid),
			NewStatus: string(models.PaymentPending),
			ChangedBy: changedBy(actor),
			ChangedAt: now,
			Note:      note,
			Reversal:  true,
		}
		return tx.Create(&history).Error
	})
	if err != nil {
		return nil, err
	}

	updated, _, err := s.loadRole(roleID)
	if err != nil {
		return nil, err
	}
	s.dispatcher.OnTransition(updated, gig, models.AxisPayment, string(models.PaymentPaid), string(models.PaymentPending), actor)
	return updated, nil
}

// EffectivePaymentStatus derives the externally visible payment status: a
// pending/partial fee turns overdue once the grace window of business days
// after the gig date has elapsed. countryCode selects the holiday calendar.
func (s *LifecycleService) EffectivePaymentStatus(role *models.GigRole, gig *models.Gig, countryCode string, now time.Time) models.PaymentStatus {
	if role.PaymentState == models.PaymentPaid {
		return models.PaymentPaid
	}
	if gig == nil || gig.Status == models.GigCancelled {
		return role.PaymentState
	}
	graceDays := s.configSvc.GetInt("payment_overdue_grace_days", 14)
	deadline := s.calendar.AddBusinessDays(gig.Date, graceDays, countryCode)
	if now.After(deadline) {
		return models.PaymentOverdue
	}
	return role.PaymentState
}

// History returns the append-only status trail for a role, newest first.
func (s *LifecycleService) History(actor Actor, roleID uint) ([]models.GigRoleStatusHistory, error) {
	role, gig, err := s.loadRole(roleID)
	if err != nil {
		return nil, err
	}
	if !s.authz.IsGigOwner(actor, gig) && !role.IsAssignedMusician(actor.UserID) {
		return nil, ErrForbidden
	}

	var entries []models.GigRoleStatusHistory
	if err := s.db.Where("gig_role_id = ?", roleID).
		Order("changed_at DESC, id DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// applyLocked performs the locked re-read, table validation, role update and
// history append inside the caller's transaction. It returns the status the
// role actually held at commit time, which is what the history records. The
// invitation service reuses it so token redemption and the role transition
// commit together.
func (s *LifecycleService) applyLocked(tx *gorm.DB, actor Actor, roleID uint, req *TransitionRequest, reversal bool) (string, error) {
	var fresh models.GigRole
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&fresh, roleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status_changed_at": now,
		"status_changed_by": changedBy(actor),
	}

	var oldStatus string
	switch req.Axis {
	case models.AxisInvitation:
		from := fresh.InvitationState
		to := models.InvitationStatus(req.NewStatus)
		if !validInvitationStatus(to) {
			return "", fmt.Errorf("%w: unknown invitation status %q", ErrValidation, req.NewStatus)
		}
		if !invitationAllowed(from, to) {
			return "", fmt.Errorf("%w: invitation %s -> %s", ErrInvalidTransition, from, to)
		}
		oldStatus = string(from)
		updates["invitation_status"] = to

	case models.AxisPayment:
		from := fresh.PaymentState
		to := models.PaymentStatus(req.NewStatus)
		if !validPaymentStatus(to) {
			return "", fmt.Errorf("%w: unknown payment status %q", ErrValidation, req.NewStatus)
		}
		if !paymentAllowed(from, to) {
			return "", fmt.Errorf("%w: payment %s -> %s", ErrInvalidTransition, from, to)
		}
		if req.PaidAmount != nil && *req.PaidAmount < 0 {
			return "", fmt.Errorf("%w: paid amount cannot be negative", ErrValidation)
		}
		oldStatus = string(from)
		updates["payment_status"] = to
		if req.PaidAmount != nil {
			updates["paid_amount"] = *req.PaidAmount
		}
		if to == models.PaymentPaid {
			updates["paid_at"] = now
		}

	default:
		return "", fmt.Errorf("%w: unknown status axis %q", ErrValidation, req.Axis)
	}

	if err := tx.Model(&fresh).Updates(updates).Error; err != nil {
		return "", err
	}

	history := models.GigRoleStatusHistory{
		GigRoleID: roleID,
		Axis:      req.Axis,
		OldStatus: oldStatus,
		NewStatus: req.NewStatus,
		ChangedBy: changedBy(actor),
		ChangedAt: now,
		Note:      req.Note,
		Reversal:  reversal,
	}
	if err := tx.Create(&history).Error; err != nil {
		return "", err
	}
	return oldStatus, nil
}

func (s *LifecycleService) authorize(actor Actor, gig *models.Gig, role *models.GigRole, req *TransitionRequest) error {
	switch req.Axis {
	case models.AxisPayment:
		// Musicians never mutate payment status, not even on their own role.
		if !s.authz.IsGigOwner(actor, gig) {
			return ErrForbidden
		}
	case models.AxisInvitation:
		if actor.IsSystem() {
			// Sweeps only expire outstanding offers.
			if models.InvitationStatus(req.NewStatus) != models.InvitationExpired {
				return ErrForbidden
			}
			return nil
		}
		if s.authz.IsGigOwner(actor, gig) {
			return nil
		}
		if role.IsAssignedMusician(actor.UserID) && musicianResponses[models.InvitationStatus(req.NewStatus)] {
			return nil
		}
		return ErrForbidden
	default:
		return fmt.Errorf("%w: unknown status axis %q", ErrValidation, req.Axis)
	}
	return nil
}

func (s *LifecycleService) loadRole(roleID uint) (*models.GigRole, *models.Gig, error) {
	var role models.GigRole
	if err := s.db.First(&role, roleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}

	var gig models.Gig
	if err := s.db.First(&gig, role.GigID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	return &role, &gig, nil
}

func changedBy(actor Actor) *uint {
	if actor.IsSystem() {
		return nil
	}
	id := actor.UserID
	return &id
}

func validInvitationStatus(s models.InvitationStatus) bool {
	switch s {
	case models.InvitationUnfilled, models.InvitationPending, models.InvitationInvited,
		models.InvitationAccepted, models.InvitationTentative, models.InvitationDeclined,
		models.InvitationExpired:
		return true
	}
	return false
}

func validPaymentStatus(s models.PaymentStatus) bool {
	switch s {
	case models.PaymentPending, models.PaymentPartial, models.PaymentPaid:
		return true
	}
	return false
}
