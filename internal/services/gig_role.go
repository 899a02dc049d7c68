package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/mhalvorsen/gigbook/backend/internal/models"
	"gorm.io/gorm"
)

// GigRoleService manages the slots on a gig. Status changes go through the
// lifecycle service; this service handles the rest of the row.
type GigRoleService struct {
	db        *gorm.DB
	authz     *AuthzService
	lifecycle *LifecycleService
}

func NewGigRoleService(db *gorm.DB, lifecycle *LifecycleService) *GigRoleService {
	return &GigRoleService{
		db:        db,
		authz:     NewAuthzService(db),
		lifecycle: lifecycle,
	}
}

// RoleView is a role with its computed payment status. The stored value
// never holds overdue; the view does.
type RoleView struct {
	models.GigRole
	EffectivePaymentStatus models.PaymentStatus `json:"effective_payment_status"`
}

type CreateGigRoleRequest struct {
	RoleName   string   `json:"role_name" binding:"required,max=100"`
	MusicianID *uint    `json:"musician_id"`
	ContactID  *uint    `json:"contact_id"`
	AgreedFee  *float64 `json:"agreed_fee"`
	Currency   string   `json:"currency"`
	Notes      string   `json:"notes"`
}

func (s *GigRoleService) Create(actor Actor, gigID uint, req *CreateGigRoleRequest) (*models.GigRole, error) {
	gig, err := s.loadGig(gigID)
	if err != nil {
		return nil, err
	}
	if !s.authz.IsGigOwner(actor, gig) {
		return nil, ErrForbidden
	}

	if req.MusicianID != nil && req.ContactID != nil {
		return nil, fmt.Errorf("%w: role cannot reference both a musician and a contact", ErrValidation)
	}
	if req.AgreedFee != nil && *req.AgreedFee < 0 {
		return nil, fmt.Errorf("%w: fee cannot be negative", ErrValidation)
	}

	role := models.GigRole{
		GigID:           gigID,
		RoleName:        req.RoleName,
		AgreedFee:       req.AgreedFee,
		Notes:           req.Notes,
		InvitationState: models.InvitationUnfilled,
		PaymentState:    models.PaymentPending,
	}
	if req.Currency != "" {
		role.Currency = req.Currency
	}

	if req.MusicianID != nil {
		name, err := s.musicianName(*req.MusicianID)
		if err != nil {
			return nil, err
		}
		role.SetMusician(*req.MusicianID, name)
		role.InvitationState = models.InvitationPending
	} else if req.ContactID != nil {
		name, err := s.contactName(actor, *req.ContactID)
		if err != nil {
			return nil, err
		}
		role.SetContact(*req.ContactID, name)
		role.InvitationState = models.InvitationPending
	}

	if err := s.db.Create(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

// ListByGig returns the roles on a gig with computed payment status. Any
// gig participant may read the list.
func (s *GigRoleService) ListByGig(actor Actor, gigID uint) ([]RoleView, error) {
	gig, err := s.loadGig(gigID)
	if err != nil {
		return nil, err
	}
	if !s.authz.CanReadGig(actor, gig) {
		return nil, ErrForbidden
	}

	var roles []models.GigRole
	if err := s.db.Where("gig_id = ?", gigID).Order("id").Find(&roles).Error; err != nil {
		return nil, err
	}
	return s.toViews(roles, gig), nil
}

func (s *GigRoleService) Get(actor Actor, roleID uint) (*RoleView, error) {
	role, gig, err := s.lifecycle.loadRole(roleID)
	if err != nil {
		return nil, err
	}
	if !s.authz.CanReadGig(actor, gig) {
		return nil, ErrForbidden
	}
	views := s.toViews([]models.GigRole{*role}, gig)
	return &views[0], nil
}

// MyRoles returns the actor's upcoming assignments across all projects.
func (s *GigRoleService) MyRoles(actor Actor) ([]RoleView, error) {
	var roles []models.GigRole
	if err := s.db.Preload("Gig").Preload("Gig.Project").
		Joins("JOIN gigs ON gigs.id = gig_roles.gig_id AND gigs.deleted_at IS NULL").
		Where("gig_roles.musician_id = ? AND gigs.date >= ?", actor.UserID, time.Now().AddDate(0, 0, -1)).
		Order("gigs.date ASC").
		Find(&roles).Error; err != nil {
		return nil, err
	}

	views := make([]RoleView, 0, len(roles))
	for i := range roles {
		views = append(views, s.toViews([]models.GigRole{roles[i]}, roles[i].Gig)...)
	}
	return views, nil
}

type UpdateGigRoleRequest struct {
	RoleName    *string  `json:"role_name"`
	MusicianID  *uint    `json:"musician_id"`
	ContactID   *uint    `json:"contact_id"`
	ClearAssign bool     `json:"clear_assignee"`
	AgreedFee   *float64 `json:"agreed_fee"`
	Currency    *string  `json:"currency"`
	Notes       *string  `json:"notes"`
	PlayerNotes *string  `json:"player_notes"`
}

// Update applies field changes under the changeset rules: the owner may
// change anything, an assigned musician only their own notes.
func (s *GigRoleService) Update(actor Actor, roleID uint, req *UpdateGigRoleRequest) (*models.GigRole, error) {
	role, gig, err := s.lifecycle.loadRole(roleID)
	if err != nil {
		return nil, err
	}

	cs := RoleChangeset{
		PlayerNotes: req.PlayerNotes != nil,
		Fee:         req.AgreedFee != nil || req.Currency != nil,
		Assignment:  req.MusicianID != nil || req.ContactID != nil || req.ClearAssign,
		Details:     req.RoleName != nil || req.Notes != nil,
	}
	if !s.authz.CanUpdateGigRole(actor, gig, role, cs) {
		return nil, ErrForbidden
	}

	if req.MusicianID != nil && req.ContactID != nil {
		return nil, fmt.Errorf("%w: role cannot reference both a musician and a contact", ErrValidation)
	}
	if req.AgreedFee != nil && *req.AgreedFee < 0 {
		return nil, fmt.Errorf("%w: fee cannot be negative", ErrValidation)
	}
	if cs.Assignment && role.InvitationState == models.InvitationAccepted {
		return nil, fmt.Errorf("%w: cannot reassign an accepted role", ErrInvalidTransition)
	}

	updates := map[string]interface{}{}
	if req.RoleName != nil {
		updates["role_name"] = *req.RoleName
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if req.PlayerNotes != nil {
		updates["player_notes"] = *req.PlayerNotes
	}
	if req.AgreedFee != nil {
		updates["agreed_fee"] = *req.AgreedFee
	}
	if req.Currency != nil {
		updates["currency"] = *req.Currency
	}

	switch {
	case req.MusicianID != nil:
		name, err := s.musicianName(*req.MusicianID)
		if err != nil {
			return nil, err
		}
		updates["musician_id"] = *req.MusicianID
		updates["contact_id"] = nil
		updates["musician_name"] = name
	case req.ContactID != nil:
		name, err := s.contactName(actor, *req.ContactID)
		if err != nil {
			return nil, err
		}
		updates["contact_id"] = *req.ContactID
		updates["musician_id"] = nil
		updates["musician_name"] = name
	case req.ClearAssign:
		updates["musician_id"] = nil
		updates["contact_id"] = nil
		updates["musician_name"] = ""
	}

	if len(updates) == 0 {
		return role, nil
	}
	if err := s.db.Model(role).Updates(updates).Error; err != nil {
		return nil, err
	}

	updated, _, err := s.lifecycle.loadRole(roleID)
	return updated, err
}

func (s *GigRoleService) Delete(actor Actor, roleID uint) error {
	role, gig, err := s.lifecycle.loadRole(roleID)
	if err != nil {
		return err
	}
	if !s.authz.IsGigOwner(actor, gig) {
		return ErrForbidden
	}
	return s.db.Delete(role).Error
}

func (s *GigRoleService) toViews(roles []models.GigRole, gig *models.Gig) []RoleView {
	country := s.ownerCountry(gig)
	now := time.Now()
	views := make([]RoleView, 0, len(roles))
	for i := range roles {
		views = append(views, RoleView{
			GigRole:                roles[i],
			EffectivePaymentStatus: s.lifecycle.EffectivePaymentStatus(&roles[i], gig, country, now),
		})
	}
	return views
}

// ownerCountry resolves the holiday calendar for grace computation from the
// project owner's profile.
func (s *GigRoleService) ownerCountry(gig *models.Gig) string {
	if gig == nil {
		return "US"
	}
	var project models.Project
	if err := s.db.First(&project, gig.ProjectID).Error; err != nil {
		return "US"
	}
	var owner models.User
	if err := s.db.First(&owner, project.OwnerID).Error; err != nil {
		return "US"
	}
	if owner.DefaultCountryCode == "" {
		return "US"
	}
	return owner.DefaultCountryCode
}

func (s *GigRoleService) loadGig(gigID uint) (*models.Gig, error) {
	var gig models.Gig
	if err := s.db.First(&gig, gigID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &gig, nil
}

func (s *GigRoleService) musicianName(userID uint) (string, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("%w: musician %d", ErrNotFound, userID)
		}
		return "", err
	}
	return user.Name, nil
}

// contactName verifies the contact belongs to the acting owner before use.
func (s *GigRoleService) contactName(actor Actor, contactID uint) (string, error) {
	var contact models.MusicianContact
	if err := s.db.First(&contact, contactID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("%w: contact %d", ErrNotFound, contactID)
		}
		return "", err
	}
	if contact.UserID != actor.UserID {
		return "", ErrForbidden
	}
	return contact.ContactName, nil
}
