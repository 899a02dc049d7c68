package services

import (
	"errors"
	"strings"
	"time"

	"github.com/mhalvorsen/gigbook/backend/internal/models"
	"gorm.io/gorm"
)

// ContactService manages a user's private address book of musicians. Each
// contact belongs to exactly one owner; nothing here is shared.
type ContactService struct {
	db *gorm.DB
}

func NewContactService(db *gorm.DB) *ContactService {
	return &ContactService{db: db}
}

type CreateContactRequest struct {
	ContactName       string   `json:"contact_name" binding:"required,max=200"`
	Email             string   `json:"email" binding:"omitempty,email"`
	Phone             string   `json:"phone"`
	PrimaryInstrument string   `json:"primary_instrument"`
	DefaultFee        *float64 `json:"default_fee"`
	DefaultRoles      string   `json:"default_roles"`
	Notes             string   `json:"notes"`
}

func (s *ContactService) Create(actor Actor, req *CreateContactRequest) (*models.MusicianContact, error) {
	contact := models.MusicianContact{
		UserID:            actor.UserID,
		ContactName:       req.ContactName,
		Email:             strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:             req.Phone,
		PrimaryInstrument: req.PrimaryInstrument,
		DefaultFee:        req.DefaultFee,
		DefaultRoles:      req.DefaultRoles,
		Notes:             req.Notes,
	}
	if err := s.db.Create(&contact).Error; err != nil {
		return nil, err
	}
	s.tryLinkUser(&contact)
	return &contact, nil
}

type ContactListRequest struct {
	Search     string `form:"search"`
	Instrument string `form:"instrument"`
}

func (s *ContactService) List(actor Actor, req *ContactListRequest) ([]models.MusicianContact, error) {
	query := s.db.Where("user_id = ?", actor.UserID)
	if req.Search != "" {
		like := "%" + req.Search + "%"
		query = query.Where("contact_name LIKE ? OR email LIKE ?", like, like)
	}
	if req.Instrument != "" {
		query = query.Where("primary_instrument = ?", req.Instrument)
	}

	var contacts []models.MusicianContact
	if err := query.Order("contact_name").Find(&contacts).Error; err != nil {
		return nil, err
	}
	return contacts, nil
}

func (s *ContactService) Get(actor Actor, contactID uint) (*models.MusicianContact, error) {
	var contact models.MusicianContact
	if err := s.db.First(&contact, contactID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if contact.UserID != actor.UserID {
		return nil, ErrForbidden
	}
	return &contact, nil
}

type UpdateContactRequest struct {
	ContactName       *string  `json:"contact_name"`
	Email             *string  `json:"email"`
	Phone             *string  `json:"phone"`
	PrimaryInstrument *string  `json:"primary_instrument"`
	DefaultFee        *float64 `json:"default_fee"`
	DefaultRoles      *string  `json:"default_roles"`
	Notes             *string  `json:"notes"`
}

func (s *ContactService) Update(actor Actor, contactID uint, req *UpdateContactRequest) (*models.MusicianContact, error) {
	contact, err := s.Get(actor, contactID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.ContactName != nil {
		updates["contact_name"] = *req.ContactName
	}
	if req.Email != nil {
		updates["email"] = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.PrimaryInstrument != nil {
		updates["primary_instrument"] = *req.PrimaryInstrument
	}
	if req.DefaultFee != nil {
		updates["default_fee"] = *req.DefaultFee
	}
	if req.DefaultRoles != nil {
		updates["default_roles"] = *req.DefaultRoles
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if len(updates) == 0 {
		return contact, nil
	}

	if err := s.db.Model(contact).Updates(updates).Error; err != nil {
		return nil, err
	}
	if req.Email != nil {
		s.tryLinkUser(contact)
	}
	return contact, nil
}

func (s *ContactService) Delete(actor Actor, contactID uint) error {
	contact, err := s.Get(actor, contactID)
	if err != nil {
		return err
	}

	// Soft delete keeps historical roles that still reference the contact.
	return s.db.Delete(contact).Error
}

// RecordWorked bumps the collaboration counters after a gig with this
// contact completes. Called from the reminder sweep.
func (s *ContactService) RecordWorked(contactID uint, gigDate time.Time) error {
	return s.db.Model(&models.MusicianContact{}).
		Where("id = ?", contactID).
		Updates(map[string]interface{}{
			"times_worked_together": gorm.Expr("times_worked_together + 1"),
			"last_worked_date":      gigDate,
		}).Error
}

// tryLinkUser connects a contact to a registered account with the same
// email, so an invitation can land in the right inbox either way.
func (s *ContactService) tryLinkUser(contact *models.MusicianContact) {
	if contact.Email == "" || contact.LinkedUserID != nil {
		return
	}
	var user models.User
	if err := s.db.Where("email = ?", contact.Email).First(&user).Error; err != nil {
		return
	}
	s.db.Model(contact).Update("linked_user_id", user.ID)
}
