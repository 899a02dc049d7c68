package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/mhalvorsen/gigbook/backend/internal/models"
	"gorm.io/gorm"
)

// GigService manages gigs. Writes are owner-only; reads extend to musicians
// holding a role on the gig.
type GigService struct {
	db    *gorm.DB
	authz *AuthzService
}

func NewGigService(db *gorm.DB) *GigService {
	return &GigService{db: db, authz: NewAuthzService(db)}
}

type CreateGigRequest struct {
	ProjectID       uint   `json:"project_id" binding:"required"`
	Title           string `json:"title" binding:"required,max=200"`
	Date            string `json:"date" binding:"required"` // 2026-09-18
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	LocationName    string `json:"location_name"`
	LocationAddress string `json:"location_address"`
	Schedule        string `json:"schedule"`
	Notes           string `json:"notes"`
}

func (s *GigService) Create(actor Actor, req *CreateGigRequest) (*models.Gig, error) {
	var project models.Project
	if err := s.db.First(&project, req.ProjectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !s.authz.CanInsertGig(actor, &project) {
		return nil, ErrForbidden
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date %q", ErrValidation, req.Date)
	}

	gig := models.Gig{
		ProjectID:       req.ProjectID,
		Title:           req.Title,
		Date:            date,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		LocationName:    req.LocationName,
		LocationAddress: req.LocationAddress,
		Schedule:        req.Schedule,
		Notes:           req.Notes,
		Status:          models.GigDraft,
	}
	if err := s.db.Create(&gig).Error; err != nil {
		return nil, err
	}
	return &gig, nil
}

type GigListRequest struct {
	ProjectID *uint  `form:"project_id"`
	From      string `form:"from"`
	To        string `form:"to"`
	Status    string `form:"status"`
	Page      int    `form:"page" binding:"min=1"`
	PageSize  int    `form:"page_size" binding:"min=1,max=100"`
}

type GigListResponse struct {
	Total    int64        `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
	Items    []models.Gig `json:"items"`
}

// List returns gigs visible to the actor: gigs in projects they own and
// gigs where they hold a role.
func (s *GigService) List(actor Actor, req *GigListRequest) (*GigListResponse, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	query := s.db.Model(&models.Gig{}).
		Distinct("gigs.*").
		Joins("JOIN projects ON projects.id = gigs.project_id AND projects.deleted_at IS NULL").
		Joins("LEFT JOIN gig_roles ON gig_roles.gig_id = gigs.id AND gig_roles.deleted_at IS NULL").
		Where("projects.owner_id = ? OR gig_roles.musician_id = ?", actor.UserID, actor.UserID)

	if req.ProjectID != nil {
		query = query.Where("gigs.project_id = ?", *req.ProjectID)
	}
	if req.From != "" {
		query = query.Where("gigs.date >= ?", req.From)
	}
	if req.To != "" {
		query = query.Where("gigs.date <= ?", req.To)
	}
	if req.Status != "" {
		query = query.Where("gigs.status = ?", req.Status)
	}

	var total int64
	query.Count(&total)

	var gigs []models.Gig
	offset := (req.Page - 1) * req.PageSize
	if err := query.Offset(offset).Limit(req.PageSize).
		Order("gigs.date ASC").Find(&gigs).Error; err != nil {
		return nil, err
	}

	return &GigListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    gigs,
	}, nil
}

func (s *GigService) Get(actor Actor, gigID uint) (*models.Gig, error) {
	var gig models.Gig
	if err := s.db.Preload("Project").First(&gig, gigID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !s.authz.CanReadGig(actor, &gig) {
		return nil, ErrForbidden
	}
	return &gig, nil
}

type UpdateGigRequest struct {
	Title           *string `json:"title"`
	Date            *string `json:"date"`
	StartTime       *string `json:"start_time"`
	EndTime         *string `json:"end_time"`
	LocationName    *string `json:"location_name"`
	LocationAddress *string `json:"location_address"`
	Schedule        *string `json:"schedule"`
	Notes           *string `json:"notes"`
	Status          *string `json:"status"`
}

func (s *GigService) Update(actor Actor, gigID uint, req *UpdateGigRequest) (*models.Gig, error) {
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

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Date != nil {
		date, err := time.Parse("2006-01-02", *req.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid date %q", ErrValidation, *req.Date)
		}
		updates["date"] = date
	}
	if req.StartTime != nil {
		updates["start_time"] = *req.StartTime
	}
	if req.EndTime != nil {
		updates["end_time"] = *req.EndTime
	}
	if req.LocationName != nil {
		updates["location_name"] = *req.LocationName
	}
	if req.LocationAddress != nil {
		updates["location_address"] = *req.LocationAddress
	}
	if req.Schedule != nil {
		updates["schedule"] = *req.Schedule
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if req.Status != nil {
		status := models.GigStatus(*req.Status)
		switch status {
		case models.GigDraft, models.GigConfirmed, models.GigCancelled:
			updates["status"] = status
		default:
			return nil, fmt.Errorf("%w: invalid gig status %q", ErrValidation, *req.Status)
		}
	}
	if len(updates) == 0 {
		return &gig, nil
	}

	if err := s.db.Model(&gig).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &gig, nil
}

// Delete soft-deletes a gig and its roles and setlist.
func (s *GigService) Delete(actor Actor, gigID uint) error {
	var gig models.Gig
	if err := s.db.First(&gig, gigID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if !s.authz.IsGigOwner(actor, &gig) {
		return ErrForbidden
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("gig_id = ?", gigID).Delete(&models.GigRole{}).Error; err != nil {
			return err
		}
		if err := tx.Where("gig_id = ?", gigID).Delete(&models.SetlistItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&gig).Error
	})
}
