package services

import (
	"errors"
	"fmt"

	"github.com/mhalvorsen/gigbook/backend/internal/models"
	"gorm.io/gorm"
)

// ProjectService manages the bands/ensembles a user books gigs under. Every
// user owns a personal project created at registration; it cannot be deleted.
type ProjectService struct {
	db    *gorm.DB
	authz *AuthzService
}

func NewProjectService(db *gorm.DB) *ProjectService {
	return &ProjectService{db: db, authz: NewAuthzService(db)}
}

type CreateProjectRequest struct {
	Name string `json:"name" binding:"required,max=200"`
}

func (s *ProjectService) Create(actor Actor, req *CreateProjectRequest) (*models.Project, error) {
	project := models.Project{
		OwnerID: actor.UserID,
		Name:    req.Name,
	}
	if err := s.db.Create(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// List returns projects the actor owns plus projects they play in.
func (s *ProjectService) List(actor Actor) ([]models.Project, error) {
	var projects []models.Project
	err := s.db.
		Distinct("projects.*").
		Joins("LEFT JOIN gigs ON gigs.project_id = projects.id AND gigs.deleted_at IS NULL").
		Joins("LEFT JOIN gig_roles ON gig_roles.gig_id = gigs.id AND gig_roles.deleted_at IS NULL").
		Where("projects.owner_id = ? OR gig_roles.musician_id = ?", actor.UserID, actor.UserID).
		Order("projects.name").
		Find(&projects).Error
	if err != nil {
		return nil, err
	}
	return projects, nil
}

func (s *ProjectService) Get(actor Actor, projectID uint) (*models.Project, error) {
	var project models.Project
	if err := s.db.First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if project.OwnerID != actor.UserID && !s.authz.IsProjectParticipant(actor, &project) {
		return nil, ErrForbidden
	}
	return &project, nil
}

type UpdateProjectRequest struct {
	Name *string `json:"name"`
}

func (s *ProjectService) Update(actor Actor, projectID uint, req *UpdateProjectRequest) (*models.Project, error) {
	var project models.Project
	if err := s.db.First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if project.OwnerID != actor.UserID {
		return nil, ErrForbidden
	}

	if req.Name != nil {
		if err := s.db.Model(&project).Update("name", *req.Name).Error; err != nil {
			return nil, err
		}
	}
	return &project, nil
}

func (s *ProjectService) Delete(actor Actor, projectID uint) error {
	var project models.Project
	if err := s.db.First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if project.OwnerID != actor.UserID {
		return ErrForbidden
	}
	if project.Personal {
		return fmt.Errorf("%w: personal project cannot be deleted", ErrValidation)
	}

	var gigCount int64
	s.db.Model(&models.Gig{}).Where("project_id = ?", projectID).Count(&gigCount)
	if gigCount > 0 {
		return fmt.Errorf("%w: project has %d gigs", ErrValidation, gigCount)
	}

	return s.db.Delete(&project).Error
}
