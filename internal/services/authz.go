package services

import (
	"errors"

	"github.com/mhalvorsen/gigbook/backend/internal/models"
	"gorm.io/gorm"
)

// AuthzService answers capability questions for an actor against a project,
// gig or gig role. Every check re-reads current facts from storage: role
// assignment can change between requests, so results are never cached.
type AuthzService struct {
	db *gorm.DB
}

func NewAuthzService(db *gorm.DB) *AuthzService {
	return &AuthzService{db: db}
}

// IsProjectOwner reports whether the actor owns the project.
func (s *AuthzService) IsProjectOwner(actor Actor, project *models.Project) bool {
	return project != nil && actor.UserID != 0 && project.OwnerID == actor.UserID
}

// IsProjectParticipant reports whether the actor owns the project or holds
// at least one role under a gig in it.
func (s *AuthzService) IsProjectParticipant(actor Actor, project *models.Project) bool {
	if s.IsProjectOwner(actor, project) {
		return true
	}
	if actor.UserID == 0 || project == nil {
		return false
	}

	var count int64
	s.db.Model(&models.GigRole{}).
		Joins("JOIN gigs ON gigs.id = gig_roles.gig_id").
		Where("gigs.project_id = ? AND gig_roles.musician_id = ?", project.ID, actor.UserID).
		Count(&count)
	return count > 0
}

// IsGigOwner reports whether the actor owns the gig's parent project.
func (s *AuthzService) IsGigOwner(actor Actor, gig *models.Gig) bool {
	if gig == nil || actor.UserID == 0 {
		return false
	}
	project, err := s.loadProject(gig.ProjectID)
	if err != nil {
		return false
	}
	return s.IsProjectOwner(actor, project)
}

// IsGigMusician reports whether the actor is assigned to any role under the gig.
func (s *AuthzService) IsGigMusician(actor Actor, gigID uint) bool {
	if actor.UserID == 0 {
		return false
	}
	var count int64
	s.db.Model(&models.GigRole{}).
		Where("gig_id = ? AND musician_id = ?", gigID, actor.UserID).
		Count(&count)
	return count > 0
}

// CanReadGig reports whether the actor may see the gig: owners and assigned
// musicians only. Participation in the project through other gigs does not
// grant access by itself.
func (s *AuthzService) CanReadGig(actor Actor, gig *models.Gig) bool {
	return s.IsGigOwner(actor, gig) || s.IsGigMusician(actor, gig.ID)
}

// CanInsertGig reports whether the actor may create gigs under the project.
// Only owners create gigs; participants cannot.
func (s *AuthzService) CanInsertGig(actor Actor, project *models.Project) bool {
	return s.IsProjectOwner(actor, project)
}

// RoleChangeset names the fields a gig role update wants to touch, so
// CanUpdateGigRole can distinguish musician self-service edits from owner
// edits.
type RoleChangeset struct {
	PlayerNotes    bool // Musician-editable
	StatusResponse bool // Musician-editable on their own role (accept/tentative/decline)
	Fee            bool
	Payment        bool
	Assignment     bool
	Details        bool // role_name, owner notes
}

// MusicianEditable reports whether the changeset touches only fields a
// musician may edit on their own role.
func (cs RoleChangeset) MusicianEditable() bool {
	return !cs.Fee && !cs.Payment && !cs.Assignment && !cs.Details
}

// CanUpdateGigRole reports whether the actor may apply the given changeset
// to a role. Gig owners may change anything; the assigned musician is
// limited to player notes and their own status responses, never fee,
// payment or reassignment.
func (s *AuthzService) CanUpdateGigRole(actor Actor, gig *models.Gig, role *models.GigRole, cs RoleChangeset) bool {
	if s.IsGigOwner(actor, gig) {
		return true
	}
	return role.IsAssignedMusician(actor.UserID) && cs.MusicianEditable()
}

func (s *AuthzService) loadProject(id uint) (*models.Project, error) {
	var project models.Project
	if err := s.db.First(&project, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &project, nil
}
