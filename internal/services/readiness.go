package services

import (
	"errors"
	"fmt"

	"github.com/mhalvorsen/gigbook/backend/internal/models"
	"gorm.io/gorm"
)

// ReadinessService tracks a musician's prep checklist per gig. Each
// musician owns their row; the gig owner gets a read-only overview.
type ReadinessService struct {
	db    *gorm.DB
	authz *AuthzService
}

func NewReadinessService(db *gorm.DB) *ReadinessService {
	return &ReadinessService{db: db, authz: NewAuthzService(db)}
}

type ReadinessRequest struct {
	ChartsReady   bool   `json:"charts_ready"`
	SoundsReady   bool   `json:"sounds_ready"`
	GearPacked    bool   `json:"gear_packed"`
	TravelChecked bool   `json:"travel_checked"`
	SongsLearned  int    `json:"songs_learned"`
	Notes         string `json:"notes"`
}

// Get returns the actor's own checklist for the gig, creating a fresh row
// seeded with the current setlist size on first access.
func (s *ReadinessService) Get(actor Actor, gigID uint) (*models.GigReadiness, error) {
	if actor.IsSystem() {
		return nil, ErrUnauthenticated
	}
	if err := s.requireMusician(actor, gigID); err != nil {
		return nil, err
	}

	var readiness models.GigReadiness
	err := s.db.Where("gig_id = ? AND musician_id = ?", gigID, actor.UserID).First(&readiness).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		readiness = models.GigReadiness{
			GigID:      gigID,
			MusicianID: actor.UserID,
			SongsTotal: s.setlistSize(gigID),
		}
		if err := s.db.Create(&readiness).Error; err != nil {
			return nil, err
		}
		return &readiness, nil
	}
	if err != nil {
		return nil, err
	}
	return &readiness, nil
}

// Update writes the actor's own checklist. SongsTotal is always refreshed
// from the setlist so the counter cannot drift after the owner edits songs.
func (s *ReadinessService) Update(actor Actor, gigID uint, req *ReadinessRequest) (*models.GigReadiness, error) {
	readiness, err := s.Get(actor, gigID)
	if err != nil {
		return nil, err
	}

	total := s.setlistSize(gigID)
	if req.SongsLearned < 0 || req.SongsLearned > total {
		return nil, fmt.Errorf("%w: songs_learned must be between 0 and %d", ErrValidation, total)
	}

	updates := map[string]interface{}{
		"charts_ready":   req.ChartsReady,
		"sounds_ready":   req.SoundsReady,
		"gear_packed":    req.GearPacked,
		"travel_checked": req.TravelChecked,
		"songs_learned":  req.SongsLearned,
		"songs_total":    total,
		"notes":          req.Notes,
	}
	if err := s.db.Model(readiness).Updates(updates).Error; err != nil {
		return nil, err
	}
	return readiness, nil
}

// ListForGig is the owner's overview of every musician's checklist.
func (s *ReadinessService) ListForGig(actor Actor, gigID uint) ([]models.GigReadiness, error) {
	gig, err := s.loadGig(gigID)
	if err != nil {
		return nil, err
	}
	if !s.authz.IsGigOwner(actor, gig) {
		return nil, ErrForbidden
	}

	var rows []models.GigReadiness
	if err := s.db.Where("gig_id = ?", gigID).Order("musician_id").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *ReadinessService) requireMusician(actor Actor, gigID uint) error {
	if _, err := s.loadGig(gigID); err != nil {
		return err
	}
	if !s.authz.IsGigMusician(actor, gigID) {
		return ErrForbidden
	}
	return nil
}

func (s *ReadinessService) setlistSize(gigID uint) int {
	var count int64
	s.db.Model(&models.SetlistItem{}).Where("gig_id = ?", gigID).Count(&count)
	return int(count)
}

func (s *ReadinessService) loadGig(gigID uint) (*models.Gig, error) {
	var gig models.Gig
	if err := s.db.First(&gig, gigID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &gig, nil
}
