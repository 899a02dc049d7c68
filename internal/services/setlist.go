package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/mhalvorsen/gigbook/backend/internal/models"
	"gorm.io/gorm"
)

// SetlistService manages the running order of songs on a gig. Musicians on
// the gig can read the setlist; only the owner edits it.
type SetlistService struct {
	db    *gorm.DB
	authz *AuthzService
}

func NewSetlistService(db *gorm.DB) *SetlistService {
	return &SetlistService{db: db, authz: NewAuthzService(db)}
}

type SetlistItemRequest struct {
	Title string `json:"title" binding:"required,max=200"`
	Key   string `json:"key" binding:"max=10"`
	BPM   *int   `json:"bpm"`
	Notes string `json:"notes"`
}

func (s *SetlistService) List(actor Actor, gigID uint) ([]models.SetlistItem, error) {
	gig, err := s.loadGig(gigID)
	if err != nil {
		return nil, err
	}
	if !s.authz.CanReadGig(actor, gig) {
		return nil, ErrForbidden
	}

	var items []models.SetlistItem
	if err := s.db.Where("gig_id = ?", gigID).Order("position").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *SetlistService) Add(actor Actor, gigID uint, req *SetlistItemRequest) (*models.SetlistItem, error) {
	gig, err := s.loadGig(gigID)
	if err != nil {
		return nil, err
	}
	if !s.authz.IsGigOwner(actor, gig) {
		return nil, ErrForbidden
	}
	if req.BPM != nil && (*req.BPM < 1 || *req.BPM > 400) {
		return nil, fmt.Errorf("%w: bpm out of range", ErrValidation)
	}

	var maxPos int
	s.db.Model(&models.SetlistItem{}).Where("gig_id = ?", gigID).
		Select("COALESCE(MAX(position), 0)").Scan(&maxPos)

	item := models.SetlistItem{
		GigID:    gigID,
		Position: maxPos + 1,
		Title:    req.Title,
		Key:      req.Key,
		BPM:      req.BPM,
		Notes:    req.Notes,
	}
	if err := s.db.Create(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *SetlistService) Update(actor Actor, itemID uint, req *SetlistItemRequest) (*models.SetlistItem, error) {
	item, gig, err := s.loadItem(itemID)
	if err != nil {
		return nil, err
	}
	if !s.authz.IsGigOwner(actor, gig) {
		return nil, ErrForbidden
	}
	if req.BPM != nil && (*req.BPM < 1 || *req.BPM > 400) {
		return nil, fmt.Errorf("%w: bpm out of range", ErrValidation)
	}

	updates := map[string]interface{}{
		"title": req.Title,
		"key":   req.Key,
		"bpm":   req.BPM,
		"notes": req.Notes,
	}
	if err := s.db.Model(item).Updates(updates).Error; err != nil {
		return nil, err
	}
	return item, nil
}

func (s *SetlistService) Delete(actor Actor, itemID uint) error {
	item, gig, err := s.loadItem(itemID)
	if err != nil {
		return err
	}
	if !s.authz.IsGigOwner(actor, gig) {
		return ErrForbidden
	}
	return s.db.Delete(item).Error
}

// Reorder replaces the positions of all items on a gig with the given id
// order. Every current item must appear exactly once.
func (s *SetlistService) Reorder(actor Actor, gigID uint, itemIDs []uint) error {
	gig, err := s.loadGig(gigID)
	if err != nil {
		return err
	}
	if !s.authz.IsGigOwner(actor, gig) {
		return ErrForbidden
	}

	var count int64
	s.db.Model(&models.SetlistItem{}).Where("gig_id = ?", gigID).Count(&count)
	if int64(len(itemIDs)) != count {
		return fmt.Errorf("%w: order must list all %d items", ErrValidation, count)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		for i, id := range itemIDs {
			result := tx.Model(&models.SetlistItem{}).
				Where("id = ? AND gig_id = ?", id, gigID).
				Update("position", i+1)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return fmt.Errorf("%w: item %d not on gig", ErrValidation, id)
			}
		}
		return nil
	})
}

type LearningStatusRequest struct {
	Learned    bool   `json:"learned"`
	Difficulty string `json:"difficulty"` // easy, medium, hard
	Priority   string `json:"priority"`   // low, medium, high
	Practiced  bool   `json:"practiced"`  // bumps the practice counter
	Notes      string `json:"notes"`
}

// SetLearningStatus upserts the actor's private learning state for one
// song. Only musicians on the gig keep learning state; the owner edits the
// setlist itself instead.
func (s *SetlistService) SetLearningStatus(actor Actor, itemID uint, req *LearningStatusRequest) (*models.SetlistLearningStatus, error) {
	if actor.IsSystem() {
		return nil, ErrUnauthenticated
	}
	item, _, err := s.loadItem(itemID)
	if err != nil {
		return nil, err
	}
	if !s.authz.IsGigMusician(actor, item.GigID) {
		return nil, ErrForbidden
	}
	if !validLearningLevel(req.Difficulty, "easy", "medium", "hard") {
		return nil, fmt.Errorf("%w: unknown difficulty %q", ErrValidation, req.Difficulty)
	}
	if !validLearningLevel(req.Priority, "low", "medium", "high") {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrValidation, req.Priority)
	}

	var status models.SetlistLearningStatus
	err = s.db.Where("setlist_item_id = ? AND musician_id = ?", itemID, actor.UserID).First(&status).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		status = models.SetlistLearningStatus{SetlistItemID: itemID, MusicianID: actor.UserID}
	}

	status.Learned = req.Learned
	status.Difficulty = req.Difficulty
	status.Priority = req.Priority
	status.Notes = req.Notes
	if req.Practiced {
		status.PracticeCount++
		now := time.Now()
		status.LastPracticedAt = &now
	}
	if err := s.db.Save(&status).Error; err != nil {
		return nil, err
	}
	return &status, nil
}

// ListLearningStatuses returns the actor's learning state for every song on
// the gig, keyed by setlist item.
func (s *SetlistService) ListLearningStatuses(actor Actor, gigID uint) ([]models.SetlistLearningStatus, error) {
	if actor.IsSystem() {
		return nil, ErrUnauthenticated
	}
	if _, err := s.loadGig(gigID); err != nil {
		return nil, err
	}
	if !s.authz.IsGigMusician(actor, gigID) {
		return nil, ErrForbidden
	}

	var statuses []models.SetlistLearningStatus
	err := s.db.
		Joins("JOIN setlist_items ON setlist_items.id = setlist_learning_status.setlist_item_id").
		Where("setlist_items.gig_id = ? AND setlist_learning_status.musician_id = ?", gigID, actor.UserID).
		Order("setlist_items.position").
		Find(&statuses).Error
	if err != nil {
		return nil, err
	}
	return statuses, nil
}

func validLearningLevel(value string, allowed ...string) bool {
	if value == "" {
		return true
	}
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

func (s *SetlistService) loadGig(gigID uint) (*models.Gig, error) {
	var gig models.Gig
	if err := s.db.First(&gig, gigID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &gig, nil
}

func (s *SetlistService) loadItem(itemID uint) (*models.SetlistItem, *models.Gig, error) {
	var item models.SetlistItem
	if err := s.db.First(&item, itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	gig, err := s.loadGig(item.GigID)
	if err != nil {
		return nil, nil, err
	}
	return &item, gig, nil
}
