package services

import (
	"errors"
	"testing"
	"time"

	"github.com/mhalvorsen/gigbook/backend/internal/models"
	"gorm.io/gorm"
)

func createTestSetlistItem(t *testing.T, db *gorm.DB, gigID uint, position int, title string) *models.SetlistItem {
	t.Helper()
	item := models.SetlistItem{GigID: gigID, Position: position, Title: title}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("failed to create setlist item: %v", err)
	}
	return &item
}

func TestReadiness_GetCreatesChecklist(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	musician := createTestUser(t, db, "musician@example.com")
	project := createTestProject(t, db, owner.ID)
	gig := createTestGig(t, db, project.ID, time.Now().AddDate(0, 1, 0))
	createTestRole(t, db, gig.ID, func(r *models.GigRole) {
		r.SetMusician(musician.ID, musician.Name)
	})
	createTestSetlistItem(t, db, gig.ID, 1, "Song One")
	createTestSetlistItem(t, db, gig.ID, 2, "Song Two")

	svc := NewReadinessService(db)

	readiness, err := svc.Get(Actor{UserID: musician.ID}, gig.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if readiness.SongsTotal != 2 {
		t.Errorf("songs_total = %d, expected 2", readiness.SongsTotal)
	}
	if readiness.ChartsReady || readiness.GearPacked {
		t.Error("fresh checklist should start unchecked")
	}

	// A second read returns the same row.
	again, err := svc.Get(Actor{UserID: musician.ID}, gig.ID)
	if err != nil {
		t.Fatalf("second Get failed: %v", err)
	}
	if again.ID != readiness.ID {
		t.Errorf("second Get created a new row: %d vs %d", again.ID, readiness.ID)
	}
}

func TestReadiness_UpdateOwnChecklist(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	musician := createTestUser(t, db, "musician@example.com")
	project := createTestProject(t, db, owner.ID)
	gig := createTestGig(t, db, project.ID, time.Now().AddDate(0, 1, 0))
	createTestRole(t, db, gig.ID, func(r *models.GigRole) {
		r.SetMusician(musician.ID, musician.Name)
	})
	createTestSetlistItem(t, db, gig.ID, 1, "Song One")
	createTestSetlistItem(t, db, gig.ID, 2, "Song Two")
	createTestSetlistItem(t, db, gig.ID, 3, "Song Three")

	svc := NewReadinessService(db)
	actor := Actor{UserID: musician.ID}

	updated, err := svc.Update(actor, gig.ID, &ReadinessRequest{
		ChartsReady:  true,
		GearPacked:   true,
		SongsLearned: 2,
		Notes:        "need the horn chart",
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if !updated.ChartsReady || !updated.GearPacked || updated.SoundsReady {
		t.Error("checklist flags not written")
	}
	if updated.SongsLearned != 2 || updated.SongsTotal != 3 {
		t.Errorf("songs = %d/%d, expected 2/3", updated.SongsLearned, updated.SongsTotal)
	}

	// Cannot claim more songs than the setlist holds.
	_, err = svc.Update(actor, gig.ID, &ReadinessRequest{SongsLearned: 9})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("oversized songs_learned: expected ErrValidation, got %v", err)
	}
}

func TestReadiness_AccessControl(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	musician := createTestUser(t, db, "musician@example.com")
	stranger := createTestUser(t, db, "stranger@example.com")
	project := createTestProject(t, db, owner.ID)
	gig := createTestGig(t, db, project.ID, time.Now().AddDate(0, 1, 0))
	createTestRole(t, db, gig.ID, func(r *models.GigRole) {
		r.SetMusician(musician.ID, musician.Name)
	})

	svc := NewReadinessService(db)

	// Only musicians on the gig keep checklists, the owner included.
	if _, err := svc.Get(Actor{UserID: stranger.ID}, gig.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("stranger Get: expected ErrForbidden, got %v", err)
	}
	if _, err := svc.Get(Actor{UserID: owner.ID}, gig.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("owner Get: expected ErrForbidden, got %v", err)
	}
	if _, err := svc.Get(System, gig.ID); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("system Get: expected ErrUnauthenticated, got %v", err)
	}
}

func TestReadiness_OwnerOverview(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	first := createTestUser(t, db, "first@example.com")
	second := createTestUser(t, db, "second@example.com")
	project := createTestProject(t, db, owner.ID)
	gig := createTestGig(t, db, project.ID, time.Now().AddDate(0, 1, 0))
	createTestRole(t, db, gig.ID, func(r *models.GigRole) {
		r.SetMusician(first.ID, first.Name)
	})
	createTestRole(t, db, gig.ID, func(r *models.GigRole) {
		r.RoleName = "Drums"
		r.SetMusician(second.ID, second.Name)
	})

	svc := NewReadinessService(db)
	if _, err := svc.Get(Actor{UserID: first.ID}, gig.ID); err != nil {
		t.Fatalf("first musician Get failed: %v", err)
	}
	if _, err := svc.Get(Actor{UserID: second.ID}, gig.ID); err != nil {
		t.Fatalf("second musician Get failed: %v", err)
	}

	rows, err := svc.ListForGig(Actor{UserID: owner.ID}, gig.ID)
	if err != nil {
		t.Fatalf("ListForGig failed: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("overview rows = %d, expected 2", len(rows))
	}

	if _, err := svc.ListForGig(Actor{UserID: first.ID}, gig.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("musician overview: expected ErrForbidden, got %v", err)
	}
}
