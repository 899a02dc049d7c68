package services

import (
	"testing"
	"time"

	"github.com/mhalvorsen/gigbook/backend/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestDB opens an in-memory sqlite database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// Every connection to :memory: is its own database, so keep one.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.Project{},
		&models.Gig{},
		&models.GigRole{},
		&models.GigRoleStatusHistory{},
		&models.GigInvitation{},
		&models.MusicianContact{},
		&models.Notification{},
		&models.SetlistItem{},
		&models.SetlistLearningStatus{},
		&models.GigReadiness{},
		&models.ActivityLog{},
		&models.SystemConfig{},
		&models.SchedulerLock{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	InitActivityLogger(db)
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{
		Email:              email,
		Name:               email,
		DefaultCountryCode: "US",
		IsActive:           true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", email, err)
	}
	return user
}

func createTestProject(t *testing.T, db *gorm.DB, ownerID uint) *models.Project {
	t.Helper()
	project := &models.Project{OwnerID: ownerID, Name: "Test Band"}
	if err := db.Create(project).Error; err != nil {
		t.Fatalf("failed to create project: %v", err)
	}
	return project
}

func createTestGig(t *testing.T, db *gorm.DB, projectID uint, date time.Time) *models.Gig {
	t.Helper()
	gig := &models.Gig{
		ProjectID: projectID,
		Title:     "Test Gig",
		Date:      date,
		Status:    models.GigConfirmed,
	}
	if err := db.Create(gig).Error; err != nil {
		t.Fatalf("failed to create gig: %v", err)
	}
	return gig
}

func createTestRole(t *testing.T, db *gorm.DB, gigID uint, mutate func(*models.GigRole)) *models.GigRole {
	t.Helper()
	role := &models.GigRole{
		GigID:           gigID,
		RoleName:        "Bass",
		InvitationState: models.InvitationUnfilled,
		PaymentState:    models.PaymentPending,
	}
	if mutate != nil {
		mutate(role)
	}
	if err := db.Create(role).Error; err != nil {
		t.Fatalf("failed to create role: %v", err)
	}
	return role
}

// newTestLifecycle wires a lifecycle service with a sync queue and no email.
func newTestLifecycle(t *testing.T, db *gorm.DB) *LifecycleService {
	t.Helper()
	dispatcher := NewDispatcherService(db, NewSyncQueue())
	return NewLifecycleService(db, dispatcher)
}
