package services

import (
	"fmt"
	"os"
	"time"

	"github.com/mhalvorsen/gigbook/backend/internal/models"
	"github.com/mhalvorsen/gigbook/backend/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// SweepService runs the periodic maintenance jobs: invitation expiry, gig
// reminders and notification cleanup. Each run takes a database lock first
// so only one instance executes a given sweep.
type SweepService struct {
	db          *gorm.DB
	invitations *InvitationService
	contacts    *ContactService
	dispatcher  *DispatcherService
	configSvc   *SystemConfigService
	scheduler   *cron.Cron
	instanceID  string
}

func NewSweepService(db *gorm.DB, invitations *InvitationService, dispatcher *DispatcherService) *SweepService {
	hostname, _ := os.Hostname()
	return &SweepService{
		db:          db,
		invitations: invitations,
		contacts:    NewContactService(db),
		dispatcher:  dispatcher,
		configSvc:   NewSystemConfigService(db),
		instanceID:  fmt.Sprintf("%s-%d", hostname, os.Getpid()),
	}
}

func (s *SweepService) StartScheduler() {
	s.scheduler = cron.New()

	s.scheduler.AddFunc("*/15 * * * *", func() {
		s.runLocked("invitation_expiry", 10*time.Minute, s.sweepInvitations)
	})
	s.scheduler.AddFunc("0 9 * * *", func() {
		s.runLocked("gig_reminders", time.Hour, s.sweepReminders)
	})
	s.scheduler.AddFunc("0 3 * * *", func() {
		s.runLocked("notification_cleanup", time.Hour, s.sweepNotifications)
	})

	s.scheduler.Start()
	logger.Infof("[Sweep] Scheduler started")
}

func (s *SweepService) StopScheduler() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

// runLocked executes job only if this instance wins the named lock for the
// current period.
func (s *SweepService) runLocked(name string, ttl time.Duration, job func() error) {
	key := time.Now().Truncate(ttl).Format(time.RFC3339)
	if !s.tryAcquire(name, key, ttl) {
		return
	}
	if err := job(); err != nil {
		logger.Errorf("[Sweep] %s failed: %v", name, err)
	}
}

func (s *SweepService) tryAcquire(name, key string, ttl time.Duration) bool {
	now := time.Now()

	// Reclaim an expired lock for the same slot if a crashed instance holds it.
	s.db.Where("lock_name = ? AND expires_at < ?", name, now).Delete(&models.SchedulerLock{})

	lock := models.SchedulerLock{
		LockName:  name,
		LockKey:   key,
		LockedBy:  s.instanceID,
		LockedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.db.Create(&lock).Error; err != nil {
		// Unique violation: another instance already runs this slot.
		return false
	}
	return true
}

func (s *SweepService) sweepInvitations() error {
	swept, err := s.invitations.ExpireStale()
	if err != nil {
		return err
	}
	if swept > 0 {
		logger.Infof("[Sweep] Expired %d stale invitations", swept)
	}
	return nil
}

// sweepReminders notifies accepted musicians about tomorrow's gigs and bumps
// contact collaboration counters for gigs that happened yesterday.
func (s *SweepService) sweepReminders() error {
	tomorrow := time.Now().AddDate(0, 0, 1)
	dayStart := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 0, 0, 0, 0, tomorrow.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	var roles []models.GigRole
	if err := s.db.Preload("Gig").
		Joins("JOIN gigs ON gigs.id = gig_roles.gig_id AND gigs.deleted_at IS NULL").
		Where("gigs.date >= ? AND gigs.date < ?", dayStart, dayEnd).
		Where("gigs.status = ?", models.GigConfirmed).
		Where("gig_roles.invitation_status = ?", models.InvitationAccepted).
		Where("gig_roles.musician_id IS NOT NULL").
		Find(&roles).Error; err != nil {
		return err
	}

	for i := range roles {
		role := &roles[i]
		gig := role.Gig
		if gig == nil {
			continue
		}
		dedupKey := fmt.Sprintf("reminder:%d:%d:%s", gig.ID, *role.MusicianID, dayStart.Format("2006-01-02"))
		title := fmt.Sprintf("Reminder: %s tomorrow", gig.Title)
		message := fmt.Sprintf("You play %s at %s on %s", role.RoleName, gig.Title, gig.Date.Format("Jan 2"))
		if gig.StartTime != "" {
			message += " starting " + gig.StartTime
		}
		s.dispatcher.NotifyUser(*role.MusicianID, "gig_reminder", title, message, gig, dedupKey)
	}

	s.recordYesterdaysCollaborations()
	return nil
}

func (s *SweepService) recordYesterdaysCollaborations() {
	yesterday := time.Now().AddDate(0, 0, -1)
	dayStart := time.Date(yesterday.Year(), yesterday.Month(), yesterday.Day(), 0, 0, 0, 0, yesterday.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	var roles []models.GigRole
	if err := s.db.
		Joins("JOIN gigs ON gigs.id = gig_roles.gig_id AND gigs.deleted_at IS NULL").
		Where("gigs.date >= ? AND gigs.date < ?", dayStart, dayEnd).
		Where("gigs.status = ?", models.GigConfirmed).
		Where("gig_roles.invitation_status = ?", models.InvitationAccepted).
		Where("gig_roles.contact_id IS NOT NULL").
		Find(&roles).Error; err != nil {
		logger.Errorf("[Sweep] Failed to load finished roles: %v", err)
		return
	}

	for i := range roles {
		if err := s.contacts.RecordWorked(*roles[i].ContactID, dayStart); err != nil {
			logger.Errorf("[Sweep] Failed to record collaboration for contact %d: %v", *roles[i].ContactID, err)
		}
	}
}

func (s *SweepService) sweepNotifications() error {
	retention := s.configSvc.GetInt("notification_retention_days", 90)
	deleted, err := NewNotificationService(s.db).CleanupOld(retention)
	if err != nil {
		return err
	}
	if deleted > 0 {
		logger.Infof("[Sweep] Cleaned up %d notifications older than %d days", deleted, retention)
	}
	return nil
}
