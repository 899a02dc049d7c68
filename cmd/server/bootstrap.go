package main

import (
	"github.com/mhalvorsen/gigbook/backend/internal/config"
	"github.com/mhalvorsen/gigbook/backend/internal/handlers"
	"github.com/mhalvorsen/gigbook/backend/internal/models"
	"github.com/mhalvorsen/gigbook/backend/internal/services"
	"github.com/mhalvorsen/gigbook/backend/internal/utils"
	"github.com/mhalvorsen/gigbook/backend/pkg/logger"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	lifecycle         *services.LifecycleService
	invitationService *services.InvitationService
	sweepService      *services.SweepService
	taskQueue         services.TaskQueue
	worker            *services.Worker
	authHandler       *handlers.AuthHandler
	gigRoleHandler    *handlers.GigRoleHandler
	invitationHandler *handlers.InvitationHandler
	earningsHandler   *handlers.EarningsHandler
}

// bootstrap initializes all application dependencies: database, services, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	// Initialize database
	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto migrate database
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	// Seed default data
	if err := models.SeedDefaultData(); err != nil {
		logger.Warnf("Failed to seed default data: %v", err)
	}

	db := models.GetDB()

	// Audit trail writes go through the activity logger
	services.InitActivityLogger(db)
	services.StartLogCleanupScheduler(db)

	// Task queue (uses Redis if enabled, otherwise sync mode)
	notificationService := services.NewNotificationService(db)
	taskQueue := services.InitTaskQueue(cfg)
	if syncQueue, ok := taskQueue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(notificationService.ProcessDelivery)
	}

	var worker *services.Worker
	if cfg.Redis.Enabled {
		worker = services.InitWorker(&cfg.Redis)
		if worker != nil {
			worker.SetProcessor(notificationService.ProcessDelivery)
			if err := worker.Start(); err != nil {
				logger.Warnf("Failed to start async worker: %v", err)
			}
		}
	}

	// Lifecycle stack: dispatcher feeds notifications and the audit trail,
	// invitations wrap the lifecycle engine for token driven transitions.
	dispatcher := services.NewDispatcherService(db, taskQueue)
	lifecycle := services.NewLifecycleService(db, dispatcher)
	invitationService := services.NewInvitationService(db, lifecycle, dispatcher)
	earningsService := services.NewEarningsService(db, lifecycle)

	// Background sweeps: invitation expiry, gig reminders, notification cleanup
	sweepService := services.NewSweepService(db, invitationService, dispatcher)
	sweepService.StartScheduler()

	// Create default admin user
	authService := services.NewAuthService(db, &cfg.JWT)
	if err := authService.CreateAdminIfNotExists(); err != nil {
		logger.Warnf("Failed to create admin user: %v", err)
	}

	return &appServices{
		lifecycle:         lifecycle,
		invitationService: invitationService,
		sweepService:      sweepService,
		taskQueue:         taskQueue,
		worker:            worker,
		authHandler:       handlers.NewAuthHandler(db, &cfg.JWT),
		gigRoleHandler:    handlers.NewGigRoleHandler(db, lifecycle),
		invitationHandler: handlers.NewInvitationHandler(invitationService),
		earningsHandler:   handlers.NewEarningsHandler(earningsService),
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.sweepService.StopScheduler()
	services.StopLogCleanupScheduler()
	logger.Infof("All schedulers stopped")

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		s.taskQueue.Close()
	}
}
