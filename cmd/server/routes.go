package main

import (
	"github.com/gin-gonic/gin"
	"github.com/mhalvorsen/gigbook/backend/internal/handlers"
	"github.com/mhalvorsen/gigbook/backend/internal/middleware"
	"github.com/mhalvorsen/gigbook/backend/internal/models"
	"github.com/mhalvorsen/gigbook/backend/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	db := models.GetDB()

	// Rate limiter for unauthenticated token endpoints
	publicLimiter := middleware.NewRateLimiter(10, 20)

	// Health check
	healthHandler := handlers.NewHealthHandler(db)
	r.GET("/health", healthHandler.Check)

	// ICS calendar subscription (token in URL, rate limited)
	calendarHandler := handlers.NewCalendarHandler(db)
	r.GET("/calendar/:token", publicLimiter.Middleware(), calendarHandler.Feed)

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public, rate limited)
		auth := api.Group("/auth", publicLimiter.Middleware())
		{
			auth.POST("/register", svc.authHandler.Register)
			auth.POST("/login", svc.authHandler.Login)
			auth.POST("/refresh", svc.authHandler.Refresh)
			auth.GET("/methods", svc.authHandler.AuthMethods)
		}

		// Invitation peek is public so invitees can see what they were
		// asked to play before logging in.
		api.GET("/invitations/token/:token", publicLimiter.Middleware(), svc.invitationHandler.Peek)

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthRequired(), middleware.AuditLog())
		{
			// Auth
			protected.GET("/auth/me", svc.authHandler.Me)
			protected.PUT("/auth/me", svc.authHandler.UpdateProfile)
			protected.POST("/auth/logout", svc.authHandler.Logout)
			protected.POST("/auth/change-password", svc.authHandler.ChangePassword)
			protected.POST("/auth/calendar-token/rotate", svc.authHandler.RotateCalendarToken)

			// Dashboard
			dashboardHandler := handlers.NewDashboardHandler(db)
			protected.GET("/dashboard", dashboardHandler.Summary)

			// Projects
			projectHandler := handlers.NewProjectHandler(db)
			protected.GET("/projects", projectHandler.List)
			protected.GET("/projects/:id", projectHandler.Get)
			protected.POST("/projects", projectHandler.Create)
			protected.PUT("/projects/:id", projectHandler.Update)
			protected.DELETE("/projects/:id", projectHandler.Delete)

			// Gigs
			gigHandler := handlers.NewGigHandler(db)
			protected.GET("/gigs", gigHandler.List)
			protected.GET("/gigs/:id", gigHandler.Get)
			protected.POST("/gigs", gigHandler.Create)
			protected.PUT("/gigs/:id", gigHandler.Update)
			protected.DELETE("/gigs/:id", gigHandler.Delete)

			// Gig roles and their lifecycle
			protected.GET("/gigs/:id/roles", svc.gigRoleHandler.ListByGig)
			protected.POST("/gigs/:id/roles", svc.gigRoleHandler.Create)
			protected.GET("/roles/mine", svc.gigRoleHandler.MyRoles)
			protected.GET("/roles/:id", svc.gigRoleHandler.Get)
			protected.PUT("/roles/:id", svc.gigRoleHandler.Update)
			protected.DELETE("/roles/:id", svc.gigRoleHandler.Delete)
			protected.POST("/roles/:id/transition", svc.gigRoleHandler.Transition)
			protected.POST("/roles/:id/reverse-payment", svc.gigRoleHandler.ReversePayment)
			protected.GET("/roles/:id/history", svc.gigRoleHandler.History)

			// Invitations
			protected.POST("/roles/:id/invitations", svc.invitationHandler.Issue)
			protected.GET("/gigs/:id/invitations", svc.invitationHandler.ListByGig)
			protected.DELETE("/invitations/:id", svc.invitationHandler.Revoke)
			protected.POST("/invitations/token/:token/redeem", svc.invitationHandler.Redeem)

			// Setlists
			setlistHandler := handlers.NewSetlistHandler(db)
			protected.GET("/gigs/:id/setlist", setlistHandler.List)
			protected.POST("/gigs/:id/setlist", setlistHandler.Add)
			protected.PUT("/gigs/:id/setlist/order", setlistHandler.Reorder)
			protected.PUT("/setlist/:id", setlistHandler.Update)
			protected.DELETE("/setlist/:id", setlistHandler.Delete)
			protected.GET("/gigs/:id/setlist/learning", setlistHandler.ListLearning)
			protected.PUT("/setlist/:id/learning", setlistHandler.SetLearning)

			// Readiness checklists
			readinessHandler := handlers.NewReadinessHandler(db)
			protected.GET("/gigs/:id/readiness", readinessHandler.Get)
			protected.PUT("/gigs/:id/readiness", readinessHandler.Update)
			protected.GET("/gigs/:id/readiness/all", readinessHandler.ListForGig)

			// Contacts
			contactHandler := handlers.NewContactHandler(db)
			protected.GET("/contacts", contactHandler.List)
			protected.GET("/contacts/:id", contactHandler.Get)
			protected.POST("/contacts", contactHandler.Create)
			protected.PUT("/contacts/:id", contactHandler.Update)
			protected.DELETE("/contacts/:id", contactHandler.Delete)

			// Earnings
			protected.GET("/earnings", svc.earningsHandler.Summary)
			protected.GET("/earnings/payouts", svc.earningsHandler.Payouts)

			// Notifications
			notificationHandler := handlers.NewNotificationHandler(db)
			protected.GET("/notifications", notificationHandler.List)
			protected.GET("/notifications/unread-count", notificationHandler.UnreadCount)
			protected.PUT("/notifications/read-all", notificationHandler.MarkAllRead)
			protected.PUT("/notifications/:id/read", notificationHandler.MarkRead)

			// Gig activity feed
			activityLogHandler := handlers.NewActivityLogHandler(db)
			protected.GET("/gigs/:id/activity", activityLogHandler.GigFeed)

			// Business day calendars
			protected.GET("/calendar/countries", calendarHandler.Countries)
		}

		// Admin only routes
		admin := api.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired(), middleware.AuditLog())
		{
			activityLogHandler := handlers.NewActivityLogHandler(db)
			admin.GET("/logs", activityLogHandler.List)
			admin.GET("/logs/modules", activityLogHandler.Modules)

			systemConfigHandler := handlers.NewSystemConfigHandler(db)
			admin.GET("/config/:group", systemConfigHandler.GetGroup)
			admin.PUT("/config/:group", systemConfigHandler.UpdateGroup)
			admin.GET("/ldap", systemConfigHandler.GetLDAP)
			admin.PUT("/ldap", systemConfigHandler.UpdateLDAP)
		}
	}
}
