package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/mhalvorsen/gigbook/backend/internal/middleware"
	"github.com/mhalvorsen/gigbook/backend/internal/services"
	"github.com/mhalvorsen/gigbook/backend/pkg/response"
	"gorm.io/gorm"
)

type NotificationHandler struct {
	notificationService *services.NotificationService
}

func NewNotificationHandler(db *gorm.DB) *NotificationHandler {
	return &NotificationHandler{
		notificationService: services.NewNotificationService(db),
	}
}

// List returns the user's notifications, newest first
// GET /api/notifications
func (h *NotificationHandler) List(c *gin.Context) {
	var req services.NotificationListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.notificationService.List(middleware.GetActor(c), &req)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, result)
}

// UnreadCount returns the number of unread notifications
// GET /api/notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	count, err := h.notificationService.UnreadCount(middleware.GetActor(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, gin.H{"count": count})
}

// MarkRead marks one notification as read
// PUT /api/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.notificationService.MarkRead(middleware.GetActor(c), id); err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, gin.H{"message": "marked read"})
}

// MarkAllRead marks every unread notification as read
// PUT /api/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	count, err := h.notificationService.MarkAllRead(middleware.GetActor(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, gin.H{"updated": count})
}
