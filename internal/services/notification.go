package services

import (
	"context"
	"errors"
	"time"

	"github.com/mhalvorsen/gigbook/backend/internal/models"
	"github.com/mhalvorsen/gigbook/backend/pkg/logger"
	"gorm.io/gorm"
)

// NotificationService reads and mutates the in-app notification feed, and
// hosts the delivery processor the task queue drives.
type NotificationService struct {
	db    *gorm.DB
	email *EmailService
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{
		db:    db,
		email: NewEmailService(db),
	}
}

type NotificationListRequest struct {
	Page       int  `form:"page" binding:"min=1"`
	PageSize   int  `form:"page_size" binding:"min=1,max=100"`
	UnreadOnly bool `form:"unread_only"`
}

type NotificationListResponse struct {
	Total    int64                 `json:"total"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"page_size"`
	Items    []models.Notification `json:"items"`
}

func (s *NotificationService) List(actor Actor, req *NotificationListRequest) (*NotificationListResponse, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	query := s.db.Model(&models.Notification{}).Where("user_id = ?", actor.UserID)
	if req.UnreadOnly {
		query = query.Where("read_at IS NULL")
	}

	var total int64
	query.Count(&total)

	var items []models.Notification
	offset := (req.Page - 1) * req.PageSize
	if err := query.Offset(offset).Limit(req.PageSize).
		Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, err
	}

	return &NotificationListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    items,
	}, nil
}

func (s *NotificationService) UnreadCount(actor Actor) (int64, error) {
	var count int64
	err := s.db.Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", actor.UserID).
		Count(&count).Error
	return count, err
}

// MarkRead stamps one notification. Only the recipient may read their feed.
func (s *NotificationService) MarkRead(actor Actor, notificationID uint) error {
	var notif models.Notification
	if err := s.db.First(&notif, notificationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if notif.UserID != actor.UserID {
		return ErrForbidden
	}
	if notif.ReadAt != nil {
		return nil
	}
	return s.db.Model(&notif).Update("read_at", nowPtr()).Error
}

func (s *NotificationService) MarkAllRead(actor Actor) (int64, error) {
	result := s.db.Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", actor.UserID).
		Update("read_at", nowPtr())
	return result.RowsAffected, result.Error
}

// CleanupOld deletes read notifications older than the retention window.
func (s *NotificationService) CleanupOld(retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	result := s.db.Where("created_at < ? AND read_at IS NOT NULL", cutoff).
		Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}

// ProcessDelivery is the task queue processor. The in-app row is already
// committed; this only handles the email leg.
func (s *NotificationService) ProcessDelivery(ctx context.Context, task *NotificationTask) error {
	if !task.SendEmail {
		return nil
	}
	if err := s.email.SendNotification(task); err != nil {
		logger.Errorf("[Notification] Email delivery failed for notification %d: %v", task.NotificationID, err)
		return err
	}
	return nil
}
