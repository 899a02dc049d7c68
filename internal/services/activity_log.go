package services

import (
	"encoding/json"
	"time"

	"github.com/mhalvorsen/gigbook/backend/internal/models"
	"github.com/mhalvorsen/gigbook/backend/pkg/logger"
	"gorm.io/gorm"
)

var globalDB *gorm.DB

func InitActivityLogger(db *gorm.DB) {
	globalDB = db
}

func LogInfo(module, action, message string, userID, gigID *uint, ip, userAgent string, extra interface{}) {
	writeLog("info", module, action, message, userID, gigID, ip, userAgent, extra)
}

func LogWarning(module, action, message string, userID, gigID *uint, ip, userAgent string, extra interface{}) {
	writeLog("warning", module, action, message, userID, gigID, ip, userAgent, extra)
}

func LogError(module, action, message string, userID, gigID *uint, ip, userAgent string, extra interface{}) {
	writeLog("error", module, action, message, userID, gigID, ip, userAgent, extra)
}

func writeLog(level, module, action, message string, userID, gigID *uint, ip, userAgent string, extra interface{}) {
	if globalDB == nil {
		return
	}

	var extraStr string
	if extra != nil {
		if b, err := json.Marshal(extra); err == nil {
			extraStr = string(b)
		}
	}

	entry := &models.ActivityLog{
		Level:     level,
		Module:    module,
		Action:    action,
		Message:   message,
		UserID:    userID,
		GigID:     gigID,
		IP:        ip,
		UserAgent: userAgent,
		Extra:     extraStr,
		CreatedAt: time.Now(),
	}
	globalDB.Create(entry)
}

type ActivityLogService struct {
	db *gorm.DB
}

func NewActivityLogService(db *gorm.DB) *ActivityLogService {
	return &ActivityLogService{db: db}
}

type ActivityLogListRequest struct {
	Page      int    `form:"page" binding:"min=1"`
	PageSize  int    `form:"page_size" binding:"min=1,max=100"`
	Level     string `form:"level"`
	Module    string `form:"module"`
	Action    string `form:"action"`
	GigID     *uint  `form:"gig_id"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
	Search    string `form:"search"`
}

type ActivityLogListResponse struct {
	Total    int64                `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
	Items    []models.ActivityLog `json:"items"`
}

func (s *ActivityLogService) List(req *ActivityLogListRequest) (*ActivityLogListResponse, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	var logs []models.ActivityLog
	var total int64

	query := s.db.Model(&models.ActivityLog{})

	if req.Level != "" {
		query = query.Where("level = ?", req.Level)
	}
	if req.Module != "" {
		query = query.Where("module = ?", req.Module)
	}
	if req.Action != "" {
		query = query.Where("action LIKE ?", "%"+req.Action+"%")
	}
	if req.GigID != nil {
		query = query.Where("gig_id = ?", *req.GigID)
	}
	if req.StartDate != "" {
		query = query.Where("created_at >= ?", req.StartDate)
	}
	if req.EndDate != "" {
		query = query.Where("created_at <= ?", req.EndDate+" 23:59:59")
	}
	if req.Search != "" {
		query = query.Where("message LIKE ?", "%"+req.Search+"%")
	}

	query.Count(&total)

	offset := (req.Page - 1) * req.PageSize
	if err := query.Offset(offset).Limit(req.PageSize).Order("created_at DESC").Find(&logs).Error; err != nil {
		return nil, err
	}

	return &ActivityLogListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    logs,
	}, nil
}

// ListForGig returns the activity feed for one gig. The caller is expected
// to have checked read access to the gig already.
func (s *ActivityLogService) ListForGig(gigID uint, limit int) ([]models.ActivityLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var logs []models.ActivityLog
	if err := s.db.Where("gig_id = ?", gigID).
		Order("created_at DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *ActivityLogService) GetModules() ([]string, error) {
	var modules []string
	if err := s.db.Model(&models.ActivityLog{}).Distinct("module").Pluck("module", &modules).Error; err != nil {
		return nil, err
	}
	return modules, nil
}

// CleanupOldLogs deletes logs older than the specified number of days
// Returns the number of deleted records
func (s *ActivityLogService) CleanupOldLogs(retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	cutoffTime := time.Now().AddDate(0, 0, -retentionDays)
	result := s.db.Where("created_at < ?", cutoffTime).Delete(&models.ActivityLog{})
	if result.Error != nil {
		return 0, result.Error
	}

	return result.RowsAffected, nil
}

var logCleanupStop chan struct{}

// StartLogCleanupScheduler starts a goroutine that periodically cleans up
// old activity logs.
func StartLogCleanupScheduler(db *gorm.DB) {
	logCleanupStop = make(chan struct{})
	go func() {
		service := NewActivityLogService(db)
		configSvc := NewSystemConfigService(db)

		runLogCleanup(service, configSvc)

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				runLogCleanup(service, configSvc)
			case <-logCleanupStop:
				return
			}
		}
	}()
}

// StopLogCleanupScheduler stops the cleanup goroutine.
func StopLogCleanupScheduler() {
	if logCleanupStop != nil {
		close(logCleanupStop)
		logCleanupStop = nil
	}
}

func runLogCleanup(service *ActivityLogService, configSvc *SystemConfigService) {
	retentionDays := configSvc.GetInt("log_retention_days", 30)
	if retentionDays <= 0 {
		logger.Infof("[ActivityLog] Log cleanup disabled (retention_days <= 0)")
		return
	}

	deleted, err := service.CleanupOldLogs(retentionDays)
	if err != nil {
		logger.Errorf("[ActivityLog] Failed to cleanup old logs: %v", err)
		return
	}

	if deleted > 0 {
		logger.Infof("[ActivityLog] Cleaned up %d logs older than %d days", deleted, retentionDays)
	}
}
