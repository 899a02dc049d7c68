package models

import (
	"fmt"

	"github.com/mhalvorsen/gigbook/backend/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func InitDB(cfg *config.DatabaseConfig) error {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}

	DB = db
	return nil
}

func AutoMigrate() error {
	return DB.AutoMigrate(
		&User{},
		&RefreshToken{},
		&Project{},
		&Gig{},
		&GigRole{},
		&GigRoleStatusHistory{},
		&GigInvitation{},
		&MusicianContact{},
		&Notification{},
		&SetlistItem{},
		&SetlistLearningStatus{},
		&GigReadiness{},
		&ActivityLog{},
		&SystemConfig{},
		&SchedulerLock{},
	)
}

func GetDB() *gorm.DB {
	return DB
}

// SeedDefaultData creates default system config rows if not exists
func SeedDefaultData() error {
	defaultConfigs := []SystemConfig{
		{Key: "invitation_expire_hours", Value: "168", Type: "int", Group: "invitation", Label: "Invitation Token TTL (hours)"},
		{Key: "payment_overdue_grace_days", Value: "14", Type: "int", Group: "payment", Label: "Business Days After Gig Before Payment Is Overdue"},
		{Key: "notification_retention_days", Value: "90", Type: "int", Group: "system", Label: "Read Notification Retention Days"},
		{Key: "auth_access_token_expire_hours", Value: "24", Type: "int", Group: "auth", Label: "Access Token TTL (hours)"},
		{Key: "auth_refresh_token_expire_hours", Value: "720", Type: "int", Group: "auth", Label: "Refresh Token TTL (hours)"},
		{Key: "email_enabled", Value: "false", Type: "bool", Group: "email", Label: "Enable Email Delivery"},
		{Key: "email_host", Value: "", Type: "string", Group: "email", Label: "SMTP Host"},
		{Key: "email_port", Value: "587", Type: "int", Group: "email", Label: "SMTP Port"},
		{Key: "email_username", Value: "", Type: "string", Group: "email", Label: "SMTP Username"},
		{Key: "email_password", Value: "", Type: "string", Group: "email", Label: "SMTP Password"},
		{Key: "email_from", Value: "", Type: "string", Group: "email", Label: "From Address"},
		{Key: "email_use_tls", Value: "true", Type: "bool", Group: "email", Label: "Use TLS"},
	}

	for _, cfg := range defaultConfigs {
		var count int64
		DB.Model(&SystemConfig{}).Where("key = ?", cfg.Key).Count(&count)
		if count == 0 {
			if err := DB.Create(&cfg).Error; err != nil {
				return err
			}
		}
	}

	return nil
}
