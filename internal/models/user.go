package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a registered musician profile. Unregistered musicians are
// tracked as MusicianContact rows and never authenticate.
type User struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	Email              string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password           string         `gorm:"size:255" json:"-"` // Hashed password, empty for LDAP users
	Name               string         `gorm:"size:100" json:"name"`
	MainInstrument     string         `gorm:"size:100" json:"main_instrument"`
	Phone              string         `gorm:"size:50" json:"phone"`
	DefaultCountryCode string         `gorm:"size:4;default:US" json:"default_country_code"`
	CalendarICSToken   string         `gorm:"size:36" json:"-"` // Opaque token for the calendar feed URL
	Role               string         `gorm:"size:50;default:user" json:"role"`       // admin, user
	AuthType           string         `gorm:"size:20;default:local" json:"auth_type"` // local, ldap
	IsActive           bool           `gorm:"default:true" json:"is_active"`
	LastLogin          *time.Time     `json:"last_login"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string { return "users" }
