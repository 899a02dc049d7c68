package models

import (
	"time"

	"gorm.io/gorm"
)

// MusicianContact is a shadow profile a project owner keeps for a musician
// who may not have an account. Contacts never authenticate; once the person
// registers, LinkedUserID ties the contact to their real profile.
type MusicianContact struct {
	ID                  uint           `gorm:"primaryKey" json:"id"`
	UserID              uint           `gorm:"index;not null" json:"user_id"` // Owning user
	ContactName         string         `gorm:"size:200;not null" json:"contact_name"`
	Email               string         `gorm:"size:255" json:"email"`
	Phone               string         `gorm:"size:50" json:"phone"`
	PrimaryInstrument   string         `gorm:"size:100" json:"primary_instrument"`
	DefaultFee          *float64       `json:"default_fee"`
	DefaultRoles        string         `gorm:"size:500" json:"default_roles"` // Comma separated: Keys,Vocals
	LinkedUserID        *uint          `gorm:"index" json:"linked_user_id"`
	Notes               string         `gorm:"type:text" json:"notes"`
	TimesWorkedTogether int            `gorm:"default:0" json:"times_worked_together"`
	LastWorkedDate      *time.Time     `json:"last_worked_date"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"-"`
}

func (MusicianContact) TableName() string { return "musician_contacts" }
