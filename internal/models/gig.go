package models

import (
	"time"

	"gorm.io/gorm"
)

// GigStatus is the booking state of a gig itself, independent of its roles.
type GigStatus string

const (
	GigDraft     GigStatus = "draft"
	GigConfirmed GigStatus = "confirmed"
	GigCancelled GigStatus = "cancelled"
)

// Gig represents a single scheduled performance event inside a project.
// A gig never outlives its project.
type Gig struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	ProjectID       uint           `gorm:"index;not null" json:"project_id"`
	Project         *Project       `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Title           string         `gorm:"size:200;not null" json:"title"`
	Date            time.Time      `gorm:"index;not null" json:"date"`
	StartTime       string         `gorm:"size:8" json:"start_time"` // "18:00:00"
	EndTime         string         `gorm:"size:8" json:"end_time"`
	LocationName    string         `gorm:"size:200" json:"location_name"`
	LocationAddress string         `gorm:"size:500" json:"location_address"`
	Schedule        string         `gorm:"type:text" json:"schedule"` // Free-text run sheet
	Notes           string         `gorm:"type:text" json:"notes"`
	Status          GigStatus      `gorm:"size:20;default:draft" json:"status"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Gig) TableName() string { return "gigs" }
