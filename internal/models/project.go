package models

import (
	"time"

	"gorm.io/gorm"
)

// Project groups gigs under a single owner. Every user gets a personal
// project on registration; personal projects cannot be deleted.
type Project struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	OwnerID   uint           `gorm:"index;not null" json:"owner_id"`
	Owner     *User          `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Name      string         `gorm:"size:200;not null" json:"name"`
	Personal  bool           `gorm:"default:false" json:"personal"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Project) TableName() string { return "projects" }
