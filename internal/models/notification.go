package models

import "time"

// Notification is an in-app message created by the dispatcher on role
// transitions and by schedulers (gig reminders). Rows are only ever mutated
// to set ReadAt.
type Notification struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	Type      string     `gorm:"size:50;not null" json:"type"` // role_status, payment_status, invitation, gig_reminder
	Title     string     `gorm:"size:200;not null" json:"title"`
	Message   string     `gorm:"type:text" json:"message"`
	GigID     *uint      `gorm:"index" json:"gig_id"`
	GigRoleID *uint      `json:"gig_role_id"`
	ProjectID *uint      `json:"project_id"`
	LinkURL   string     `gorm:"size:500" json:"link_url"`
	DedupKey  string     `gorm:"size:36;index" json:"-"` // Guards schedulers against double-sends
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }
