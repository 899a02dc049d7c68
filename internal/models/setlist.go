package models

import "time"

// SetlistItem is one song in a gig's running order.
type SetlistItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	GigID     uint      `gorm:"index;not null" json:"gig_id"`
	Position  int       `gorm:"not null" json:"position"`
	Title     string    `gorm:"size:200;not null" json:"title"`
	Key       string    `gorm:"size:10" json:"key"`
	BPM       *int      `json:"bpm"`
	Notes     string    `gorm:"type:text" json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SetlistItem) TableName() string { return "setlist_items" }

// SetlistLearningStatus is a musician's private learning state for one song.
// One row per (item, musician).
type SetlistLearningStatus struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	SetlistItemID   uint       `gorm:"uniqueIndex:idx_learning_item_musician;not null" json:"setlist_item_id"`
	MusicianID      uint       `gorm:"uniqueIndex:idx_learning_item_musician;not null" json:"musician_id"`
	Learned         bool       `gorm:"default:false" json:"learned"`
	Difficulty      string     `gorm:"size:10" json:"difficulty"` // easy, medium, hard
	Priority        string     `gorm:"size:10" json:"priority"`   // low, medium, high
	PracticeCount   int        `gorm:"default:0" json:"practice_count"`
	LastPracticedAt *time.Time `json:"last_practiced_at"`
	Notes           string     `gorm:"type:text" json:"notes"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (SetlistLearningStatus) TableName() string { return "setlist_learning_status" }
