package models

import "time"

// GigReadiness is a musician's own prep checklist for one gig. One row per
// (gig, musician), created lazily on first read.
type GigReadiness struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	GigID         uint      `gorm:"uniqueIndex:idx_readiness_gig_musician;not null" json:"gig_id"`
	MusicianID    uint      `gorm:"uniqueIndex:idx_readiness_gig_musician;not null" json:"musician_id"`
	ChartsReady   bool      `gorm:"default:false" json:"charts_ready"`
	SoundsReady   bool      `gorm:"default:false" json:"sounds_ready"`
	GearPacked    bool      `gorm:"default:false" json:"gear_packed"`
	TravelChecked bool      `gorm:"default:false" json:"travel_checked"`
	SongsLearned  int       `gorm:"default:0" json:"songs_learned"`
	SongsTotal    int       `gorm:"default:0" json:"songs_total"`
	Notes         string    `gorm:"type:text" json:"notes"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (GigReadiness) TableName() string { return "gig_readiness" }
