package models

import "time"

// InvitationTokenStatus is the lifecycle of a single invitation token.
type InvitationTokenStatus string

const (
	InviteTokenPending  InvitationTokenStatus = "pending"
	InviteTokenAccepted InvitationTokenStatus = "accepted"
	InviteTokenExpired  InvitationTokenStatus = "expired"
	InviteTokenRevoked  InvitationTokenStatus = "revoked"
)

// GigInvitation binds an email address to a specific role offer through an
// opaque single-use token. At most one pending row exists per (role, email);
// issuing again revokes the earlier one.
type GigInvitation struct {
	ID         uint                  `gorm:"primaryKey" json:"id"`
	Token      string                `gorm:"uniqueIndex;size:64;not null" json:"-"`
	Email      string                `gorm:"index;size:255;not null" json:"email"`
	GigRoleID  uint                  `gorm:"index;not null" json:"gig_role_id"`
	GigRole    *GigRole              `gorm:"foreignKey:GigRoleID" json:"gig_role,omitempty"`
	GigID      uint                  `gorm:"index;not null" json:"gig_id"`
	Status     InvitationTokenStatus `gorm:"size:20;default:pending" json:"status"`
	ExpiresAt  time.Time             `gorm:"index;not null" json:"expires_at"`
	AcceptedAt *time.Time            `json:"accepted_at"`
	CreatedAt  time.Time             `json:"created_at"`
}

func (GigInvitation) TableName() string { return "gig_invitations" }
