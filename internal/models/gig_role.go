package models

import (
	"time"

	"gorm.io/gorm"
)

// InvitationStatus tracks how far a role offer has progressed.
type InvitationStatus string

const (
	InvitationUnfilled  InvitationStatus = "unfilled"
	InvitationPending   InvitationStatus = "pending"
	InvitationInvited   InvitationStatus = "invited"
	InvitationAccepted  InvitationStatus = "accepted"
	InvitationTentative InvitationStatus = "tentative"
	InvitationDeclined  InvitationStatus = "declined"
	InvitationExpired   InvitationStatus = "expired"
)

// PaymentStatus tracks settlement of the agreed fee. PaymentOverdue is
// derived from the gig date and never stored.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
	PaymentOverdue PaymentStatus = "overdue"
)

// StatusAxis identifies which of the two independent status fields a
// transition applies to.
type StatusAxis string

const (
	AxisInvitation StatusAxis = "invitation"
	AxisPayment    StatusAxis = "payment"
)

// AssigneeKind reports which reference on a role is authoritative.
type AssigneeKind int

const (
	AssigneeNone AssigneeKind = iota
	AssigneeMusician
	AssigneeContact
)

// GigRole is one instrument/function slot within a gig. At most one of
// MusicianID (registered profile) and ContactID (shadow profile) is set;
// the setters below keep the pair mutually exclusive.
type GigRole struct {
	ID              uint             `gorm:"primaryKey" json:"id"`
	GigID           uint             `gorm:"index;not null" json:"gig_id"`
	Gig             *Gig             `gorm:"foreignKey:GigID" json:"gig,omitempty"`
	RoleName        string           `gorm:"size:100;not null" json:"role_name"`
	MusicianID      *uint            `gorm:"index" json:"musician_id"`
	Musician        *User            `gorm:"foreignKey:MusicianID" json:"musician,omitempty"`
	ContactID       *uint            `gorm:"index" json:"contact_id"`
	Contact         *MusicianContact `gorm:"foreignKey:ContactID" json:"contact,omitempty"`
	MusicianName    string           `gorm:"size:200" json:"musician_name"` // Display snapshot at assignment time
	InvitationState InvitationStatus `gorm:"column:invitation_status;size:20;default:unfilled" json:"invitation_status"`
	PaymentState    PaymentStatus    `gorm:"column:payment_status;size:20;default:pending" json:"payment_status"`
	AgreedFee       *float64         `json:"agreed_fee"`
	Currency        string           `gorm:"size:3;default:USD" json:"currency"`
	PaidAmount      *float64         `json:"paid_amount"`
	PaidAt          *time.Time       `json:"paid_at"`
	PlayerNotes     string           `gorm:"type:text" json:"player_notes"` // Musician-editable
	Notes           string           `gorm:"type:text" json:"notes"`        // Owner notes
	StatusChangedAt *time.Time       `json:"status_changed_at"`
	StatusChangedBy *uint            `json:"status_changed_by"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
	DeletedAt       gorm.DeletedAt   `gorm:"index" json:"-"`
}

func (GigRole) TableName() string { return "gig_roles" }

// Assignee returns which reference currently holds the slot. A musician
// reference wins if both are somehow populated.
func (r *GigRole) Assignee() AssigneeKind {
	if r.MusicianID != nil {
		return AssigneeMusician
	}
	if r.ContactID != nil {
		return AssigneeContact
	}
	return AssigneeNone
}

// SetMusician assigns a registered profile and clears any contact reference.
func (r *GigRole) SetMusician(userID uint, name string) {
	r.MusicianID = &userID
	r.ContactID = nil
	r.MusicianName = name
}

// SetContact assigns a shadow profile and clears any musician reference.
func (r *GigRole) SetContact(contactID uint, name string) {
	r.ContactID = &contactID
	r.MusicianID = nil
	r.MusicianName = name
}

// ClearAssignee returns the role to unfilled ownership of the slot.
func (r *GigRole) ClearAssignee() {
	r.MusicianID = nil
	r.ContactID = nil
	r.MusicianName = ""
}

// IsAssignedMusician reports whether userID is the registered musician
// holding this role.
func (r *GigRole) IsAssignedMusician(userID uint) bool {
	return r.MusicianID != nil && *r.MusicianID == userID
}

// GigRoleStatusHistory is the append-only audit trail of status changes.
// Rows are never updated or deleted.
type GigRoleStatusHistory struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	GigRoleID uint       `gorm:"index;not null" json:"gig_role_id"`
	Axis      StatusAxis `gorm:"size:20;not null" json:"axis"`
	OldStatus string     `gorm:"size:20" json:"old_status"`
	NewStatus string     `gorm:"size:20;not null" json:"new_status"`
	ChangedBy *uint      `json:"changed_by"` // nil for system-initiated changes
	ChangedAt time.Time  `gorm:"index;not null" json:"changed_at"`
	Note      string     `gorm:"type:text" json:"note"`
	Reversal  bool       `gorm:"default:false" json:"reversal"` // Owner correction of a terminal paid status
}

func (GigRoleStatusHistory) TableName() string { return "gig_role_status_history" }
