package services

import (
	"time"

	"github.com/mhalvorsen/gigbook/backend/internal/models"
	"gorm.io/gorm"
)

// DashboardService assembles the landing page summary for a user, mixing
// their owner side (gigs they run) and musician side (roles they hold).
type DashboardService struct {
	db *gorm.DB
}

func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db}
}

type DashboardSummary struct {
	UpcomingGigs       []models.Gig     `json:"upcoming_gigs"`
	UnfilledRoles      int64            `json:"unfilled_roles"`
	PendingInvitations int64            `json:"pending_invitations"`
	AwaitingResponse   []models.GigRole `json:"awaiting_response"`
	OutstandingRoles   int64            `json:"outstanding_roles"`
	UnreadNotifications int64           `json:"unread_notifications"`
}

func (s *DashboardService) Summary(actor Actor) (*DashboardSummary, error) {
	summary := &DashboardSummary{}
	now := time.Now()

	// Next gigs, owned or playing.
	err := s.db.Model(&models.Gig{}).
		Distinct("gigs.*").
		Joins("JOIN projects ON projects.id = gigs.project_id AND projects.deleted_at IS NULL").
		Joins("LEFT JOIN gig_roles ON gig_roles.gig_id = gigs.id AND gig_roles.deleted_at IS NULL").
		Where("projects.owner_id = ? OR gig_roles.musician_id = ?", actor.UserID, actor.UserID).
		Where("gigs.date >= ? AND gigs.status <> ?", now.AddDate(0, 0, -1), models.GigCancelled).
		Order("gigs.date ASC").
		Limit(5).
		Find(&summary.UpcomingGigs).Error
	if err != nil {
		return nil, err
	}

	// Owner side: slots still needing a musician on upcoming gigs.
	s.db.Model(&models.GigRole{}).
		Joins("JOIN gigs ON gigs.id = gig_roles.gig_id AND gigs.deleted_at IS NULL").
		Joins("JOIN projects ON projects.id = gigs.project_id AND projects.deleted_at IS NULL").
		Where("projects.owner_id = ?", actor.UserID).
		Where("gigs.date >= ? AND gigs.status <> ?", now, models.GigCancelled).
		Where("gig_roles.invitation_status IN ?", []models.InvitationStatus{
			models.InvitationUnfilled, models.InvitationPending,
			models.InvitationDeclined, models.InvitationExpired,
		}).
		Count(&summary.UnfilledRoles)

	// Owner side: invitations out, not yet answered.
	s.db.Model(&models.GigInvitation{}).
		Joins("JOIN gigs ON gigs.id = gig_invitations.gig_id AND gigs.deleted_at IS NULL").
		Joins("JOIN projects ON projects.id = gigs.project_id AND projects.deleted_at IS NULL").
		Where("projects.owner_id = ?", actor.UserID).
		Where("gig_invitations.status = ?", models.InviteTokenPending).
		Count(&summary.PendingInvitations)

	// Musician side: offers waiting on the actor.
	err = s.db.Preload("Gig").
		Joins("JOIN gigs ON gigs.id = gig_roles.gig_id AND gigs.deleted_at IS NULL").
		Where("gig_roles.musician_id = ?", actor.UserID).
		Where("gig_roles.invitation_status IN ?", []models.InvitationStatus{
			models.InvitationInvited, models.InvitationTentative,
		}).
		Where("gigs.date >= ?", now).
		Order("gigs.date ASC").
		Find(&summary.AwaitingResponse).Error
	if err != nil {
		return nil, err
	}

	// Owner side: past gigs with fees not yet settled.
	s.db.Model(&models.GigRole{}).
		Joins("JOIN gigs ON gigs.id = gig_roles.gig_id AND gigs.deleted_at IS NULL").
		Joins("JOIN projects ON projects.id = gigs.project_id AND projects.deleted_at IS NULL").
		Where("projects.owner_id = ?", actor.UserID).
		Where("gigs.date < ? AND gigs.status <> ?", now, models.GigCancelled).
		Where("gig_roles.agreed_fee IS NOT NULL").
		Where("gig_roles.payment_status IN ?", []models.PaymentStatus{
			models.PaymentPending, models.PaymentPartial,
		}).
		Count(&summary.OutstandingRoles)

	s.db.Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", actor.UserID).
		Count(&summary.UnreadNotifications)

	return summary, nil
}
