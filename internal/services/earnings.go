package services

import (
	"time"

	"github.com/mhalvorsen/gigbook/backend/internal/models"
	"gorm.io/gorm"
)

// EarningsService aggregates what a musician has earned and is still owed
// across their accepted roles. Amounts are grouped by currency; currencies
// are never converted.
type EarningsService struct {
	db        *gorm.DB
	lifecycle *LifecycleService
	roles     *GigRoleService
}

func NewEarningsService(db *gorm.DB, lifecycle *LifecycleService) *EarningsService {
	return &EarningsService{
		db:        db,
		lifecycle: lifecycle,
		roles:     NewGigRoleService(db, lifecycle),
	}
}

type EarningsRequest struct {
	From string `form:"from"`
	To   string `form:"to"`
}

type CurrencyTotal struct {
	Currency    string  `json:"currency"`
	Paid        float64 `json:"paid"`
	Outstanding float64 `json:"outstanding"`
	Overdue     float64 `json:"overdue"`
}

type EarningsGig struct {
	GigID         uint                 `json:"gig_id"`
	GigTitle      string               `json:"gig_title"`
	Date          time.Time            `json:"date"`
	RoleName      string               `json:"role_name"`
	AgreedFee     *float64             `json:"agreed_fee"`
	Currency      string               `json:"currency"`
	PaidAmount    *float64             `json:"paid_amount"`
	PaymentStatus models.PaymentStatus `json:"payment_status"`
}

type EarningsSummary struct {
	Totals []CurrencyTotal `json:"totals"`
	Gigs   []EarningsGig   `json:"gigs"`
}

// Summary reports earnings over the actor's accepted roles on gigs that are
// not cancelled. The payment status shown is the computed one, so overdue
// fees surface here.
func (s *EarningsService) Summary(actor Actor, req *EarningsRequest) (*EarningsSummary, error) {
	query := s.db.Preload("Gig").
		Joins("JOIN gigs ON gigs.id = gig_roles.gig_id AND gigs.deleted_at IS NULL").
		Where("gig_roles.musician_id = ?", actor.UserID).
		Where("gig_roles.invitation_status = ?", models.InvitationAccepted).
		Where("gigs.status <> ?", models.GigCancelled)

	if req.From != "" {
		query = query.Where("gigs.date >= ?", req.From)
	}
	if req.To != "" {
		query = query.Where("gigs.date <= ?", req.To)
	}

	var roles []models.GigRole
	if err := query.Order("gigs.date DESC").Find(&roles).Error; err != nil {
		return nil, err
	}

	totals := map[string]*CurrencyTotal{}
	now := time.Now()
	gigs := make([]EarningsGig, 0, len(roles))

	for i := range roles {
		role := &roles[i]
		gig := role.Gig
		if gig == nil {
			continue
		}

		country := s.roles.ownerCountry(gig)
		status := s.lifecycle.EffectivePaymentStatus(role, gig, country, now)

		gigs = append(gigs, EarningsGig{
			GigID:         gig.ID,
			GigTitle:      gig.Title,
			Date:          gig.Date,
			RoleName:      role.RoleName,
			AgreedFee:     role.AgreedFee,
			Currency:      role.Currency,
			PaidAmount:    role.PaidAmount,
			PaymentStatus: status,
		})

		if role.AgreedFee == nil {
			continue
		}
		total, ok := totals[role.Currency]
		if !ok {
			total = &CurrencyTotal{Currency: role.Currency}
			totals[role.Currency] = total
		}

		paid := 0.0
		if role.PaidAmount != nil {
			paid = *role.PaidAmount
		}
		switch status {
		case models.PaymentPaid:
			total.Paid += *role.AgreedFee
		case models.PaymentOverdue:
			total.Paid += paid
			total.Overdue += *role.AgreedFee - paid
		default:
			total.Paid += paid
			total.Outstanding += *role.AgreedFee - paid
		}
	}

	result := &EarningsSummary{Gigs: gigs, Totals: make([]CurrencyTotal, 0, len(totals))}
	for _, t := range totals {
		result.Totals = append(result.Totals, *t)
	}
	return result, nil
}

// PayoutSummary is the owner-side view: what each gig still owes its roles.
type PayoutSummary struct {
	Totals []CurrencyTotal `json:"totals"`
	Gigs   []EarningsGig   `json:"gigs"`
}

// Payouts reports outstanding fees across gigs the actor owns.
func (s *EarningsService) Payouts(actor Actor, req *EarningsRequest) (*PayoutSummary, error) {
	query := s.db.Preload("Gig").
		Joins("JOIN gigs ON gigs.id = gig_roles.gig_id AND gigs.deleted_at IS NULL").
		Joins("JOIN projects ON projects.id = gigs.project_id AND projects.deleted_at IS NULL").
		Where("projects.owner_id = ?", actor.UserID).
		Where("gig_roles.agreed_fee IS NOT NULL").
		Where("gigs.status <> ?", models.GigCancelled)

	if req.From != "" {
		query = query.Where("gigs.date >= ?", req.From)
	}
	if req.To != "" {
		query = query.Where("gigs.date <= ?", req.To)
	}

	var roles []models.GigRole
	if err := query.Order("gigs.date DESC").Find(&roles).Error; err != nil {
		return nil, err
	}

	totals := map[string]*CurrencyTotal{}
	now := time.Now()
	gigs := make([]EarningsGig, 0, len(roles))

	for i := range roles {
		role := &roles[i]
		gig := role.Gig
		if gig == nil || role.AgreedFee == nil {
			continue
		}

		country := s.roles.ownerCountry(gig)
		status := s.lifecycle.EffectivePaymentStatus(role, gig, country, now)

		gigs = append(gigs, EarningsGig{
			GigID:         gig.ID,
			GigTitle:      gig.Title,
			Date:          gig.Date,
			RoleName:      role.RoleName,
			AgreedFee:     role.AgreedFee,
			Currency:      role.Currency,
			PaidAmount:    role.PaidAmount,
			PaymentStatus: status,
		})

		total, ok := totals[role.Currency]
		if !ok {
			total = &CurrencyTotal{Currency: role.Currency}
			totals[role.Currency] = total
		}
		paid := 0.0
		if role.PaidAmount != nil {
			paid = *role.PaidAmount
		}
		switch status {
		case models.PaymentPaid:
			total.Paid += *role.AgreedFee
		case models.PaymentOverdue:
			total.Paid += paid
			total.Overdue += *role.AgreedFee - paid
		default:
			total.Paid += paid
			total.Outstanding += *role.AgreedFee - paid
		}
	}

	result := &PayoutSummary{Gigs: gigs, Totals: make([]CurrencyTotal, 0, len(totals))}
	for _, t := range totals {
		result.Totals = append(result.Totals, *t)
	}
	return result, nil
}
