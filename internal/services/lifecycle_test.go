package services

import (
	"errors"
	"testing"
	"time"

	"github.com/mhalvorsen/gigbook/backend/internal/models"
)

func TestInvitationTransitionTable(t *testing.T) {
	cases := []struct {
		from    models.InvitationStatus
		to      models.InvitationStatus
		allowed bool
	}{
		{models.InvitationUnfilled, models.InvitationPending, true},
		{models.InvitationUnfilled, models.InvitationInvited, true},
		{models.InvitationUnfilled, models.InvitationAccepted, false},
		{models.InvitationPending, models.InvitationInvited, true},
		{models.InvitationPending, models.InvitationAccepted, true},
		{models.InvitationPending, models.InvitationDeclined, false},
		{models.InvitationInvited, models.InvitationAccepted, true},
		{models.InvitationInvited, models.InvitationTentative, true},
		{models.InvitationInvited, models.InvitationDeclined, true},
		{models.InvitationInvited, models.InvitationExpired, true},
		{models.InvitationInvited, models.InvitationUnfilled, false},
		{models.InvitationTentative, models.InvitationAccepted, true},
		{models.InvitationTentative, models.InvitationDeclined, true},
		{models.InvitationTentative, models.InvitationExpired, false},
		{models.InvitationDeclined, models.InvitationPending, true},
		{models.InvitationDeclined, models.InvitationAccepted, false},
		{models.InvitationExpired, models.InvitationPending, true},
		{models.InvitationAccepted, models.InvitationDeclined, false},
		{models.InvitationAccepted, models.InvitationPending, false},
	}

	for _, c := range cases {
		if got := invitationAllowed(c.from, c.to); got != c.allowed {
			t.Errorf("invitation %s -> %s: allowed = %v, expected %v", c.from, c.to, got, c.allowed)
		}
	}
}

func TestPaymentTransitionTable(t *testing.T) {
	cases := []struct {
		from    models.PaymentStatus
		to      models.PaymentStatus
		allowed bool
	}{
		{models.PaymentPending, models.PaymentPartial, true},
		{models.PaymentPending, models.PaymentPaid, true},
		{models.PaymentPartial, models.PaymentPaid, true},
		{models.PaymentPartial, models.PaymentPending, false},
		{models.PaymentPaid, models.PaymentPending, false},
		{models.PaymentPaid, models.PaymentPartial, false},
	}

	for _, c := range cases {
		if got := paymentAllowed(c.from, c.to); got != c.allowed {
			t.Errorf("payment %s -> %s: allowed = %v, expected %v", c.from, c.to, got, c.allowed)
		}
	}
}

func TestApplyTransition_OwnerInvitesAndHistory(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	project := createTestProject(t, db, owner.ID)
	gig := createTestGig(t, db, project.ID, time.Now().AddDate(0, 1, 0))
	role := createTestRole(t, db, gig.ID, nil)

	svc := newTestLifecycle(t, db)
	actor := Actor{UserID: owner.ID}

	updated, err := svc.ApplyTransition(actor, role.ID, &TransitionRequest{
		Axis:      models.AxisInvitation,
		NewStatus: string(models.InvitationPending),
		Note:      "asked Sam",
	})
	if err != nil {
		t.Fatalf("ApplyTransition failed: %v", err)
	}
	if updated.InvitationState != models.InvitationPending {
		t.Errorf("invitation status = %s, expected pending", updated.InvitationState)
	}
	if updated.StatusChangedBy == nil || *updated.StatusChangedBy != owner.ID {
		t.Errorf("StatusChangedBy not stamped with actor")
	}

	var history []models.GigRoleStatusHistory
	if err := db.Where("gig_role_id = ?", role.ID).Find(&history).Error; err != nil {
		t.Fatalf("failed to read history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history rows = %d, expected 1", len(history))
	}
	if history[0].OldStatus != "unfilled" || history[0].NewStatus != "pending" {
		t.Errorf("history = %s -> %s, expected unfilled -> pending", history[0].OldStatus, history[0].NewStatus)
	}
	if history[0].Note != "asked Sam" {
		t.Errorf("history note = %q", history[0].Note)
	}
	if history[0].Reversal {
		t.Error("history should not be flagged as reversal")
	}
}

func TestApplyTransition_InvalidTransitionRejected(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	project := createTestProject(t, db, owner.ID)
	gig := createTestGig(t, db, project.ID, time.Now().AddDate(0, 1, 0))
	role := createTestRole(t, db, gig.ID, func(r *models.GigRole) {
		r.InvitationState = models.InvitationAccepted
	})

	svc := newTestLifecycle(t, db)

	_, err := svc.ApplyTransition(Actor{UserID: owner.ID}, role.ID, &TransitionRequest{
		Axis:      models.AxisInvitation,
		NewStatus: string(models.InvitationDeclined),
	})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	// Nothing may be written when the transition is rejected.
	var count int64
	db.Model(&models.GigRoleStatusHistory{}).Where("gig_role_id = ?", role.ID).Count(&count)
	if count != 0 {
		t.Errorf("history rows = %d, expected 0", count)
	}
	var fresh models.GigRole
	db.First(&fresh, role.ID)
	if fresh.InvitationState != models.InvitationAccepted {
		t.Errorf("invitation status changed to %s on rejected transition", fresh.InvitationState)
	}
}

func TestApplyTransition_UnknownStatusAndAxis(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	project := createTestProject(t, db, owner.ID)
	gig := createTestGig(t, db, project.ID, time.Now().AddDate(0, 1, 0))
	role := createTestRole(t, db, gig.ID, nil)

	svc := newTestLifecycle(t, db)
	actor := Actor{UserID: owner.ID}

	_, err := svc.ApplyTransition(actor, role.ID, &TransitionRequest{
		Axis:      models.AxisInvitation,
		NewStatus: "overdue",
	})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("unknown invitation status: expected ErrValidation, got %v", err)
	}

	_, err = svc.ApplyTransition(actor, role.ID, &TransitionRequest{
		Axis:      "mood",
		NewStatus: "happy",
	})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("unknown axis: expected ErrValidation, got %v", err)
	}
}

func TestApplyTransition_MusicianAuthorization(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	musician := createTestUser(t, db, "musician@example.com")
	stranger := createTestUser(t, db, "stranger@example.com")
	project := createTestProject(t, db, owner.ID)
	gig := createTestGig(t, db, project.ID, time.Now().AddDate(0, 1, 0))
	role := createTestRole(t, db, gig.ID, func(r *models.GigRole) {
		r.InvitationState = models.InvitationInvited
		r.SetMusician(musician.ID, musician.Name)
	})

	svc := newTestLifecycle(t, db)

	// A stranger may not respond.
	_, err := svc.ApplyTransition(Actor{UserID: stranger.ID}, role.ID, &TransitionRequest{
		Axis:      models.AxisInvitation,
		NewStatus: string(models.InvitationAccepted),
	})
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("stranger response: expected ErrForbidden, got %v", err)
	}

	// The assigned musician may not move the role to a non-response status.
	_, err = svc.ApplyTransition(Actor{UserID: musician.ID}, role.ID, &TransitionRequest{
		Axis:      models.AxisInvitation,
		NewStatus: string(models.InvitationExpired),
	})
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("musician expiry: expected ErrForbidden, got %v", err)
	}

	// The assigned musician may accept.
	updated, err := svc.ApplyTransition(Actor{UserID: musician.ID}, role.ID, &TransitionRequest{
		Axis:      models.AxisInvitation,
		NewStatus: string(models.InvitationAccepted),
	})
	if err != nil {
		t.Fatalf("musician accept failed: %v", err)
	}
	if updated.InvitationState != models.InvitationAccepted {
		t.Errorf("invitation status = %s, expected accepted", updated.InvitationState)
	}
}

func TestApplyTransition_PaymentOwnerOnly(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	musician := createTestUser(t, db, "musician@example.com")
	project := createTestProject(t, db, owner.ID)
	gig := createTestGig(t, db, project.ID, time.Now().AddDate(0, 1, 0))
	role := createTestRole(t, db, gig.ID, func(r *models.GigRole) {
		r.SetMusician(musician.ID, musician.Name)
	})

	svc := newTestLifecycle(t, db)

	_, err := svc.ApplyTransition(Actor{UserID: musician.ID}, role.ID, &TransitionRequest{
		Axis:      models.AxisPayment,
		NewStatus: string(models.PaymentPaid),
	})
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("musician payment change: expected ErrForbidden, got %v", err)
	}

	amount := 150.0
	updated, err := svc.ApplyTransition(Actor{UserID: owner.ID}, role.ID, &TransitionRequest{
		Axis:       models.AxisPayment,
		NewStatus:  string(models.PaymentPaid),
		PaidAmount: &amount,
	})
	if err != nil {
		t.Fatalf("owner payment change failed: %v", err)
	}
	if updated.PaymentState != models.PaymentPaid {
		t.Errorf("payment status = %s, expected paid", updated.PaymentState)
	}
	if updated.PaidAmount == nil || *updated.PaidAmount != 150.0 {
		t.Errorf("paid amount not recorded")
	}
	if updated.PaidAt == nil {
		t.Error("paid_at not stamped")
	}
}

func TestApplyTransition_SystemOnlyExpires(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	project := createTestProject(t, db, owner.ID)
	gig := createTestGig(t, db, project.ID, time.Now().AddDate(0, 1, 0))
	role := createTestRole(t, db, gig.ID, func(r *models.GigRole) {
		r.InvitationState = models.InvitationInvited
	})

	svc := newTestLifecycle(t, db)

	_, err := svc.ApplyTransition(System, role.ID, &TransitionRequest{
		Axis:      models.AxisInvitation,
		NewStatus: string(models.InvitationAccepted),
	})
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("system accept: expected ErrForbidden, got %v", err)
	}

	updated, err := svc.ApplyTransition(System, role.ID, &TransitionRequest{
		Axis:      models.AxisInvitation,
		NewStatus: string(models.InvitationExpired),
	})
	if err != nil {
		t.Fatalf("system expire failed: %v", err)
	}
	if updated.InvitationState != models.InvitationExpired {
		t.Errorf("invitation status = %s, expected expired", updated.InvitationState)
	}
	if updated.StatusChangedBy != nil {
		t.Error("system changes must not stamp a user id")
	}

	var history models.GigRoleStatusHistory
	db.Where("gig_role_id = ?", role.ID).First(&history)
	if history.ChangedBy != nil {
		t.Error("system history entry must have null changed_by")
	}
}

func TestReversePayment(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	musician := createTestUser(t, db, "musician@example.com")
	project := createTestProject(t, db, owner.ID)
	gig := createTestGig(t, db, project.ID, time.Now().AddDate(0, 1, 0))

	amount := 200.0
	now := time.Now()
	role := createTestRole(t, db, gig.ID, func(r *models.GigRole) {
		r.SetMusician(musician.ID, musician.Name)
		r.PaymentState = models.PaymentPaid
		r.PaidAmount = &amount
		r.PaidAt = &now
	})

	svc := newTestLifecycle(t, db)

	// Only the owner may reverse.
	if _, err := svc.ReversePayment(Actor{UserID: musician.ID}, role.ID, ""); !errors.Is(err, ErrForbidden) {
		t.Errorf("musician reversal: expected ErrForbidden, got %v", err)
	}

	updated, err := svc.ReversePayment(Actor{UserID: owner.ID}, role.ID, "paid the wrong person")
	if err != nil {
		t.Fatalf("ReversePayment failed: %v", err)
	}
	if updated.PaymentState != models.PaymentPending {
		t.Errorf("payment status = %s, expected pending", updated.PaymentState)
	}
	if updated.PaidAmount != nil || updated.PaidAt != nil {
		t.Error("paid amount and timestamp must be cleared")
	}

	var history models.GigRoleStatusHistory
	if err := db.Where("gig_role_id = ? AND axis = ?", role.ID, models.AxisPayment).First(&history).Error; err != nil {
		t.Fatalf("failed to read reversal history: %v", err)
	}
	if !history.Reversal {
		t.Error("reversal history entry not flagged")
	}
	if history.OldStatus != "paid" || history.NewStatus != "pending" {
		t.Errorf("reversal history = %s -> %s", history.OldStatus, history.NewStatus)
	}

	// A second reversal has nothing to reverse.
	if _, err := svc.ReversePayment(Actor{UserID: owner.ID}, role.ID, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("double reversal: expected ErrInvalidTransition, got %v", err)
	}
}

func TestEffectivePaymentStatus(t *testing.T) {
	db := newTestDB(t)
	svc := newTestLifecycle(t, db)

	gigDate := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC) // a Monday
	gig := &models.Gig{Date: gigDate, Status: models.GigConfirmed}
	role := &models.GigRole{PaymentState: models.PaymentPending}

	// Within the grace window the stored status stands.
	soon := gigDate.AddDate(0, 0, 3)
	if got := svc.EffectivePaymentStatus(role, gig, "US", soon); got != models.PaymentPending {
		t.Errorf("inside grace window: got %s, expected pending", got)
	}

	// Far past the window the fee is overdue.
	late := gigDate.AddDate(0, 2, 0)
	if got := svc.EffectivePaymentStatus(role, gig, "US", late); got != models.PaymentOverdue {
		t.Errorf("past grace window: got %s, expected overdue", got)
	}

	// Paid is paid, no matter the date.
	paid := &models.GigRole{PaymentState: models.PaymentPaid}
	if got := svc.EffectivePaymentStatus(paid, gig, "US", late); got != models.PaymentPaid {
		t.Errorf("paid role: got %s, expected paid", got)
	}

	// Cancelled gigs never go overdue.
	cancelled := &models.Gig{Date: gigDate, Status: models.GigCancelled}
	if got := svc.EffectivePaymentStatus(role, cancelled, "US", late); got != models.PaymentPending {
		t.Errorf("cancelled gig: got %s, expected pending", got)
	}
}

func TestHistory_AccessControl(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	musician := createTestUser(t, db, "musician@example.com")
	stranger := createTestUser(t, db, "stranger@example.com")
	project := createTestProject(t, db, owner.ID)
	gig := createTestGig(t, db, project.ID, time.Now().AddDate(0, 1, 0))
	role := createTestRole(t, db, gig.ID, func(r *models.GigRole) {
		r.SetMusician(musician.ID, musician.Name)
	})

	svc := newTestLifecycle(t, db)

	if _, err := svc.History(Actor{UserID: stranger.ID}, role.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("stranger history read: expected ErrForbidden, got %v", err)
	}
	if _, err := svc.History(Actor{UserID: owner.ID}, role.ID); err != nil {
		t.Errorf("owner history read failed: %v", err)
	}
	if _, err := svc.History(Actor{UserID: musician.ID}, role.ID); err != nil {
		t.Errorf("musician history read failed: %v", err)
	}
}

func TestApplyTransition_StatusStampMatchesHistory(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	project := createTestProject(t, db, owner.ID)
	gig := createTestGig(t, db, project.ID, time.Now().AddDate(0, 1, 0))

	amount := 300.0
	role := createTestRole(t, db, gig.ID, func(r *models.GigRole) {
		r.AgreedFee = &amount
	})

	svc := newTestLifecycle(t, db)
	actor := Actor{UserID: owner.ID}

	updated, err := svc.ApplyTransition(actor, role.ID, &TransitionRequest{
		Axis:       models.AxisPayment,
		NewStatus:  string(models.PaymentPaid),
		PaidAmount: &amount,
	})
	if err != nil {
		t.Fatalf("ApplyTransition failed: %v", err)
	}

	var newest models.GigRoleStatusHistory
	if err := db.Where("gig_role_id = ?", role.ID).Order("id DESC").First(&newest).Error; err != nil {
		t.Fatalf("failed to read history: %v", err)
	}
	if updated.StatusChangedAt == nil {
		t.Fatal("status_changed_at not stamped")
	}
	if !updated.StatusChangedAt.Equal(newest.ChangedAt) {
		t.Errorf("status_changed_at = %v, latest history changed_at = %v", updated.StatusChangedAt, newest.ChangedAt)
	}

	// The reversal path stamps both sides with the same clock too.
	reversed, err := svc.ReversePayment(actor, role.ID, "bank error")
	if err != nil {
		t.Fatalf("ReversePayment failed: %v", err)
	}
	newest = models.GigRoleStatusHistory{}
	if err := db.Where("gig_role_id = ?", role.ID).Order("id DESC").First(&newest).Error; err != nil {
		t.Fatalf("failed to read history: %v", err)
	}
	if reversed.StatusChangedAt == nil {
		t.Fatal("status_changed_at not stamped after reversal")
	}
	if !reversed.StatusChangedAt.Equal(newest.ChangedAt) {
		t.Errorf("after reversal status_changed_at = %v, latest history changed_at = %v", reversed.StatusChangedAt, newest.ChangedAt)
	}
}
