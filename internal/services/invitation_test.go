package services

import (
	"errors"
	"testing"
	"time"

	"github.com/mhalvorsen/gigbook/backend/internal/models"
	"gorm.io/gorm"
)

func newTestInvitations(t *testing.T, db *gorm.DB) (*InvitationService, *LifecycleService) {
	t.Helper()
	dispatcher := NewDispatcherService(db, NewSyncQueue())
	lifecycle := NewLifecycleService(db, dispatcher)
	return NewInvitationService(db, lifecycle, dispatcher), lifecycle
}

func TestIssueInvitation(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	project := createTestProject(t, db, owner.ID)
	gig := createTestGig(t, db, project.ID, time.Now().AddDate(0, 1, 0))
	role := createTestRole(t, db, gig.ID, nil)

	svc, _ := newTestInvitations(t, db)

	inv, inviteURL, err := svc.Issue(Actor{UserID: owner.ID}, role.ID, &IssueInvitationRequest{Email: "Sam@Example.com"})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if inv.Email != "sam@example.com" {
		t.Errorf("email not normalized: %q", inv.Email)
	}
	if len(inv.Token) != 64 {
		t.Errorf("token length = %d, expected 64", len(inv.Token))
	}
	if inviteURL == "" {
		t.Error("invite URL is empty")
	}
	if inv.Status != models.InviteTokenPending {
		t.Errorf("token status = %s, expected pending", inv.Status)
	}

	// Issuing moves the role to invited.
	var fresh models.GigRole
	db.First(&fresh, role.ID)
	if fresh.InvitationState != models.InvitationInvited {
		t.Errorf("role invitation status = %s, expected invited", fresh.InvitationState)
	}
}

func TestIssueInvitation_OwnerOnly(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	other := createTestUser(t, db, "other@example.com")
	project := createTestProject(t, db, owner.ID)
	gig := createTestGig(t, db, project.ID, time.Now().AddDate(0, 1, 0))
	role := createTestRole(t, db, gig.ID, nil)

	svc, _ := newTestInvitations(t, db)

	_, _, err := svc.Issue(Actor{UserID: other.ID}, role.ID, &IssueInvitationRequest{Email: "sam@example.com"})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestIssueInvitation_AcceptedRoleRejected(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	project := createTestProject(t, db, owner.ID)
	gig := createTestGig(t, db, project.ID, time.Now().AddDate(0, 1, 0))
	role := createTestRole(t, db, gig.ID, func(r *models.GigRole) {
		r.InvitationState = models.InvitationAccepted
	})

	svc, _ := newTestInvitations(t, db)

	_, _, err := svc.Issue(Actor{UserID: owner.ID}, role.ID, &IssueInvitationRequest{Email: "sam@example.com"})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestIssueInvitation_SupersedesPendingToken(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	project := createTestProject(t, db, owner.ID)
	gig := createTestGig(t, db, project.ID, time.Now().AddDate(0, 1, 0))
	role := createTestRole(t, db, gig.ID, nil)

	svc, _ := newTestInvitations(t, db)
	actor := Actor{UserID: owner.ID}

	first, _, err := svc.Issue(actor, role.ID, &IssueInvitationRequest{Email: "first@example.com"})
	if err != nil {
		t.Fatalf("first Issue failed: %v", err)
	}
	second, _, err := svc.Issue(actor, role.ID, &IssueInvitationRequest{Email: "second@example.com"})
	if err != nil {
		t.Fatalf("second Issue failed: %v", err)
	}

	var old models.GigInvitation
	db.First(&old, first.ID)
	if old.Status != models.InviteTokenRevoked {
		t.Errorf("first token status = %s, expected revoked", old.Status)
	}

	var current models.GigInvitation
	db.First(&current, second.ID)
	if current.Status != models.InviteTokenPending {
		t.Errorf("second token status = %s, expected pending", current.Status)
	}
}

func TestRedeemInvitation_Accept(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	musician := createTestUser(t, db, "sam@example.com")
	project := createTestProject(t, db, owner.ID)
	gig := createTestGig(t, db, project.ID, time.Now().AddDate(0, 1, 0))
	role := createTestRole(t, db, gig.ID, nil)

	svc, _ := newTestInvitations(t, db)

	inv, _, err := svc.Issue(Actor{UserID: owner.ID}, role.ID, &IssueInvitationRequest{Email: "sam@example.com"})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	updated, err := svc.Redeem(Actor{UserID: musician.ID}, inv.Token, &RedeemInvitationRequest{})
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}
	if updated.InvitationState != models.InvitationAccepted {
		t.Errorf("role status = %s, expected accepted", updated.InvitationState)
	}
	if updated.MusicianID == nil || *updated.MusicianID != musician.ID {
		t.Error("musician not assigned to role")
	}

	var token models.GigInvitation
	db.First(&token, inv.ID)
	if token.Status != models.InviteTokenAccepted {
		t.Errorf("token status = %s, expected accepted", token.Status)
	}
	if token.AcceptedAt == nil {
		t.Error("accepted_at not stamped")
	}

	// A consumed token cannot be redeemed again.
	if _, err := svc.Redeem(Actor{UserID: musician.ID}, inv.Token, nil); !errors.Is(err, ErrTokenAlreadyUsed) {
		t.Errorf("second redeem: expected ErrTokenAlreadyUsed, got %v", err)
	}
}

func TestRedeemInvitation_TentativeKeepsToken(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	musician := createTestUser(t, db, "sam@example.com")
	project := createTestProject(t, db, owner.ID)
	gig := createTestGig(t, db, project.ID, time.Now().AddDate(0, 1, 0))
	role := createTestRole(t, db, gig.ID, nil)

	svc, _ := newTestInvitations(t, db)

	inv, _, err := svc.Issue(Actor{UserID: owner.ID}, role.ID, &IssueInvitationRequest{Email: "sam@example.com"})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	updated, err := svc.Redeem(Actor{UserID: musician.ID}, inv.Token, &RedeemInvitationRequest{Response: "tentative"})
	if err != nil {
		t.Fatalf("tentative Redeem failed: %v", err)
	}
	if updated.InvitationState != models.InvitationTentative {
		t.Errorf("role status = %s, expected tentative", updated.InvitationState)
	}

	// The token stays pending so the musician can still firm up.
	var token models.GigInvitation
	db.First(&token, inv.ID)
	if token.Status != models.InviteTokenPending {
		t.Errorf("token status = %s, expected pending", token.Status)
	}

	final, err := svc.Redeem(Actor{UserID: musician.ID}, inv.Token, &RedeemInvitationRequest{Response: "accepted"})
	if err != nil {
		t.Fatalf("follow-up accept failed: %v", err)
	}
	if final.InvitationState != models.InvitationAccepted {
		t.Errorf("role status = %s, expected accepted", final.InvitationState)
	}
}

func TestRedeemInvitation_DeclineLeavesRoleUnassigned(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	musician := createTestUser(t, db, "sam@example.com")
	project := createTestProject(t, db, owner.ID)
	gig := createTestGig(t, db, project.ID, time.Now().AddDate(0, 1, 0))
	role := createTestRole(t, db, gig.ID, nil)

	svc, _ := newTestInvitations(t, db)

	inv, _, err := svc.Issue(Actor{UserID: owner.ID}, role.ID, &IssueInvitationRequest{Email: "sam@example.com"})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	updated, err := svc.Redeem(Actor{UserID: musician.ID}, inv.Token, &RedeemInvitationRequest{Response: "declined"})
	if err != nil {
		t.Fatalf("decline Redeem failed: %v", err)
	}
	if updated.InvitationState != models.InvitationDeclined {
		t.Errorf("role status = %s, expected declined", updated.InvitationState)
	}
	if updated.MusicianID != nil {
		t.Error("declined role must stay unassigned")
	}

	var token models.GigInvitation
	db.First(&token, inv.ID)
	if token.Status != models.InviteTokenRevoked {
		t.Errorf("token status = %s, expected revoked", token.Status)
	}
}

func TestRedeemInvitation_RequiresUser(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestInvitations(t, db)

	if _, err := svc.Redeem(System, "whatever", nil); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("system redeem: expected ErrUnauthenticated, got %v", err)
	}
}

func TestRedeemInvitation_ExpiredToken(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	musician := createTestUser(t, db, "sam@example.com")
	project := createTestProject(t, db, owner.ID)
	gig := createTestGig(t, db, project.ID, time.Now().AddDate(0, 1, 0))
	role := createTestRole(t, db, gig.ID, nil)

	svc, _ := newTestInvitations(t, db)

	inv, _, err := svc.Issue(Actor{UserID: owner.ID}, role.ID, &IssueInvitationRequest{Email: "sam@example.com"})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	// Push the deadline into the past.
	db.Model(&models.GigInvitation{}).Where("id = ?", inv.ID).
		Update("expires_at", time.Now().Add(-time.Hour))

	if _, err := svc.Redeem(Actor{UserID: musician.ID}, inv.Token, nil); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}

	// Lazy expiry marks the token and expires the role offer.
	var token models.GigInvitation
	db.First(&token, inv.ID)
	if token.Status != models.InviteTokenExpired {
		t.Errorf("token status = %s, expected expired", token.Status)
	}
	var fresh models.GigRole
	db.First(&fresh, role.ID)
	if fresh.InvitationState != models.InvitationExpired {
		t.Errorf("role status = %s, expected expired", fresh.InvitationState)
	}
}

func TestPeek(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	project := createTestProject(t, db, owner.ID)
	gig := createTestGig(t, db, project.ID, time.Now().AddDate(0, 1, 0))
	role := createTestRole(t, db, gig.ID, nil)

	svc, _ := newTestInvitations(t, db)

	inv, _, err := svc.Issue(Actor{UserID: owner.ID}, role.ID, &IssueInvitationRequest{Email: "sam@example.com"})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	peeked, err := svc.Peek(inv.Token)
	if err != nil {
		t.Fatalf("Peek failed: %v", err)
	}
	if peeked.GigRole == nil || peeked.GigRole.Gig == nil {
		t.Fatal("Peek must preload the role and gig")
	}
	if peeked.GigRole.Gig.Title != "Test Gig" {
		t.Errorf("peeked gig title = %q", peeked.GigRole.Gig.Title)
	}

	if _, err := svc.Peek("no-such-token"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown token: expected ErrNotFound, got %v", err)
	}
}

func TestRevokeInvitation(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	other := createTestUser(t, db, "other@example.com")
	project := createTestProject(t, db, owner.ID)
	gig := createTestGig(t, db, project.ID, time.Now().AddDate(0, 1, 0))
	role := createTestRole(t, db, gig.ID, nil)

	svc, _ := newTestInvitations(t, db)

	inv, _, err := svc.Issue(Actor{UserID: owner.ID}, role.ID, &IssueInvitationRequest{Email: "sam@example.com"})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if err := svc.Revoke(Actor{UserID: other.ID}, inv.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("non-owner revoke: expected ErrForbidden, got %v", err)
	}

	if err := svc.Revoke(Actor{UserID: owner.ID}, inv.ID); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}

	var token models.GigInvitation
	db.First(&token, inv.ID)
	if token.Status != models.InviteTokenRevoked {
		t.Errorf("token status = %s, expected revoked", token.Status)
	}

	// Revoking again reports the token as no longer pending.
	if err := svc.Revoke(Actor{UserID: owner.ID}, inv.ID); !errors.Is(err, ErrTokenAlreadyUsed) {
		t.Errorf("double revoke: expected ErrTokenAlreadyUsed, got %v", err)
	}
}

func TestExpireStale(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	project := createTestProject(t, db, owner.ID)
	gig := createTestGig(t, db, project.ID, time.Now().AddDate(0, 1, 0))
	role := createTestRole(t, db, gig.ID, nil)

	svc, _ := newTestInvitations(t, db)

	inv, _, err := svc.Issue(Actor{UserID: owner.ID}, role.ID, &IssueInvitationRequest{Email: "sam@example.com"})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	db.Model(&models.GigInvitation{}).Where("id = ?", inv.ID).
		Update("expires_at", time.Now().Add(-time.Hour))

	swept, err := svc.ExpireStale()
	if err != nil {
		t.Fatalf("ExpireStale failed: %v", err)
	}
	if swept != 1 {
		t.Errorf("swept = %d, expected 1", swept)
	}

	var fresh models.GigRole
	db.First(&fresh, role.ID)
	if fresh.InvitationState != models.InvitationExpired {
		t.Errorf("role status = %s, expected expired", fresh.InvitationState)
	}

	// The system sweep leaves a history entry with no user attribution.
	var history models.GigRoleStatusHistory
	if err := db.Where("gig_role_id = ? AND new_status = ?", role.ID, "expired").First(&history).Error; err != nil {
		t.Fatalf("expiry history missing: %v", err)
	}
	if history.ChangedBy != nil {
		t.Error("sweep history entry must have null changed_by")
	}
}

func TestIssueInvitation_ReoffersDeclinedRole(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	project := createTestProject(t, db, owner.ID)
	gig := createTestGig(t, db, project.ID, time.Now().AddDate(0, 1, 0))
	role := createTestRole(t, db, gig.ID, func(r *models.GigRole) {
		r.InvitationState = models.InvitationDeclined
	})

	svc, _ := newTestInvitations(t, db)

	inv, _, err := svc.Issue(Actor{UserID: owner.ID}, role.ID, &IssueInvitationRequest{Email: "next@example.com"})
	if err != nil {
		t.Fatalf("Issue on declined role failed: %v", err)
	}
	if inv.Status != models.InviteTokenPending {
		t.Errorf("token status = %s, expected pending", inv.Status)
	}

	var fresh models.GigRole
	db.First(&fresh, role.ID)
	if fresh.InvitationState != models.InvitationInvited {
		t.Errorf("role status = %s, expected invited", fresh.InvitationState)
	}

	// Both legs of the re-offer are recorded.
	var history []models.GigRoleStatusHistory
	db.Where("gig_role_id = ?", role.ID).Order("id").Find(&history)
	if len(history) != 2 {
		t.Fatalf("history rows = %d, expected 2", len(history))
	}
	if history[0].OldStatus != "declined" || history[0].NewStatus != "pending" {
		t.Errorf("first leg = %s -> %s, expected declined -> pending", history[0].OldStatus, history[0].NewStatus)
	}
	if history[1].OldStatus != "pending" || history[1].NewStatus != "invited" {
		t.Errorf("second leg = %s -> %s, expected pending -> invited", history[1].OldStatus, history[1].NewStatus)
	}
}

func TestIssueInvitation_ReoffersExpiredRole(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	project := createTestProject(t, db, owner.ID)
	gig := createTestGig(t, db, project.ID, time.Now().AddDate(0, 1, 0))
	role := createTestRole(t, db, gig.ID, func(r *models.GigRole) {
		r.InvitationState = models.InvitationExpired
	})

	svc, _ := newTestInvitations(t, db)

	if _, _, err := svc.Issue(Actor{UserID: owner.ID}, role.ID, &IssueInvitationRequest{Email: "again@example.com"}); err != nil {
		t.Fatalf("Issue on expired role failed: %v", err)
	}

	var fresh models.GigRole
	db.First(&fresh, role.ID)
	if fresh.InvitationState != models.InvitationInvited {
		t.Errorf("role status = %s, expected invited", fresh.InvitationState)
	}
}

func TestInvitation_FullOfferToPaymentFlow(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	musician := createTestUser(t, db, "sam@example.com")
	project := createTestProject(t, db, owner.ID)
	gig := createTestGig(t, db, project.ID, time.Now().AddDate(0, 1, 0))

	fee := 250.0
	role := createTestRole(t, db, gig.ID, func(r *models.GigRole) {
		r.AgreedFee = &fee
	})

	svc, lifecycle := newTestInvitations(t, db)
	ownerActor := Actor{UserID: owner.ID}
	musicianActor := Actor{UserID: musician.ID}

	inv, _, err := svc.Issue(ownerActor, role.ID, &IssueInvitationRequest{Email: "sam@example.com"})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	accepted, err := svc.Redeem(musicianActor, inv.Token, &RedeemInvitationRequest{})
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}
	if accepted.InvitationState != models.InvitationAccepted {
		t.Fatalf("role status = %s, expected accepted", accepted.InvitationState)
	}
	if accepted.MusicianID == nil || *accepted.MusicianID != musician.ID {
		t.Fatal("musician not assigned on acceptance")
	}

	// The owner hears about the acceptance.
	var ownerNotifs int64
	db.Model(&models.Notification{}).Where("user_id = ?", owner.ID).Count(&ownerNotifs)
	if ownerNotifs == 0 {
		t.Error("owner not notified of acceptance")
	}

	// The musician never touches the payment axis.
	_, err = lifecycle.ApplyTransition(musicianActor, role.ID, &TransitionRequest{
		Axis:      models.AxisPayment,
		NewStatus: string(models.PaymentPaid),
	})
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("musician payment: expected ErrForbidden, got %v", err)
	}

	paid, err := lifecycle.ApplyTransition(ownerActor, role.ID, &TransitionRequest{
		Axis:       models.AxisPayment,
		NewStatus:  string(models.PaymentPaid),
		PaidAmount: &fee,
	})
	if err != nil {
		t.Fatalf("owner payment failed: %v", err)
	}
	if paid.PaymentState != models.PaymentPaid || paid.PaidAt == nil {
		t.Error("payment not settled")
	}

	// Paid is terminal on the normal axis.
	_, err = lifecycle.ApplyTransition(ownerActor, role.ID, &TransitionRequest{
		Axis:      models.AxisPayment,
		NewStatus: string(models.PaymentPending),
	})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("paid -> pending: expected ErrInvalidTransition, got %v", err)
	}

	// The role stamp always matches the newest history entry.
	var newest models.GigRoleStatusHistory
	if err := db.Where("gig_role_id = ?", role.ID).Order("id DESC").First(&newest).Error; err != nil {
		t.Fatalf("failed to read history: %v", err)
	}
	if paid.StatusChangedAt == nil || !paid.StatusChangedAt.Equal(newest.ChangedAt) {
		t.Errorf("status_changed_at = %v, latest history changed_at = %v", paid.StatusChangedAt, newest.ChangedAt)
	}

	// Only the explicit reversal reopens payment.
	reversed, err := lifecycle.ReversePayment(ownerActor, role.ID, "paid twice")
	if err != nil {
		t.Fatalf("ReversePayment failed: %v", err)
	}
	if reversed.PaymentState != models.PaymentPending || reversed.PaidAmount != nil {
		t.Error("reversal did not reset payment")
	}

	// The consumed token stays consumed.
	if _, err := svc.Redeem(musicianActor, inv.Token, nil); !errors.Is(err, ErrTokenAlreadyUsed) {
		t.Errorf("reuse of consumed token: expected ErrTokenAlreadyUsed, got %v", err)
	}
}
