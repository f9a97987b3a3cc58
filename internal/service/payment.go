package service

import (
	"context"
	"strings"

	"hackhub/internal/model"
	"hackhub/internal/notify"
)

// VerifyPayment records the owner's decision on a team's payment. Re-deciding an
// already verified or rejected team overwrites the verifier fields; the audit
// trail keeps every decision. A rejection does not free the team's slot.
func (s *service) VerifyPayment(ctx context.Context, managerID, teamID int64, decision model.PaymentStatus, notes string) (*model.Team, error) {
	if decision != model.PaymentVerified && decision != model.PaymentRejected {
		return nil, fieldError("status", "must be verified or rejected")
	}

	ctx, cancel := s.storageCtx(ctx)
	defer cancel()

	t, e, err := s.ownedTeam(ctx, managerID, teamID)
	if err != nil {
		return nil, err
	}
	if t.PaymentStatus == model.PaymentNotRequired {
		return nil, &Error{Kind: KindValidation, Code: CodePaymentNotRequired, Message: "this event has no entry fee"}
	}

	upd := model.PaymentUpdate{
		Status:     decision,
		VerifiedBy: managerID,
		VerifiedAt: s.now(),
		Notes:      strings.TrimSpace(notes),
	}
	previous, err := s.repo.UpdatePaymentStatusTx(ctx, teamID, upd)
	if err != nil {
		s.log.Error().Err(err).Int64("team_id", teamID).Msg("failed to update payment status")
		return nil, fromRepo(err)
	}

	t.PaymentStatus = upd.Status
	t.VerifiedBy = &upd.VerifiedBy
	t.VerifiedAt = &upd.VerifiedAt
	t.VerificationNotes = upd.Notes

	s.log.Info().
		Int64("event_id", e.ID).
		Int64("team_id", teamID).
		Int64("verified_by", managerID).
		Str("previous", string(previous)).
		Str("status", string(decision)).
		Msg("payment status changed")

	kind := notify.KindPaymentVerified
	if decision == model.PaymentRejected {
		kind = notify.KindPaymentRejected
	}
	msg := teamMessage(kind, e, t)
	s.contact(ctx, &msg, e.ManagerID)
	s.notifier.Enqueue(msg)

	return t, nil
}

func (s *service) PaymentHistory(ctx context.Context, managerID, teamID int64) ([]model.PaymentAudit, error) {
	ctx, cancel := s.storageCtx(ctx)
	defer cancel()

	if _, _, err := s.ownedTeam(ctx, managerID, teamID); err != nil {
		return nil, err
	}
	audit, err := s.repo.ListPaymentAudit(ctx, teamID)
	if err != nil {
		return nil, fromRepo(err)
	}
	if audit == nil {
		audit = []model.PaymentAudit{}
	}
	return audit, nil
}
