package service

import (
	"context"
	"fmt"

	"courtbook/internal/domain"
	"courtbook/internal/events"
	"courtbook/internal/models"
)

type CancelRequest struct {
	Reason         string `json:"reason"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// Cancel cancels a reservation that has not started and returns the refund
// owed under the cancellation policy. Cancelling twice is a no-op with no
// refund.
func (s *ReservationService) Cancel(ctx context.Context, actor models.Principal, id string, req CancelRequest) (*models.CancelResult, error) {
	now := s.clock.Now().UTC()
	var (
		result *models.CancelResult
		prior  models.ReservationState
		noop   bool
	)
	err := s.store.InTx(ctx, func(tx domain.Store) error {
		r, err := tx.GetReservation(ctx, id)
		if err != nil {
			return err
		}
		prior = r.State

		if r.State == models.StateCancelled {
			noop = true
			result = &models.CancelResult{
				Reservation: r,
				Refund:      models.RefundDirective{Currency: r.Currency, Type: models.RefundNone},
			}
			return nil
		}
		if !actor.CanActOn(r.UserID) {
			return domain.ErrNotOwner
		}
		if !r.State.Blocking() {
			return fmt.Errorf("%w: reservation is %s", domain.ErrNotCancellable, r.State)
		}

		venue, err := tx.GetVenue(ctx, r.VenueID)
		if err != nil {
			return err
		}
		loc, err := venue.Location()
		if err != nil {
			return fmt.Errorf("venue %s: %w", venue.ID, err)
		}
		startsAt, err := r.StartsAt(loc)
		if err != nil {
			return err
		}
		if !startsAt.After(now) {
			return fmt.Errorf("%w: slot already started", domain.ErrNotCancellable)
		}

		refund := s.refundFor(r, startsAt.Sub(now).Hours())

		r.State = models.StateCancelled
		r.HoldExpiry = nil
		r.CancelReason = req.Reason
		if req.IdempotencyKey != "" {
			r.CancelIdempotencyKey = req.IdempotencyKey
		}
		r.UpdatedAt = now
		if err := tx.UpdateReservation(ctx, r); err != nil {
			return err
		}
		if err := appendHistory(ctx, tx, r.ID, prior, models.StateCancelled, actor.UserID, req.Reason, now); err != nil {
			return err
		}
		result = &models.CancelResult{Reservation: r, Refund: refund}
		return nil
	})
	if err != nil {
		s.observeFailure(err)
		return nil, err
	}
	if noop {
		return result, nil
	}

	r := result.Reservation
	s.logger.Info().
		Str("reservation_id", r.ID).
		Str("from", string(prior)).
		Str("refund_type", string(result.Refund.Type)).
		Int64("refund_amount", result.Refund.Amount).
		Msg("Reservation cancelled")
	refund := result.Refund
	s.recordTransition(events.EventReservationCancelled, r, prior, actor.UserID, req.Reason, func(p *events.ReservationEventPayload) {
		p.Refund = refund
	})
	return result, nil
}

// refundFor applies the cancellation policy: a full refund at or beyond the
// threshold, otherwise the configured percentage of the total.
func (s *ReservationService) refundFor(r *models.Reservation, hoursUntilStart float64) models.RefundDirective {
	if hoursUntilStart >= s.policy.FullRefundThreshold.Hours() {
		return models.RefundDirective{Amount: r.Total, Currency: r.Currency, Type: models.RefundTotal}
	}

	amount := r.Total * int64(s.policy.PartialRefundPercent) / 100
	if amount <= 0 {
		return models.RefundDirective{Amount: 0, Currency: r.Currency, Type: models.RefundNone}
	}
	return models.RefundDirective{Amount: amount, Currency: r.Currency, Type: models.RefundPartial}
}
