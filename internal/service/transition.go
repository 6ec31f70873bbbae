package service

import (
	"context"
	"fmt"

	"courtbook/internal/domain"
	"courtbook/internal/events"
	"courtbook/internal/models"
)

// Transition applies a staff-driven state change that has no dedicated
// operation: hold -> pending while payment is underway, and
// confirmed -> no_show once the slot has started.
func (s *ReservationService) Transition(ctx context.Context, actor models.Principal, id string, to models.ReservationState, comment string) (*models.Reservation, error) {
	if !actor.Privileged() {
		return nil, domain.ErrStaffOnly
	}
	if !genericTargets[to] {
		return nil, fmt.Errorf("%w: %q has a dedicated operation or is not a valid target", domain.ErrValidation, to)
	}

	now := s.clock.Now().UTC()
	var (
		r     *models.Reservation
		prior models.ReservationState
	)
	err := s.store.InTx(ctx, func(tx domain.Store) error {
		var err error
		r, err = tx.GetReservation(ctx, id)
		if err != nil {
			return err
		}
		prior = r.State
		if !CanTransition(prior, to) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, prior, to)
		}

		switch to {
		case models.StatePending:
			if r.HoldExpired(now) {
				return domain.ErrHoldExpired
			}
			r.HoldExpiry = nil
		case models.StateNoShow:
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
			if startsAt.After(now) {
				return domain.ErrSlotNotStarted
			}
		}

		r.State = to
		r.UpdatedAt = now
		if err := tx.UpdateReservation(ctx, r); err != nil {
			return err
		}
		return appendHistory(ctx, tx, r.ID, prior, to, actor.UserID, comment, now)
	})
	if err != nil {
		s.observeFailure(err)
		return nil, err
	}

	s.logger.Info().Str("reservation_id", r.ID).Str("from", string(prior)).Str("to", string(to)).Msg("Reservation transitioned")
	s.recordTransition(events.EventReservationTransitioned, r, prior, actor.UserID, comment, nil)
	return r, nil
}
