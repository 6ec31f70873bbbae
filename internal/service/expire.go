package service

import (
	"context"

	"courtbook/internal/domain"
	"courtbook/internal/events"
	"courtbook/internal/metrics"
	"courtbook/internal/models"
)

// ExpireStaleHolds moves every hold whose expiry has passed to expired and
// frees its slot. Running it again with nothing stale changes nothing.
func (s *ReservationService) ExpireStaleHolds(ctx context.Context) (*models.ExpireResult, error) {
	now := s.clock.Now().UTC()
	var expired []*models.Reservation
	err := s.store.InTx(ctx, func(tx domain.Store) error {
		holds, err := tx.ListExpiredHolds(ctx, now)
		if err != nil {
			return err
		}
		for _, r := range holds {
			r.State = models.StateExpired
			r.Active = false
			r.HoldExpiry = nil
			r.UpdatedAt = now
			if err := tx.UpdateReservation(ctx, r); err != nil {
				return err
			}
			if err := appendHistory(ctx, tx, r.ID, models.StateHold, models.StateExpired, SystemActor, "hold expired", now); err != nil {
				return err
			}
		}
		expired = holds
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to expire stale holds")
		return nil, err
	}

	metrics.AddHoldsExpired(len(expired))
	for _, r := range expired {
		s.recordTransition(events.EventReservationExpired, r, models.StateHold, SystemActor, "", nil)
	}
	if len(expired) > 0 {
		s.logger.Info().Int("expired", len(expired)).Msg("Stale holds expired")
	}
	return &models.ExpireResult{Expired: len(expired), ExecutedAt: now}, nil
}
