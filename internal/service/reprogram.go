package service

import (
	"context"
	"fmt"

	"courtbook/internal/domain"
	"courtbook/internal/events"
	"courtbook/internal/models"
	"courtbook/internal/schedule"
	"courtbook/internal/tariff"

	"github.com/google/uuid"
)

type ReprogramRequest struct {
	Date    string         `json:"date"`
	Start   schedule.Clock `json:"start"`
	End     schedule.Clock `json:"end"`
	CourtID string         `json:"court_id,omitempty"` // defaults to the original court
}

// Reprogram moves a confirmed reservation to a new slot. The original is
// retired as reprogrammed and a confirmed successor is created in the same
// transaction; either both writes happen or neither does.
func (s *ReservationService) Reprogram(ctx context.Context, actor models.Principal, id string, req ReprogramRequest) (*models.ReprogramResult, error) {
	now := s.clock.Now().UTC()
	var result *models.ReprogramResult
	err := s.store.InTx(ctx, func(tx domain.Store) error {
		original, err := tx.GetReservation(ctx, id)
		if err != nil {
			return err
		}
		if original.State != models.StateConfirmed {
			return fmt.Errorf("%w: only confirmed reservations can be reprogrammed, got %s", domain.ErrInvalidState, original.State)
		}
		if !actor.CanActOn(original.UserID) {
			return domain.ErrNotOwner
		}

		courtID := courtOrDefault(req.CourtID, original.CourtID)
		venue, _, err := s.loadBookable(ctx, tx, original.VenueID, courtID)
		if err != nil {
			return err
		}

		loc, err := venue.Location()
		if err != nil {
			return fmt.Errorf("venue %s: %w", venue.ID, err)
		}
		startsAt, err := original.StartsAt(loc)
		if err != nil {
			return err
		}
		if !startsAt.After(now) {
			return fmt.Errorf("%w: slot already started", domain.ErrNotReprogrammable)
		}

		if err := s.checkSlot(ctx, tx, venue, courtID, req.Date, req.Start, req.End, original.ID, now); err != nil {
			return err
		}

		quote, err := s.tariffs.ResolveWith(ctx, tx, tariff.Query{
			VenueID: venue.ID, CourtID: courtID, Date: req.Date, Start: req.Start, End: req.End,
		})
		if err != nil {
			return err
		}
		currency := s.currency(quote.Currency)
		if currency != original.Currency {
			return domain.ErrCurrencyMismatch
		}

		successor := &models.Reservation{
			ID:               uuid.NewString(),
			VenueID:          venue.ID,
			CourtID:          courtID,
			UserID:           original.UserID,
			Date:             req.Date,
			Start:            req.Start,
			End:              req.End,
			State:            models.StateConfirmed,
			Total:            quote.Price,
			Currency:         currency,
			PaymentCaptured:  original.PaymentCaptured,
			ReprogrammedFrom: original.ID,
			Active:           true,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := tx.CreateReservation(ctx, successor); err != nil {
			return err
		}
		if err := appendHistory(ctx, tx, successor.ID, "", models.StateConfirmed, actor.UserID, "reprogrammed from "+original.ID, now); err != nil {
			return err
		}

		original.State = models.StateReprogrammed
		original.Active = false
		original.ReprogrammedTo = successor.ID
		original.UpdatedAt = now
		if err := tx.UpdateReservation(ctx, original); err != nil {
			return err
		}
		if err := appendHistory(ctx, tx, original.ID, models.StateConfirmed, models.StateReprogrammed, actor.UserID, "reprogrammed to "+successor.ID, now); err != nil {
			return err
		}

		result = &models.ReprogramResult{
			Original:    original,
			Reservation: successor,
			Delta:       priceDelta(successor.Total-original.Total, currency),
		}
		return nil
	})
	if err != nil {
		s.observeFailure(err)
		return nil, err
	}

	s.logger.Info().
		Str("reservation_id", result.Original.ID).
		Str("successor_id", result.Reservation.ID).
		Str("delta_type", string(result.Delta.Type)).
		Int64("delta_amount", result.Delta.Amount).
		Msg("Reservation reprogrammed")

	delta := result.Delta
	s.recordTransition(events.EventReservationReprogrammed, result.Original, models.StateConfirmed, actor.UserID, "", func(p *events.ReservationEventPayload) {
		p.RelatedID = result.Reservation.ID
		p.Delta = delta
	})
	s.recordTransition(events.EventReservationConfirmed, result.Reservation, "", actor.UserID, "", func(p *events.ReservationEventPayload) {
		p.RelatedID = result.Original.ID
	})
	return result, nil
}

func courtOrDefault(courtID, fallback string) string {
	if courtID == "" {
		return fallback
	}
	return courtID
}

// priceDelta classifies the signed difference new - old.
func priceDelta(diff int64, currency string) models.PriceDelta {
	switch {
	case diff > 0:
		return models.PriceDelta{Amount: diff, Currency: currency, Type: models.DeltaAdditionalCharge}
	case diff < 0:
		return models.PriceDelta{Amount: -diff, Currency: currency, Type: models.DeltaPartialRefund}
	default:
		return models.PriceDelta{Amount: 0, Currency: currency, Type: models.DeltaNoChange}
	}
}
