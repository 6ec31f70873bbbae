package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"courtbook/internal/config"
	"courtbook/internal/domain"
	"courtbook/internal/events"
	"courtbook/internal/metrics"
	"courtbook/internal/models"
	"courtbook/internal/schedule"
	"courtbook/internal/tariff"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// SystemActor is recorded in history for transitions made by background jobs.
const SystemActor = "system"

// TariffResolver prices a slot through the given store.
type TariffResolver interface {
	ResolveWith(ctx context.Context, repo domain.Store, q tariff.Query) (*models.TariffQuote, error)
}

// Policy holds the business knobs of the lifecycle.
type Policy struct {
	HoldTTL               time.Duration
	RequirePaymentCapture bool
	FullRefundThreshold   time.Duration
	PartialRefundPercent  int
	MaxAdvanceDays        int
	DefaultCurrency       string
}

func PolicyFromConfig(cfg config.BookingConfig) Policy {
	return Policy{
		HoldTTL:               cfg.HoldTTL(),
		RequirePaymentCapture: cfg.RequirePaymentCapture,
		FullRefundThreshold:   cfg.FullRefundThreshold(),
		PartialRefundPercent:  cfg.CancelPartialPercentage,
		MaxAdvanceDays:        cfg.MaxAdvanceDays,
		DefaultCurrency:       cfg.DefaultCurrency,
	}
}

type ReservationService struct {
	store    domain.Store
	tariffs  TariffResolver
	eventBus domain.EventPublisher
	clock    clockwork.Clock
	policy   Policy
	logger   *zerolog.Logger
}

func NewReservationService(
	store domain.Store,
	tariffs TariffResolver,
	eventBus domain.EventPublisher,
	clock clockwork.Clock,
	policy Policy,
	logger *zerolog.Logger,
) *ReservationService {
	if policy.HoldTTL <= 0 {
		policy.HoldTTL = 10 * time.Minute
	}
	if policy.MaxAdvanceDays <= 0 {
		policy.MaxAdvanceDays = 365
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ReservationService{
		store:    store,
		tariffs:  tariffs,
		eventBus: eventBus,
		clock:    clock,
		policy:   policy,
		logger:   logger,
	}
}

type HoldRequest struct {
	VenueID        string         `json:"venue_id"`
	CourtID        string         `json:"court_id"`
	UserID         string         `json:"user_id,omitempty"` // staff may book on behalf of a client
	Date           string         `json:"date"`
	Start          schedule.Clock `json:"start"`
	End            schedule.Clock `json:"end"`
	IdempotencyKey string         `json:"idempotency_key"`
}

// CreateHold places a temporary hold on a slot. Replaying a request with the
// same idempotency key returns the original reservation with Created=false.
func (s *ReservationService) CreateHold(ctx context.Context, actor models.Principal, req HoldRequest) (*models.HoldResult, error) {
	if req.IdempotencyKey == "" {
		return nil, domain.ErrIdempotencyKey
	}
	userID := actor.UserID
	if req.UserID != "" && req.UserID != actor.UserID {
		if !actor.Privileged() {
			return nil, domain.ErrNotOwner
		}
		userID = req.UserID
	}
	if req.Start >= req.End {
		return nil, domain.ErrInvalidRange
	}

	now := s.clock.Now().UTC()
	var (
		result *models.HoldResult
		quote  *models.TariffQuote
	)
	err := s.store.InTx(ctx, func(tx domain.Store) error {
		existing, err := tx.GetReservationByIdempotencyKey(ctx, req.IdempotencyKey)
		if err == nil {
			result, err = replayHold(existing, userID)
			return err
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		venue, _, err := s.loadBookable(ctx, tx, req.VenueID, req.CourtID)
		if err != nil {
			return err
		}
		if err := s.checkSlot(ctx, tx, venue, req.CourtID, req.Date, req.Start, req.End, "", now); err != nil {
			return err
		}

		quote, err = s.tariffs.ResolveWith(ctx, tx, tariff.Query{
			VenueID: venue.ID, CourtID: req.CourtID, Date: req.Date, Start: req.Start, End: req.End,
		})
		if err != nil {
			return err
		}

		expiry := now.Add(s.policy.HoldTTL)
		r := &models.Reservation{
			ID:             uuid.NewString(),
			VenueID:        venue.ID,
			CourtID:        req.CourtID,
			UserID:         userID,
			Date:           req.Date,
			Start:          req.Start,
			End:            req.End,
			State:          models.StateHold,
			HoldExpiry:     &expiry,
			IdempotencyKey: req.IdempotencyKey,
			Total:          quote.Price,
			Currency:       s.currency(quote.Currency),
			Active:         true,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := tx.CreateReservation(ctx, r); err != nil {
			return err
		}
		if err := appendHistory(ctx, tx, r.ID, "", models.StateHold, actor.UserID, "", now); err != nil {
			return err
		}
		result = &models.HoldResult{Reservation: r, Created: true}
		return nil
	})

	if errors.Is(err, domain.ErrDuplicateIdempotencyKey) {
		// Lost the race against a concurrent request with the same key.
		existing, getErr := s.store.GetReservationByIdempotencyKey(ctx, req.IdempotencyKey)
		if getErr != nil {
			return nil, fmt.Errorf("failed to reload reservation after key collision: %w", getErr)
		}
		return replayHold(existing, userID)
	}
	if err != nil {
		s.observeFailure(err)
		return nil, err
	}
	if !result.Created {
		return result, nil
	}

	r := result.Reservation
	s.logger.Info().
		Str("reservation_id", r.ID).
		Str("court_id", r.CourtID).
		Str("date", r.Date).
		Str("slot", r.Interval().String()).
		Str("tariff_origin", string(quote.Origin)).
		Msg("Hold created")
	s.recordTransition(events.EventReservationHeld, r, "", actor.UserID, "", nil)
	return result, nil
}

func replayHold(existing *models.Reservation, userID string) (*models.HoldResult, error) {
	if existing.UserID != userID {
		return nil, domain.ErrDuplicateIdempotencyKey
	}
	return &models.HoldResult{Reservation: existing, Created: false}, nil
}

// Confirm turns a hold or pending reservation into a confirmed one.
// Confirming an already confirmed reservation is a no-op.
func (s *ReservationService) Confirm(ctx context.Context, actor models.Principal, id, idempotencyKey string) (*models.Reservation, error) {
	now := s.clock.Now().UTC()
	var (
		r     *models.Reservation
		prior models.ReservationState
		noop  bool
	)
	err := s.store.InTx(ctx, func(tx domain.Store) error {
		var err error
		r, err = tx.GetReservation(ctx, id)
		if err != nil {
			return err
		}
		prior = r.State

		if r.State == models.StateConfirmed {
			noop = true
			return nil
		}
		if r.State != models.StateHold && r.State != models.StatePending {
			return fmt.Errorf("%w: cannot confirm a %s reservation", domain.ErrInvalidState, r.State)
		}
		if !actor.CanActOn(r.UserID) {
			return domain.ErrNotOwner
		}
		if r.HoldExpired(now) {
			return domain.ErrHoldExpired
		}
		if s.policy.RequirePaymentCapture && !r.PaymentCaptured {
			return domain.ErrPaymentRequired
		}

		venue, err := tx.GetVenue(ctx, r.VenueID)
		if err != nil {
			return err
		}
		if err := checkOverlap(ctx, tx, venue, r.CourtID, r.Date, r.Interval(), r.ID); err != nil {
			return err
		}

		r.State = models.StateConfirmed
		r.HoldExpiry = nil
		if idempotencyKey != "" {
			r.ConfirmIdempotencyKey = idempotencyKey
		}
		r.UpdatedAt = now
		if err := tx.UpdateReservation(ctx, r); err != nil {
			return err
		}
		return appendHistory(ctx, tx, r.ID, prior, models.StateConfirmed, actor.UserID, "", now)
	})
	if err != nil {
		s.observeFailure(err)
		return nil, err
	}
	if noop {
		return r, nil
	}

	s.logger.Info().Str("reservation_id", r.ID).Str("from", string(prior)).Msg("Reservation confirmed")
	s.recordTransition(events.EventReservationConfirmed, r, prior, actor.UserID, "", nil)
	return r, nil
}

// Get returns a reservation visible to the actor.
func (s *ReservationService) Get(ctx context.Context, actor models.Principal, id string) (*models.Reservation, error) {
	r, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanActOn(r.UserID) {
		return nil, domain.ErrNotOwner
	}
	return r, nil
}

// History lists a reservation's transitions, newest first.
func (s *ReservationService) History(ctx context.Context, actor models.Principal, id string) ([]*models.ReservationHistory, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.store.ListHistory(ctx, id)
}

// RecordPaymentCapture marks a reservation as paid. It is called on behalf
// of the payment collaborator and is idempotent.
func (s *ReservationService) RecordPaymentCapture(ctx context.Context, actor models.Principal, id string) (*models.Reservation, error) {
	if !actor.Privileged() {
		return nil, domain.ErrStaffOnly
	}

	now := s.clock.Now().UTC()
	var r *models.Reservation
	err := s.store.InTx(ctx, func(tx domain.Store) error {
		var err error
		r, err = tx.GetReservation(ctx, id)
		if err != nil {
			return err
		}
		if r.PaymentCaptured {
			return nil
		}
		if !r.State.Blocking() {
			return fmt.Errorf("%w: cannot capture payment for a %s reservation", domain.ErrInvalidState, r.State)
		}
		r.PaymentCaptured = true
		r.UpdatedAt = now
		return tx.UpdateReservation(ctx, r)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("reservation_id", r.ID).Str("actor", actor.UserID).Msg("Payment capture recorded")
	return r, nil
}

// loadBookable loads a venue and court and checks both accept bookings.
func (s *ReservationService) loadBookable(ctx context.Context, tx domain.Store, venueID, courtID string) (*models.Venue, *models.Court, error) {
	court, err := tx.GetCourt(ctx, courtID)
	if err != nil {
		return nil, nil, err
	}
	if court.VenueID != venueID {
		return nil, nil, domain.ErrCourtVenueMismatch
	}
	if !court.Bookable() {
		return nil, nil, domain.ErrCourtUnavailable
	}

	venue, err := tx.GetVenue(ctx, venueID)
	if err != nil {
		return nil, nil, err
	}
	if !venue.Active {
		return nil, nil, domain.ErrVenueInactive
	}
	return venue, court, nil
}

// checkSlot validates a requested slot against opening hours, the booking
// horizon and the court's active reservations.
func (s *ReservationService) checkSlot(
	ctx context.Context,
	tx domain.Store,
	venue *models.Venue,
	courtID, date string,
	start, end schedule.Clock,
	excludeID string,
	now time.Time,
) error {
	if start >= end {
		return domain.ErrInvalidRange
	}
	day, err := schedule.ParseDate(date)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	loc, err := venue.Location()
	if err != nil {
		return fmt.Errorf("venue %s: %w", venue.ID, err)
	}

	if !venue.OpeningHours.Covers(schedule.WeekdayOf(day), start, end) {
		return domain.ErrOutsideOpeningHours
	}

	startsAt := schedule.At(day, start, loc)
	if !startsAt.After(now) {
		return domain.ErrPastSlot
	}
	if startsAt.After(now.AddDate(0, 0, s.policy.MaxAdvanceDays)) {
		return domain.ErrTooFarAhead
	}

	return checkOverlap(ctx, tx, venue, courtID, date, schedule.Interval{Start: start, End: end}, excludeID)
}

func checkOverlap(ctx context.Context, tx domain.Store, venue *models.Venue, courtID, date string, req schedule.Interval, excludeID string) error {
	active, err := tx.ListBlockingReservations(ctx, courtID, date)
	if err != nil {
		return err
	}
	booked := make([]schedule.Booked, 0, len(active))
	for _, r := range active {
		booked = append(booked, schedule.Booked{ID: r.ID, Interval: r.Interval()})
	}

	if hit, ok := schedule.FindConflict(req, booked, venue.BufferMinutes, excludeID); ok {
		return &domain.SlotConflictError{
			CourtID:       courtID,
			Date:          date,
			Interval:      hit.Interval,
			ReservationID: hit.ID,
		}
	}
	return nil
}

func appendHistory(ctx context.Context, tx domain.Store, reservationID string, prior, next models.ReservationState, actor, comment string, at time.Time) error {
	if prior != "" && !CanTransition(prior, next) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, prior, next)
	}
	return tx.AppendHistory(ctx, &models.ReservationHistory{
		ID:            uuid.NewString(),
		ReservationID: reservationID,
		PriorState:    prior,
		NewState:      next,
		ActorUserID:   actor,
		Comment:       comment,
		CreatedAt:     at,
	})
}

func (s *ReservationService) currency(c string) string {
	if c == "" {
		return s.policy.DefaultCurrency
	}
	return c
}

func (s *ReservationService) observeFailure(err error) {
	if errors.Is(err, domain.ErrSlotConflict) {
		metrics.IncSlotConflict()
	}
	if errors.Is(domain.Kind(err), domain.ErrInternal) {
		s.logger.Error().Err(err).Msg("Reservation operation failed")
	}
}

// recordTransition counts a committed transition and notifies subscribers.
// Publishing failures are logged and never undo the commit.
func (s *ReservationService) recordTransition(
	eventType string,
	r *models.Reservation,
	prior models.ReservationState,
	actor, comment string,
	decorate func(p *events.ReservationEventPayload),
) {
	metrics.IncTransition(string(prior), string(r.State))

	if s.eventBus == nil {
		return
	}
	payload := events.ReservationEventPayload{
		ReservationID: r.ID,
		VenueID:       r.VenueID,
		CourtID:       r.CourtID,
		UserID:        r.UserID,
		Date:          r.Date,
		Start:         r.Start.String(),
		End:           r.End.String(),
		PriorState:    string(prior),
		State:         string(r.State),
		Total:         r.Total,
		Currency:      r.Currency,
		ActorUserID:   actor,
		Comment:       comment,
	}
	if decorate != nil {
		decorate(&payload)
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event", eventType).Str("reservation_id", r.ID).Msg("failed to publish event")
	}
}
