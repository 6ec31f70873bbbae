package domain

import (
	"errors"
	"fmt"

	"courtbook/internal/schedule"
)

// Error kinds. Every error returned by the lifecycle wraps exactly one of them.
var (
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("validation failed")
	ErrConflict            = errors.New("conflict")
	ErrGone                = errors.New("gone")
	ErrPaymentRequired     = errors.New("payment required")
	ErrForbidden           = errors.New("forbidden")
	ErrNotApplicableTariff = errors.New("no applicable tariff")
	ErrInternal            = errors.New("internal error")
)

var (
	ErrVenueNotFound       = fmt.Errorf("venue %w", ErrNotFound)
	ErrCourtNotFound       = fmt.Errorf("court %w", ErrNotFound)
	ErrReservationNotFound = fmt.Errorf("reservation %w", ErrNotFound)
	ErrTariffRuleNotFound  = fmt.Errorf("tariff rule %w", ErrNotFound)

	ErrCourtVenueMismatch  = fmt.Errorf("%w: court does not belong to venue", ErrValidation)
	ErrCourtUnavailable    = fmt.Errorf("%w: court is not available for booking", ErrValidation)
	ErrVenueInactive       = fmt.Errorf("%w: venue is not active", ErrValidation)
	ErrInvalidRange        = fmt.Errorf("%w: start must be before end", ErrValidation)
	ErrOutsideOpeningHours = fmt.Errorf("%w: slot is outside opening hours", ErrValidation)
	ErrPastSlot            = fmt.Errorf("%w: slot has already started", ErrValidation)
	ErrTooFarAhead         = fmt.Errorf("%w: slot is beyond the booking horizon", ErrValidation)
	ErrInvalidSlotDuration = fmt.Errorf("%w: slot duration must be between 15 and 240 minutes", ErrValidation)
	ErrIdempotencyKey      = fmt.Errorf("%w: idempotency key is required", ErrValidation)
	ErrCurrencyMismatch    = fmt.Errorf("%w: currency change is not supported", ErrValidation)

	ErrSlotConflict            = fmt.Errorf("slot %w", ErrConflict)
	ErrInvalidState            = fmt.Errorf("%w: operation not allowed in current state", ErrConflict)
	ErrNotCancellable          = fmt.Errorf("%w: reservation can no longer be cancelled", ErrConflict)
	ErrNotReprogrammable       = fmt.Errorf("%w: reservation can no longer be reprogrammed", ErrConflict)
	ErrInvalidTransition       = fmt.Errorf("%w: transition not allowed", ErrConflict)
	ErrSlotNotStarted          = fmt.Errorf("%w: slot has not started yet", ErrConflict)
	ErrDuplicateIdempotencyKey = fmt.Errorf("idempotency key %w", ErrConflict)
	ErrTariffOverlap           = fmt.Errorf("tariff rule %w: overlaps an active rule", ErrConflict)

	ErrHoldExpired = fmt.Errorf("%w: hold expired", ErrGone)

	ErrNotOwner  = fmt.Errorf("%w: reservation belongs to another user", ErrForbidden)
	ErrStaffOnly = fmt.Errorf("%w: staff or admin role required", ErrForbidden)
)

// SlotConflictError identifies the reservation a request collided with.
type SlotConflictError struct {
	CourtID       string
	Date          string
	Interval      schedule.Interval
	ReservationID string
}

func (e *SlotConflictError) Error() string {
	return fmt.Sprintf("slot conflict on court %s at %s %s (reservation %s)", e.CourtID, e.Date, e.Interval, e.ReservationID)
}

func (e *SlotConflictError) Unwrap() error { return ErrSlotConflict }

// Kind returns the taxonomy sentinel wrapped by err, or ErrInternal.
func Kind(err error) error {
	for _, kind := range []error{
		ErrNotFound, ErrValidation, ErrConflict, ErrGone,
		ErrPaymentRequired, ErrForbidden, ErrNotApplicableTariff,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrInternal
}
