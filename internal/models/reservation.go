package models

import (
	"time"

	"courtbook/internal/schedule"
)

type ReservationState string

const (
	StateHold         ReservationState = "hold"
	StatePending      ReservationState = "pending"
	StateConfirmed    ReservationState = "confirmed"
	StateCancelled    ReservationState = "cancelled"
	StateNoShow       ReservationState = "no_show"
	StateExpired      ReservationState = "expired"
	StateReprogrammed ReservationState = "reprogrammed"
)

// Blocking reports whether a reservation in this state occupies its slot.
func (s ReservationState) Blocking() bool {
	return s == StateHold || s == StatePending || s == StateConfirmed
}

// Terminal reports whether no further transition leaves this state.
func (s ReservationState) Terminal() bool {
	switch s {
	case StateCancelled, StateNoShow, StateExpired, StateReprogrammed:
		return true
	}
	return false
}

func (s ReservationState) Valid() bool {
	switch s {
	case StateHold, StatePending, StateConfirmed, StateCancelled, StateNoShow, StateExpired, StateReprogrammed:
		return true
	}
	return false
}

type Reservation struct {
	ID                    string           `json:"id"`
	VenueID               string           `json:"venue_id"`
	CourtID               string           `json:"court_id"`
	UserID                string           `json:"user_id"`
	Date                  string           `json:"date"` // YYYY-MM-DD in venue time
	Start                 schedule.Clock   `json:"start"`
	End                   schedule.Clock   `json:"end"`
	State                 ReservationState `json:"state"`
	HoldExpiry            *time.Time       `json:"hold_expiry,omitempty"`
	IdempotencyKey        string           `json:"idempotency_key,omitempty"`
	ConfirmIdempotencyKey string           `json:"confirm_idempotency_key,omitempty"`
	CancelIdempotencyKey  string           `json:"cancel_idempotency_key,omitempty"`
	CancelReason          string           `json:"cancel_reason,omitempty"`
	Total                 int64            `json:"total"` // minor units
	Currency              string           `json:"currency"`
	PaymentCaptured       bool             `json:"payment_captured"`
	ReprogrammedFrom      string           `json:"reprogrammed_from,omitempty"`
	ReprogrammedTo        string           `json:"reprogrammed_to,omitempty"`
	Active                bool             `json:"active"`
	CreatedAt             time.Time        `json:"created_at"`
	UpdatedAt             time.Time        `json:"updated_at"`
}

func (r *Reservation) Interval() schedule.Interval {
	return schedule.Interval{Start: r.Start, End: r.End}
}

// HoldExpired reports whether the hold lapsed at or before now.
func (r *Reservation) HoldExpired(now time.Time) bool {
	return r.State == StateHold && r.HoldExpiry != nil && !r.HoldExpiry.After(now)
}

// StartsAt returns the instant the reservation begins in loc.
func (r *Reservation) StartsAt(loc *time.Location) (time.Time, error) {
	date, err := schedule.ParseDate(r.Date)
	if err != nil {
		return time.Time{}, err
	}
	return schedule.At(date, r.Start, loc), nil
}

type ReservationHistory struct {
	ID            string           `json:"id"`
	ReservationID string           `json:"reservation_id"`
	PriorState    ReservationState `json:"prior_state,omitempty"` // empty on creation
	NewState      ReservationState `json:"new_state"`
	ActorUserID   string           `json:"actor_user_id"`
	Comment       string           `json:"comment,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}
