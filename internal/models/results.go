package models

import (
	"time"

	"courtbook/internal/schedule"
)

type HoldResult struct {
	Reservation *Reservation `json:"reservation"`
	Created     bool         `json:"created"`
}

type RefundType string

const (
	RefundTotal   RefundType = "total"
	RefundPartial RefundType = "partial"
	RefundNone    RefundType = "none"
)

// RefundDirective tells the payment collaborator what to return to the client.
type RefundDirective struct {
	Amount   int64      `json:"amount"`
	Currency string     `json:"currency"`
	Type     RefundType `json:"type"`
}

type CancelResult struct {
	Reservation *Reservation    `json:"reservation"`
	Refund      RefundDirective `json:"refund"`
}

type PriceDeltaType string

const (
	DeltaAdditionalCharge PriceDeltaType = "additional_charge"
	DeltaPartialRefund    PriceDeltaType = "partial_refund"
	DeltaNoChange         PriceDeltaType = "no_change"
)

// PriceDelta is the settlement owed when a reservation moves to a new slot.
// Amount is always non-negative; Type carries the direction.
type PriceDelta struct {
	Amount   int64          `json:"amount"`
	Currency string         `json:"currency"`
	Type     PriceDeltaType `json:"type"`
}

type ReprogramResult struct {
	Original    *Reservation `json:"original"`
	Reservation *Reservation `json:"reservation"`
	Delta       PriceDelta   `json:"delta"`
}

type ExpireResult struct {
	Expired    int       `json:"expired"`
	ExecutedAt time.Time `json:"executed_at"`
}

type SlotReason string

const (
	SlotReasonReserved SlotReason = "reserved"
	SlotReasonBuffer   SlotReason = "buffer"
)

type Slot struct {
	Start      schedule.Clock `json:"start"`
	End        schedule.Clock `json:"end"`
	Reservable bool           `json:"reservable"`
	Reason     SlotReason     `json:"reason,omitempty"`
}

type DayAvailability struct {
	VenueID       string `json:"venue_id"`
	CourtID       string `json:"court_id"`
	Date          string `json:"date"`
	Timezone      string `json:"timezone"`
	BufferMinutes int    `json:"buffer_minutes"`
	SlotMinutes   int    `json:"slot_minutes"`
	Closed        bool   `json:"closed"`
	Window        string `json:"window,omitempty"`
	Slots         []Slot `json:"slots"`
	Total         int    `json:"total"`
	Free          int    `json:"free"`
	Taken         int    `json:"taken"`
}
