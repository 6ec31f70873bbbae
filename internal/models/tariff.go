package models

import (
	"time"

	"courtbook/internal/schedule"
)

type TariffRule struct {
	ID        string           `json:"id"`
	VenueID   string           `json:"venue_id"`
	CourtID   string           `json:"court_id,omitempty"` // empty for venue-wide rules
	Weekday   schedule.Weekday `json:"weekday"`
	Start     schedule.Clock   `json:"start"`
	End       schedule.Clock   `json:"end"`
	Price     int64            `json:"price"` // minor units per block
	Currency  string           `json:"currency"`
	Active    bool             `json:"active"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// CourtLevel reports whether the rule targets a single court.
func (r *TariffRule) CourtLevel() bool { return r.CourtID != "" }

// Covers reports whether the clock falls inside the rule's [Start, End).
func (r *TariffRule) Covers(c schedule.Clock) bool {
	return r.Start <= c && c < r.End
}

type TariffOrigin string

const (
	TariffOriginCourt TariffOrigin = "court"
	TariffOriginVenue TariffOrigin = "venue"
)

type TariffQuote struct {
	RuleID   string       `json:"rule_id"`
	Origin   TariffOrigin `json:"origin"`
	Price    int64        `json:"price"`
	Currency string       `json:"currency"`
}
