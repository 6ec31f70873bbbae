package models

import (
	"time"

	"courtbook/internal/schedule"
)

type Venue struct {
	ID            string                `json:"id"`
	Name          string                `json:"name"`
	Timezone      string                `json:"timezone"`
	OpeningHours  schedule.OpeningHours `json:"opening_hours"`
	BufferMinutes int                   `json:"buffer_minutes"`
	Active        bool                  `json:"active"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// Location resolves the venue's IANA timezone.
func (v *Venue) Location() (*time.Location, error) {
	return schedule.LoadLocation(v.Timezone)
}

const (
	CourtStatusActive      = "active"
	CourtStatusMaintenance = "maintenance"
)

type Court struct {
	ID        string    `json:"id"`
	VenueID   string    `json:"venue_id"`
	Name      string    `json:"name"`
	Surface   string    `json:"surface"`
	Status    string    `json:"status"` // active, maintenance
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Bookable reports whether new reservations may be placed on the court.
func (c *Court) Bookable() bool {
	return c.Active && c.Status == CourtStatusActive
}
