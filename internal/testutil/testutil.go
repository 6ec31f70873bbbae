// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"courtbook/internal/database"
	"courtbook/internal/models"
	"courtbook/internal/schedule"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// NewDB opens a migrated database in a temporary directory.
func NewDB(t *testing.T) *database.DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "courtbook.db"), database.Options{Retry: database.DefaultRetryPolicy}, &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// DailyHours opens every weekday with the same window.
func DailyHours(t *testing.T, window string) schedule.OpeningHours {
	t.Helper()
	raw := map[string][]string{}
	for d := schedule.Monday; d <= schedule.Sunday; d++ {
		raw[d.String()] = []string{window}
	}
	hours, err := schedule.ParseOpeningHours(raw)
	require.NoError(t, err)
	return hours
}

// SeedVenue stores an active venue with one active court and a venue-wide
// tariff for every day.
func SeedVenue(t *testing.T, db *database.DB, venueID, courtID string, buffer int, price int64) (*models.Venue, *models.Court) {
	t.Helper()
	ctx := context.Background()

	venue := &models.Venue{
		ID:            venueID,
		Name:          "Venue " + venueID,
		Timezone:      "America/Bogota",
		OpeningHours:  DailyHours(t, "06:00-22:00"),
		BufferMinutes: buffer,
		Active:        true,
	}
	require.NoError(t, db.UpsertVenue(ctx, venue))

	court := &models.Court{ID: courtID, VenueID: venueID, Name: "Court " + courtID, Surface: "clay", Status: models.CourtStatusActive, Active: true}
	require.NoError(t, db.UpsertCourt(ctx, court))

	if price > 0 {
		for d := schedule.Monday; d <= schedule.Sunday; d++ {
			require.NoError(t, db.SaveTariffRule(ctx, &models.TariffRule{
				ID:       venueID + "-" + d.String(),
				VenueID:  venueID,
				Weekday:  d,
				Start:    schedule.NewClock(6, 0),
				End:      schedule.NewClock(22, 0),
				Price:    price,
				Currency: "COP",
				Active:   true,
			}))
		}
	}
	return venue, court
}

// Clock parses "HH:MM" or fails the test.
func Clock(t *testing.T, s string) schedule.Clock {
	t.Helper()
	c, err := schedule.ParseClock(s)
	require.NoError(t, err)
	return c
}
