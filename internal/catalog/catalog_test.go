package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"courtbook/internal/domain"
	"courtbook/internal/models"
	"courtbook/internal/schedule"
	"courtbook/internal/tariff"
	"courtbook/internal/testutil"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
venues:
  - id: norte
    name: Club Norte
    timezone: America/Bogota
    buffer_minutes: 10
    opening_hours:
      monday: ["06:00-12:00", "14:00-22:00"]
      saturday: ["07:00-20:00"]
    courts:
      - id: norte-1
        name: Cancha 1
        surface: clay
      - id: norte-2
        name: Cancha 2
        surface: hard
        status: maintenance
    tariffs:
      - weekdays: [monday, saturday]
        start: "06:00"
        end: "18:00"
        price: 40000
        currency: COP
      - weekdays: [monday]
        start: "18:00"
        end: "22:00"
        price: 60000
        currency: COP
      - court_id: norte-1
        weekdays: [monday]
        start: "18:00"
        end: "22:00"
        price: 75000
        currency: COP
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	require.Len(t, c.Venues, 1)
	assert.Len(t, c.Venues[0].Courts, 2)
	assert.Len(t, c.Venues[0].Tariffs, 3)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"MissingID":       "venues:\n  - name: x\n    timezone: UTC\n",
		"BadTimezone":     "venues:\n  - id: a\n    timezone: Mars/Olympus\n",
		"OverlappingDays": "venues:\n  - id: a\n    timezone: UTC\n    opening_hours:\n      monday: [\"08:00-12:00\", \"11:00-13:00\"]\n",
		"UnknownDay":      "venues:\n  - id: a\n    timezone: UTC\n    opening_hours:\n      funday: [\"08:00-12:00\"]\n",
		"DuplicateVenue":  "venues:\n  - id: a\n    timezone: UTC\n  - id: a\n    timezone: UTC\n",
		"BadCourtStatus":  "venues:\n  - id: a\n    timezone: UTC\n    courts:\n      - id: c\n        status: flooded\n",
		"SharedCourt":     "venues:\n  - id: a\n    timezone: UTC\n    courts:\n      - id: c\n  - id: b\n    timezone: UTC\n    courts:\n      - id: c\n",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestSync(t *testing.T) {
	db := testutil.NewDB(t)
	logger := zerolog.Nop()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 16, 8, 0, 0, 0, time.UTC))
	rules := tariff.NewService(db, clock, &logger)
	syncer := NewSyncer(db, rules, &logger)
	ctx := context.Background()

	c, err := Parse([]byte(sample))
	require.NoError(t, err)

	// Syncing twice must not duplicate anything.
	require.NoError(t, syncer.Sync(ctx, c))
	require.NoError(t, syncer.Sync(ctx, c))

	venue, err := db.GetVenue(ctx, "norte")
	require.NoError(t, err)
	assert.True(t, venue.Active)
	assert.Equal(t, 10, venue.BufferMinutes)
	assert.Len(t, venue.OpeningHours[schedule.Monday], 2)

	courts, err := db.ListCourts(ctx, "norte")
	require.NoError(t, err)
	require.Len(t, courts, 2)

	court2, err := db.GetCourt(ctx, "norte-2")
	require.NoError(t, err)
	assert.Equal(t, models.CourtStatusMaintenance, court2.Status)

	saved, err := rules.ListRules(ctx, "norte")
	require.NoError(t, err)
	assert.Len(t, saved, 4)

	resolver := tariff.NewResolver(db, nil, time.Minute, &logger)
	quote, err := resolver.Resolve(ctx, tariff.Query{
		VenueID: "norte", CourtID: "norte-1", Date: "2025-06-16",
		Start: schedule.NewClock(19, 0), End: schedule.NewClock(20, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(75000), quote.Price)
}

func TestSync_CourtMovedToAnotherVenue(t *testing.T) {
	db := testutil.NewDB(t)
	logger := zerolog.Nop()
	syncer := NewSyncer(db, tariff.NewService(db, clockwork.NewRealClock(), &logger), &logger)
	ctx := context.Background()

	c, err := Parse([]byte(sample))
	require.NoError(t, err)
	require.NoError(t, syncer.Sync(ctx, c))

	edited, err := Parse([]byte(`
venues:
  - id: sur
    name: Club Sur
    timezone: America/Bogota
    opening_hours:
      monday: ["06:00-22:00"]
    courts:
      - id: norte-1
        name: Cancha 1
`))
	require.NoError(t, err)

	err = syncer.Sync(ctx, edited)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCourtVenueMismatch)

	court, err := db.GetCourt(ctx, "norte-1")
	require.NoError(t, err)
	assert.Equal(t, "norte", court.VenueID)
}

func TestSync_OverlappingTariffs(t *testing.T) {
	db := testutil.NewDB(t)
	logger := zerolog.Nop()
	syncer := NewSyncer(db, tariff.NewService(db, clockwork.NewRealClock(), &logger), &logger)

	c, err := Parse([]byte(`
venues:
  - id: sur
    timezone: UTC
    opening_hours:
      monday: ["06:00-22:00"]
    tariffs:
      - weekdays: [monday]
        start: "06:00"
        end: "18:00"
        price: 1000
        currency: USD
      - weekdays: [monday]
        start: "17:00"
        end: "22:00"
        price: 2000
        currency: USD
`))
	require.NoError(t, err)

	err = syncer.Sync(context.Background(), c)
	assert.ErrorIs(t, err, domain.ErrTariffOverlap)
}
