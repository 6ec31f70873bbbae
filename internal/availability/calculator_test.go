package availability

import (
	"context"
	"testing"

	"courtbook/internal/domain"
	"courtbook/internal/models"
	"courtbook/internal/schedule"
	"courtbook/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reservation(t *testing.T, start, end string, state models.ReservationState) *models.Reservation {
	return &models.Reservation{
		ID:     start + "-" + end,
		Start:  testutil.Clock(t, start),
		End:    testutil.Clock(t, end),
		State:  state,
		Active: true,
	}
}

func slotAt(t *testing.T, day *models.DayAvailability, start string) models.Slot {
	t.Helper()
	c := testutil.Clock(t, start)
	for _, s := range day.Slots {
		if s.Start == c {
			return s
		}
	}
	t.Fatalf("no slot starting at %s", start)
	return models.Slot{}
}

func TestBuild_BufferAroundConfirmedReservation(t *testing.T) {
	hours := testutil.DailyHours(t, "06:00-22:00")
	booked := []*models.Reservation{reservation(t, "10:00", "11:00", models.StateConfirmed)}

	day := Build(hours, schedule.Monday, 10, booked, 60)

	assert.Equal(t, 16, day.Total)
	assert.Equal(t, 13, day.Free)
	assert.Equal(t, 3, day.Taken)

	assert.False(t, slotAt(t, day, "09:00").Reservable)
	assert.Equal(t, models.SlotReasonBuffer, slotAt(t, day, "09:00").Reason)
	assert.Equal(t, models.SlotReasonReserved, slotAt(t, day, "10:00").Reason)
	assert.False(t, slotAt(t, day, "11:00").Reservable)
	assert.True(t, slotAt(t, day, "08:00").Reservable)
	assert.True(t, slotAt(t, day, "12:00").Reservable)
}

func TestBuild_SlotCountLaw(t *testing.T) {
	hours := testutil.DailyHours(t, "08:00-21:30")
	window := 13*60 + 30

	for _, d := range []int{15, 45, 60, 90, 240} {
		day := Build(hours, schedule.Friday, 0, nil, d)
		assert.Equal(t, window/d, day.Total, "duration %d", d)
		assert.Equal(t, day.Total, day.Free)

		last := day.Slots[len(day.Slots)-1]
		assert.LessOrEqual(t, int(last.End), int(testutil.Clock(t, "21:30")))
	}
}

func TestBuild_IgnoresInactiveAndTerminal(t *testing.T) {
	hours := testutil.DailyHours(t, "06:00-22:00")
	cancelled := reservation(t, "10:00", "11:00", models.StateCancelled)
	expired := reservation(t, "12:00", "13:00", models.StateExpired)
	inactive := reservation(t, "14:00", "15:00", models.StateConfirmed)
	inactive.Active = false

	day := Build(hours, schedule.Monday, 0, []*models.Reservation{cancelled, expired, inactive}, 60)
	assert.Equal(t, day.Total, day.Free)
}

func TestBuild_ClosedDayAndFirstWindowOnly(t *testing.T) {
	hours, err := schedule.ParseOpeningHours(map[string][]string{
		"saturday": {"08:00-12:00", "14:00-18:00"},
	})
	require.NoError(t, err)

	closed := Build(hours, schedule.Sunday, 0, nil, 60)
	assert.True(t, closed.Closed)
	assert.Empty(t, closed.Slots)
	assert.Zero(t, closed.Total)

	sat := Build(hours, schedule.Saturday, 0, nil, 60)
	assert.Equal(t, "08:00-12:00", sat.Window)
	assert.Equal(t, 4, sat.Total)
}

func TestBuild_HoldsAndPendingBlock(t *testing.T) {
	hours := testutil.DailyHours(t, "06:00-22:00")
	booked := []*models.Reservation{
		reservation(t, "07:00", "08:00", models.StateHold),
		reservation(t, "09:00", "10:00", models.StatePending),
	}

	day := Build(hours, schedule.Tuesday, 0, booked, 60)
	assert.False(t, slotAt(t, day, "07:00").Reservable)
	assert.False(t, slotAt(t, day, "09:00").Reservable)
	assert.True(t, slotAt(t, day, "08:00").Reservable)
}

func TestCalculator_Slots(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedVenue(t, db, "bogota", "c1", 10, 50000)
	testutil.SeedVenue(t, db, "medellin", "m1", 0, 0)
	ctx := context.Background()

	require.NoError(t, db.CreateReservation(ctx, &models.Reservation{
		ID: "r1", VenueID: "bogota", CourtID: "c1", UserID: "u1", Date: "2025-06-16",
		Start: testutil.Clock(t, "10:00"), End: testutil.Clock(t, "11:00"),
		State: models.StateConfirmed, Currency: "COP", Active: true,
	}))

	calc := NewCalculator(db, 60)

	day, err := calc.Slots(ctx, "bogota", "c1", "2025-06-16", 0)
	require.NoError(t, err)
	assert.Equal(t, "America/Bogota", day.Timezone)
	assert.Equal(t, 60, day.SlotMinutes)
	assert.Equal(t, 3, day.Taken)

	t.Run("InvalidDuration", func(t *testing.T) {
		_, err := calc.Slots(ctx, "bogota", "c1", "2025-06-16", 10)
		assert.ErrorIs(t, err, domain.ErrInvalidSlotDuration)
		_, err = calc.Slots(ctx, "bogota", "c1", "2025-06-16", 300)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("CourtOfAnotherVenue", func(t *testing.T) {
		_, err := calc.Slots(ctx, "bogota", "m1", "2025-06-16", 60)
		assert.ErrorIs(t, err, domain.ErrCourtVenueMismatch)
	})

	t.Run("UnknownVenue", func(t *testing.T) {
		_, err := calc.Slots(ctx, "nowhere", "c1", "2025-06-16", 60)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("BadDate", func(t *testing.T) {
		_, err := calc.Slots(ctx, "bogota", "c1", "16/06/2025", 60)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}
