package domain

import (
	"errors"
	"fmt"
	"testing"

	"courtbook/internal/schedule"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	conflict := &SlotConflictError{
		CourtID:       "c1",
		Date:          "2025-06-16",
		Interval:      schedule.Interval{Start: schedule.NewClock(10, 30), End: schedule.NewClock(11, 30)},
		ReservationID: "r1",
	}

	assert.ErrorIs(t, conflict, ErrSlotConflict)
	assert.Equal(t, ErrConflict, Kind(conflict))
	assert.Contains(t, conflict.Error(), "10:30-11:30")

	assert.Equal(t, ErrNotFound, Kind(fmt.Errorf("load: %w", ErrCourtNotFound)))
	assert.Equal(t, ErrValidation, Kind(ErrOutsideOpeningHours))
	assert.Equal(t, ErrGone, Kind(ErrHoldExpired))
	assert.Equal(t, ErrForbidden, Kind(ErrNotOwner))
	assert.Equal(t, ErrPaymentRequired, Kind(ErrPaymentRequired))
	assert.Equal(t, ErrInternal, Kind(errors.New("disk full")))
}
