package availability

import (
	"context"
	"fmt"

	"courtbook/internal/domain"
	"courtbook/internal/models"
	"courtbook/internal/schedule"
)

const (
	MinSlotMinutes = 15
	MaxSlotMinutes = 240
)

// Calculator lists bookable slots of a court for one day.
type Calculator struct {
	store              domain.Store
	defaultSlotMinutes int
}

func NewCalculator(store domain.Store, defaultSlotMinutes int) *Calculator {
	if defaultSlotMinutes == 0 {
		defaultSlotMinutes = 60
	}
	return &Calculator{store: store, defaultSlotMinutes: defaultSlotMinutes}
}

// Slots returns the day's slots of slotMinutes length, or the configured
// default when slotMinutes is zero.
func (c *Calculator) Slots(ctx context.Context, venueID, courtID, date string, slotMinutes int) (*models.DayAvailability, error) {
	if slotMinutes == 0 {
		slotMinutes = c.defaultSlotMinutes
	}
	if slotMinutes < MinSlotMinutes || slotMinutes > MaxSlotMinutes {
		return nil, domain.ErrInvalidSlotDuration
	}
	day, err := schedule.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	venue, err := c.store.GetVenue(ctx, venueID)
	if err != nil {
		return nil, err
	}
	court, err := c.store.GetCourt(ctx, courtID)
	if err != nil {
		return nil, err
	}
	if court.VenueID != venue.ID {
		return nil, domain.ErrCourtVenueMismatch
	}

	booked, err := c.store.ListBlockingReservations(ctx, courtID, date)
	if err != nil {
		return nil, err
	}

	out := Build(venue.OpeningHours, schedule.WeekdayOf(day), venue.BufferMinutes, booked, slotMinutes)
	out.VenueID = venue.ID
	out.CourtID = court.ID
	out.Date = date
	out.Timezone = venue.Timezone
	return out, nil
}

// Build computes slots for a weekday from opening hours and the active
// reservations of that day. Only the first opening window is considered.
func Build(hours schedule.OpeningHours, weekday schedule.Weekday, buffer int, booked []*models.Reservation, slotMinutes int) *models.DayAvailability {
	out := &models.DayAvailability{
		BufferMinutes: buffer,
		SlotMinutes:   slotMinutes,
		Slots:         []models.Slot{},
	}

	window, ok := hours.FirstWindow(weekday)
	if !ok {
		out.Closed = true
		return out
	}
	out.Window = window.String()

	type occupied struct {
		raw      schedule.Interval
		buffered schedule.Interval
	}
	var occ []occupied
	for _, r := range booked {
		if !r.Active || !r.State.Blocking() {
			continue
		}
		buffered := r.Interval().Expand(buffer).Clamp(window)
		if buffered.Empty() {
			continue
		}
		occ = append(occ, occupied{raw: r.Interval(), buffered: buffered})
	}

	for start := window.Start; start.Add(slotMinutes) <= window.End; start = start.Add(slotMinutes) {
		slot := models.Slot{Start: start, End: start.Add(slotMinutes), Reservable: true}
		span := schedule.Interval{Start: slot.Start, End: slot.End}
		for _, o := range occ {
			if !span.Overlaps(o.buffered) {
				continue
			}
			slot.Reservable = false
			if span.Overlaps(o.raw) {
				slot.Reason = models.SlotReasonReserved
				break
			}
			slot.Reason = models.SlotReasonBuffer
		}
		out.Slots = append(out.Slots, slot)
		if slot.Reservable {
			out.Free++
		} else {
			out.Taken++
		}
	}
	out.Total = len(out.Slots)
	return out
}
