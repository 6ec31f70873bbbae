package schedule

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	c, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, Clock(570), c)
	assert.Equal(t, "09:30", c.String())

	for _, bad := range []string{"24:00", "9:30", "09:60", "", "ab:cd"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestClockScan(t *testing.T) {
	var c Clock
	require.NoError(t, c.Scan("22:15"))
	assert.Equal(t, NewClock(22, 15), c)
	require.NoError(t, c.Scan([]byte("06:00")))
	assert.Equal(t, NewClock(6, 0), c)
	assert.Error(t, c.Scan(42))

	v, err := NewClock(7, 5).Value()
	require.NoError(t, err)
	assert.Equal(t, "07:05", v)
}

func TestWeekdayOf(t *testing.T) {
	monday, _ := ParseDate("2025-06-16")
	sunday, _ := ParseDate("2025-06-22")
	assert.Equal(t, Monday, WeekdayOf(monday))
	assert.Equal(t, Sunday, WeekdayOf(sunday))

	d, err := ParseWeekday("Friday")
	require.NoError(t, err)
	assert.Equal(t, Friday, d)
	_, err = ParseWeekday("lunes")
	assert.Error(t, err)
}

func TestParseWindow(t *testing.T) {
	w, err := ParseWindow("08:00-22:00")
	require.NoError(t, err)
	assert.Equal(t, 14*60, w.Minutes())
	assert.True(t, w.Contains(NewClock(8, 0), NewClock(9, 0)))
	assert.False(t, w.Contains(NewClock(21, 30), NewClock(22, 30)))

	_, err = ParseWindow("10:00-09:00")
	assert.Error(t, err)
	_, err = ParseWindow("10:00")
	assert.Error(t, err)
}

func TestParseOpeningHours(t *testing.T) {
	hours, err := ParseOpeningHours(map[string][]string{
		"monday":   {"14:00-22:00", "06:00-12:00"},
		"saturday": {"08:00-20:00"},
	})
	require.NoError(t, err)

	first, ok := hours.FirstWindow(Monday)
	require.True(t, ok)
	assert.Equal(t, "06:00-12:00", first.String())
	assert.True(t, hours.Covers(Monday, NewClock(15, 0), NewClock(16, 0)))
	assert.False(t, hours.Covers(Monday, NewClock(11, 0), NewClock(15, 0)))

	_, ok = hours.FirstWindow(Sunday)
	assert.False(t, ok)

	_, err = ParseOpeningHours(map[string][]string{"monday": {"08:00-12:00", "11:00-14:00"}})
	assert.ErrorContains(t, err, "overlap")
}

func TestOpeningHoursJSON(t *testing.T) {
	hours, err := ParseOpeningHours(map[string][]string{"tuesday": {"07:00-21:00"}})
	require.NoError(t, err)

	data, err := json.Marshal(hours)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tuesday":["07:00-21:00"]}`, string(data))

	var decoded OpeningHours
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, hours, decoded)
}

func TestAt(t *testing.T) {
	loc, err := LoadLocation("America/Bogota")
	require.NoError(t, err)
	date, _ := ParseDate("2025-06-16")

	instant := At(date, NewClock(10, 0), loc)
	assert.Equal(t, time.Date(2025, 6, 16, 15, 0, 0, 0, time.UTC), instant.UTC())

	_, err = LoadLocation("Mars/Olympus")
	assert.Error(t, err)
}

func TestIntervalOverlaps(t *testing.T) {
	a := Interval{Start: NewClock(10, 0), End: NewClock(11, 0)}
	assert.True(t, a.Overlaps(Interval{Start: NewClock(10, 30), End: NewClock(11, 30)}))
	assert.False(t, a.Overlaps(Interval{Start: NewClock(11, 0), End: NewClock(12, 0)}))
	assert.False(t, a.Overlaps(Interval{Start: NewClock(9, 0), End: NewClock(10, 0)}))

	clamped := a.Expand(90).Clamp(Window{Start: NewClock(9, 0), End: NewClock(22, 0)})
	assert.Equal(t, Interval{Start: NewClock(9, 0), End: NewClock(12, 30)}, clamped)
}

func TestFindConflict(t *testing.T) {
	booked := []Booked{
		{ID: "r1", Interval: Interval{Start: NewClock(10, 0), End: NewClock(11, 0)}},
	}

	// The buffer keeps a 10 minute gap after the existing booking.
	_, hit := FindConflict(Interval{Start: NewClock(11, 5), End: NewClock(12, 0)}, booked, 10, "")
	assert.True(t, hit)

	_, hit = FindConflict(Interval{Start: NewClock(11, 10), End: NewClock(12, 0)}, booked, 10, "")
	assert.False(t, hit)

	_, hit = FindConflict(Interval{Start: NewClock(10, 0), End: NewClock(11, 0)}, booked, 10, "r1")
	assert.False(t, hit)

	b, hit := FindConflict(Interval{Start: NewClock(9, 0), End: NewClock(10, 30)}, booked, 0, "")
	require.True(t, hit)
	assert.Equal(t, "r1", b.ID)
}
