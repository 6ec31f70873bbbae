package schedule

import "fmt"

// Interval is a half-open [Start, End) range on a single day.
type Interval struct {
	Start Clock `json:"start"`
	End   Clock `json:"end"`
}

func (i Interval) String() string {
	return fmt.Sprintf("%s-%s", i.Start, i.End)
}

// Overlaps reports whether the two half-open ranges intersect.
// Touching ranges do not overlap.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start < other.End && i.End > other.Start
}

// Expand widens the range by the given minutes on both sides.
func (i Interval) Expand(minutes int) Interval {
	return Interval{Start: i.Start.Add(-minutes), End: i.End.Add(minutes)}
}

// Clamp restricts the range to w. The result may be empty.
func (i Interval) Clamp(w Window) Interval {
	out := i
	if out.Start < w.Start {
		out.Start = w.Start
	}
	if out.End > w.End {
		out.End = w.End
	}
	return out
}

// Empty reports whether the range covers no time.
func (i Interval) Empty() bool { return i.End <= i.Start }

// Booked is an occupied range on a court, identified by its reservation.
type Booked struct {
	ID       string
	Interval Interval
}

// FindConflict returns the first booked range that intersects req once the
// booked range is widened by buffer minutes. The entry with excludeID is
// ignored so a reservation never conflicts with itself.
func FindConflict(req Interval, booked []Booked, buffer int, excludeID string) (Booked, bool) {
	for _, b := range booked {
		if excludeID != "" && b.ID == excludeID {
			continue
		}
		if req.Overlaps(b.Interval.Expand(buffer)) {
			return b, true
		}
	}
	return Booked{}, false
}
