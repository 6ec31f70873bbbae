package schedule

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Window is a half-open [Start, End) opening range within a day.
type Window struct {
	Start Clock
	End   Clock
}

// ParseWindow parses "HH:MM-HH:MM".
func ParseWindow(s string) (Window, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return Window{}, fmt.Errorf("invalid window %q: expected HH:MM-HH:MM", s)
	}
	start, err := ParseClock(parts[0])
	if err != nil {
		return Window{}, fmt.Errorf("invalid window %q: %w", s, err)
	}
	end, err := ParseClock(parts[1])
	if err != nil {
		return Window{}, fmt.Errorf("invalid window %q: %w", s, err)
	}
	if start >= end {
		return Window{}, fmt.Errorf("invalid window %q: start must be before end", s)
	}
	return Window{Start: start, End: end}, nil
}

func (w Window) String() string {
	return w.Start.String() + "-" + w.End.String()
}

// Minutes is the length of the window.
func (w Window) Minutes() int { return int(w.End - w.Start) }

// Contains reports whether [start, end) lies entirely inside the window.
func (w Window) Contains(start, end Clock) bool {
	return w.Start <= start && end <= w.End
}

// Interval converts the window into an Interval.
func (w Window) Interval() Interval { return Interval{Start: w.Start, End: w.End} }

// OpeningHours maps each weekday to its ordered, non-overlapping windows.
type OpeningHours map[Weekday][]Window

// ParseOpeningHours builds opening hours from day names to "HH:MM-HH:MM" ranges.
func ParseOpeningHours(raw map[string][]string) (OpeningHours, error) {
	hours := make(OpeningHours, len(raw))
	for name, ranges := range raw {
		day, err := ParseWeekday(name)
		if err != nil {
			return nil, err
		}
		windows := make([]Window, 0, len(ranges))
		for _, r := range ranges {
			w, err := ParseWindow(r)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", day, err)
			}
			windows = append(windows, w)
		}
		hours[day] = windows
	}
	if err := hours.Validate(); err != nil {
		return nil, err
	}
	return hours, nil
}

// Validate sorts each day's windows and rejects empty or overlapping ranges.
func (h OpeningHours) Validate() error {
	for day, windows := range h {
		if !day.Valid() {
			return fmt.Errorf("invalid weekday %d", int(day))
		}
		sort.Slice(windows, func(i, j int) bool { return windows[i].Start < windows[j].Start })
		for i, w := range windows {
			if w.Start >= w.End {
				return fmt.Errorf("%s: window %s: start must be before end", day, w)
			}
			if i > 0 && w.Start < windows[i-1].End {
				return fmt.Errorf("%s: windows %s and %s overlap", day, windows[i-1], w)
			}
		}
	}
	return nil
}

// FirstWindow returns the earliest window of the day.
func (h OpeningHours) FirstWindow(day Weekday) (Window, bool) {
	windows := h[day]
	if len(windows) == 0 {
		return Window{}, false
	}
	return windows[0], true
}

// Covers reports whether some window of the day fully contains [start, end).
func (h OpeningHours) Covers(day Weekday, start, end Clock) bool {
	for _, w := range h[day] {
		if w.Contains(start, end) {
			return true
		}
	}
	return false
}

// Raw is the inverse of ParseOpeningHours.
func (h OpeningHours) Raw() map[string][]string {
	raw := make(map[string][]string, len(h))
	for day, windows := range h {
		ranges := make([]string, len(windows))
		for i, w := range windows {
			ranges[i] = w.String()
		}
		raw[day.String()] = ranges
	}
	return raw
}

func (h OpeningHours) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.Raw())
}

func (h *OpeningHours) UnmarshalJSON(data []byte) error {
	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseOpeningHours(raw)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// LoadLocation resolves an IANA zone name.
func LoadLocation(name string) (*time.Location, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("timezone is required")
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", name, err)
	}
	return loc, nil
}
