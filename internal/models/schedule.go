package models

import (
	"fmt"
	"time"
)

// MinutesPerDay is the length of the daily schedule cycle.
const MinutesPerDay = 24 * 60

// ClockTime is a minute of the day, 0..1439.
type ClockTime int

// ParseClock parses "HH:MM" in 24-hour format.
func ParseClock(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: use HH:MM (24-hour)", s)
	}
	return ClockTime(t.Hour()*60 + t.Minute()), nil
}

// ClockOf returns the minute of the day of t in t's location.
func ClockOf(t time.Time) ClockTime {
	return ClockTime(t.Hour()*60 + t.Minute())
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Valid reports whether c is a minute of the day.
func (c ClockTime) Valid() bool { return c >= 0 && c < MinutesPerDay }

// MarshalText renders the clock as HH:MM.
func (c ClockTime) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText parses HH:MM.
func (c *ClockTime) UnmarshalText(b []byte) error {
	v, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// TimeWindow is a daily interval [Start, End). When Start > End the window crosses
// midnight and still forms one contiguous interval.
type TimeWindow struct {
	Start ClockTime `json:"start"`
	End   ClockTime `json:"end"`
}

// Valid reports whether both bounds are minutes of the day and the window is not empty.
func (w TimeWindow) Valid() bool {
	return w.Start.Valid() && w.End.Valid() && w.Start != w.End
}

// CrossesMidnight reports whether the window wraps past 00:00.
func (w TimeWindow) CrossesMidnight() bool { return w.Start > w.End }

// Contains reports whether c falls inside the window.
func (w TimeWindow) Contains(c ClockTime) bool {
	if w.CrossesMidnight() {
		return c >= w.Start || c < w.End
	}
	return c >= w.Start && c < w.End
}

// Overlaps reports whether the two windows share at least one minute.
func (w TimeWindow) Overlaps(o TimeWindow) bool {
	for _, a := range w.segments() {
		for _, b := range o.segments() {
			if a[0] < b[1] && b[0] < a[1] {
				return true
			}
		}
	}
	return false
}

// segments splits the window into non-wrapping half-open ranges.
func (w TimeWindow) segments() [][2]ClockTime {
	if w.CrossesMidnight() {
		return [][2]ClockTime{{w.Start, MinutesPerDay}, {0, w.End}}
	}
	return [][2]ClockTime{{w.Start, w.End}}
}

func (w TimeWindow) String() string { return w.Start.String() + "-" + w.End.String() }

// ScheduleRule maps a daily time window to target settings.
type ScheduleRule struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Window TimeWindow `json:"window"`
	Targets
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Label returns the rule name, falling back to its window.
func (r ScheduleRule) Label() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Window.String()
}

// Macro is a named bundle of target settings.
type Macro struct {
	Name string `json:"name"`
	Targets
}
