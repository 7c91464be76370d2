package model

import (
	"fmt"
	"time"
)

// ClockTime is a time of day expressed in minutes after midnight.
type ClockTime int

const endOfDay ClockTime = 24 * 60

// ParseClock parses "HH:MM" into a ClockTime. "24:00" is accepted as the end
// of the day.
func ParseClock(s string) (ClockTime, error) {
	if s == "24:00" {
		return endOfDay, nil
	}
	t, err := time.Parse("15:04", s)
	if err != nil || len(s) != len("15:04") {
		return 0, fmt.Errorf("invalid clock time %q, want HH:MM", s)
	}
	return ClockTime(t.Hour()*60 + t.Minute()), nil
}

// MustClock is ParseClock for literals known to be valid.
func MustClock(s string) ClockTime {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

// String formats the clock time as "HH:MM".
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// On returns the instant of this clock time on the given day in loc.
func (c ClockTime) On(day time.Time, loc *time.Location) time.Time {
	y, mo, d := day.In(loc).Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, loc).Add(time.Duration(c) * time.Minute)
}

// AvailabilityWindow is a recurring weekly range during which an owner accepts
// meetings.
type AvailabilityWindow struct {
	ID      string
	OwnerID string
	Weekday time.Weekday
	Start   ClockTime
	End     ClockTime
	Active  bool
}

// Validate checks that the window is a non-empty range within a day.
func (w AvailabilityWindow) Validate() error {
	if w.OwnerID == "" {
		return fmt.Errorf("availability window requires an owner")
	}
	if w.Weekday < time.Sunday || w.Weekday > time.Saturday {
		return fmt.Errorf("invalid weekday %d", w.Weekday)
	}
	if w.Start < 0 || w.End > 24*60 || w.Start >= w.End {
		return fmt.Errorf("invalid window %s-%s", w.Start, w.End)
	}
	return nil
}

// BlockedInterval is an ad-hoc exclusion of an owner's time.
type BlockedInterval struct {
	ID      string
	OwnerID string
	Start   time.Time
	End     time.Time
	Reason  string
}

// Validate checks that the interval is well ordered.
func (b BlockedInterval) Validate() error {
	if b.OwnerID == "" {
		return fmt.Errorf("blocked interval requires an owner")
	}
	if !b.End.After(b.Start) {
		return fmt.Errorf("blocked interval end %s must be after start %s",
			b.End.Format(time.RFC3339), b.Start.Format(time.RFC3339))
	}
	return nil
}

// Interval returns the blocked span.
func (b BlockedInterval) Interval() Interval {
	return Interval{Start: b.Start, End: b.End}
}
