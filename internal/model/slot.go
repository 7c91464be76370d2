package model

import "time"

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Empty reports whether the interval covers no time.
func (i Interval) Empty() bool {
	return !i.End.After(i.Start)
}

// Overlaps reports whether the two intervals share any instant.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// Duration returns the length of the interval.
func (i Interval) Duration() time.Duration {
	if i.Empty() {
		return 0
	}
	return i.End.Sub(i.Start)
}

// Slot is a bookable meeting candidate.
type Slot struct {
	Start time.Time
	End   time.Time
}

// Date returns the slot day as YYYY-MM-DD in the slot's location.
func (s Slot) Date() string {
	return s.Start.Format("2006-01-02")
}

// Clock returns the slot start as HH:MM in the slot's location.
func (s Slot) Clock() string {
	return s.Start.Format("15:04")
}

// Interval returns the span the slot occupies.
func (s Slot) Interval() Interval {
	return Interval{Start: s.Start, End: s.End}
}

// CalendarMode says how a calendar is authenticated.
type CalendarMode string

const (
	// ModeDelegated acts on behalf of a specific person through their consented,
	// refreshable authorization.
	ModeDelegated CalendarMode = "delegated"
	// ModeShared acts through a service identity with no per-person consent.
	ModeShared CalendarMode = "shared"
)

// CalendarIdentity is a calendar ID tagged with its authentication mode. It is
// derived per operation and never stored.
type CalendarIdentity struct {
	CalendarID    string
	Mode          CalendarMode
	ParticipantID string
}
