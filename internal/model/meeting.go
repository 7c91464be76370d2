package model

import (
	"errors"
	"fmt"
	"time"
)

// Status is the lifecycle state of a meeting.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

// ParseStatus converts a stored string into a Status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusScheduled, StatusCompleted, StatusCancelled, StatusNoShow:
		return st, nil
	}
	return "", fmt.Errorf("unknown meeting status %q", s)
}

// IsTerminal reports whether no further transition may leave this status.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

// CanTransition reports whether a meeting in status s may move to next.
// Only scheduled meetings move, and only into a terminal state.
func (s Status) CanTransition(next Status) bool {
	return s == StatusScheduled && next.IsTerminal()
}

// ErrNoEventIDs is returned by Meeting.Validate for a scheduled meeting that has
// no calendar event on either side.
var ErrNoEventIDs = errors.New("scheduled meeting must have at least one calendar event")

// Meeting is one booked session between a manager and the owners.
//
// ManagerCalendarID and OwnerCalendarID are the calendars the events were
// created on. They are captured at booking time and never re-derived, since a
// participant may switch calendars later. An empty event ID means that side has
// no event.
type Meeting struct {
	ID        string
	ManagerID string
	Start     time.Time
	Duration  time.Duration
	Status    Status

	ManagerCalendarID string
	ManagerEventID    string
	OwnerCalendarID   string
	OwnerEventID      string

	MeetLink           string
	ConferenceAttached bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// End returns the end time of the meeting.
func (m Meeting) End() time.Time {
	return m.Start.Add(m.Duration)
}

// Interval returns the time span occupied by the meeting.
func (m Meeting) Interval() Interval {
	return Interval{Start: m.Start, End: m.End()}
}

// HasEvents reports whether at least one side holds an event ID.
func (m Meeting) HasEvents() bool {
	return m.ManagerEventID != "" || m.OwnerEventID != ""
}

// Validate checks the record invariants.
func (m Meeting) Validate() error {
	if m.ID == "" {
		return errors.New("meeting id is required")
	}
	if m.ManagerID == "" {
		return errors.New("manager id is required")
	}
	if m.Duration <= 0 {
		return fmt.Errorf("meeting duration must be positive, got %s", m.Duration)
	}
	if _, err := ParseStatus(string(m.Status)); err != nil {
		return err
	}
	if m.Status == StatusScheduled && !m.HasEvents() {
		return ErrNoEventIDs
	}
	return nil
}
