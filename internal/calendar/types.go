package calendar

import (
	"context"
	"time"

	"github.com/teemow/meetsync/internal/model"
)

// ConferenceMode selects the conference request shape sent with an insert.
type ConferenceMode string

const (
	// ConferenceNone sends no conference data.
	ConferenceNone ConferenceMode = "none"
	// ConferenceMinimal sends only a create request with a request ID and
	// no version parameter. Delegated calendars accept this shape.
	ConferenceMinimal ConferenceMode = "minimal"
	// ConferenceFull adds the hangoutsMeet solution key and
	// conferenceDataVersion=1. Shared calendars need this shape.
	ConferenceFull ConferenceMode = "full"
)

// Requested reports whether the mode carries conference data.
func (m ConferenceMode) Requested() bool {
	return m == ConferenceMinimal || m == ConferenceFull
}

// Attendee is an optional invitee of an event.
type Attendee struct {
	Email       string
	DisplayName string
}

// Reminder overrides the calendar's default reminders.
type Reminder struct {
	Method string // "popup" or "email"
	Before time.Duration
}

// EventBody is the provider-neutral event content.
type EventBody struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	TimeZone    string
	Attendees   []Attendee
	Reminders   []Reminder
}

// InsertedEvent is what the provider returns for a created event.
type InsertedEvent struct {
	EventID            string
	MeetLink           string
	ConferenceAttached bool
}

// Provider is the calendar surface the scheduling engine depends on.
type Provider interface {
	// InsertEvent creates an event. Errors wrap ErrAuth,
	// ErrConferenceRejected or ErrTransient where they apply.
	InsertEvent(ctx context.Context, identity model.CalendarIdentity, body EventBody, mode ConferenceMode) (InsertedEvent, error)

	// DeleteEvent removes an event. A missing event yields ErrNotFound.
	DeleteEvent(ctx context.Context, identity model.CalendarIdentity, eventID string) error

	// QueryBusyIntervals returns the busy intervals of the identity's
	// calendar in [from, to), sorted by start.
	QueryBusyIntervals(ctx context.Context, identity model.CalendarIdentity, from, to time.Time) ([]model.Interval, error)
}
