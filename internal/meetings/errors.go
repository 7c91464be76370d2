package meetings

import (
	"errors"
	"fmt"
	"strings"

	"github.com/teemow/meetsync/internal/model"
)

var (
	// ErrMeetingNotFound is returned for an unknown meeting ID.
	ErrMeetingNotFound = errors.New("meeting not found")

	// ErrInvalidTransition is returned when a meeting is not in a status that
	// allows the requested change, including when another caller changed it
	// first.
	ErrInvalidTransition = errors.New("invalid meeting status transition")
)

// BookingErrorKind classifies a refused booking.
type BookingErrorKind string

const (
	// NoSlotFree means the requested slot cannot be booked. Nothing was
	// written to any calendar.
	NoSlotFree BookingErrorKind = "no_slot_free"
	// PartialCalendarFailure means no calendar accepted the event. No meeting
	// was stored.
	PartialCalendarFailure BookingErrorKind = "partial_calendar_failure"
)

// BookingError is returned by Manager.BookMeeting when no meeting was stored.
type BookingError struct {
	Kind   BookingErrorKind
	Reason string
	// Result holds the per-side outcome for PartialCalendarFailure.
	Result *DualResult
}

func (e *BookingError) Error() string {
	switch e.Kind {
	case NoSlotFree:
		return fmt.Sprintf("slot not available: %s", e.Reason)
	case PartialCalendarFailure:
		return fmt.Sprintf("no calendar accepted the meeting: %s", e.Reason)
	default:
		return fmt.Sprintf("booking failed: %s", e.Reason)
	}
}

// Unwrap exposes the side errors so callers can test for calendar.ErrAuth.
func (e *BookingError) Unwrap() []error {
	if e.Result == nil {
		return nil
	}
	var errs []error
	for _, side := range []SideResult{e.Result.Manager, e.Result.Owner} {
		if side.Err != nil {
			errs = append(errs, side.Err)
		}
	}
	return errs
}

// UnrecordedMeetingError is returned by Manager.BookMeeting when calendar
// events were written but the meeting record could not be stored. The
// events are not deleted; Meeting names them for manual cleanup.
type UnrecordedMeetingError struct {
	Meeting model.Meeting
	Result  DualResult
	Err     error
}

func (e *UnrecordedMeetingError) Error() string {
	var events []string
	if e.Meeting.ManagerEventID != "" {
		events = append(events, e.Meeting.ManagerCalendarID+"/"+e.Meeting.ManagerEventID)
	}
	if e.Meeting.OwnerEventID != "" {
		events = append(events, e.Meeting.OwnerCalendarID+"/"+e.Meeting.OwnerEventID)
	}
	return fmt.Sprintf("failed to store meeting, calendar events left for manual cleanup (%s): %v",
		strings.Join(events, ", "), e.Err)
}

func (e *UnrecordedMeetingError) Unwrap() error {
	return e.Err
}

// IsBookingError reports whether err is a BookingError of the given kind.
func IsBookingError(err error, kind BookingErrorKind) bool {
	var be *BookingError
	return errors.As(err, &be) && be.Kind == kind
}
