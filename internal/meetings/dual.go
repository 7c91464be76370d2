package meetings

import (
	"context"
	"log/slog"
	"time"

	"github.com/teemow/meetsync/internal/calendar"
	"github.com/teemow/meetsync/internal/eventwriter"
	"github.com/teemow/meetsync/internal/instrumentation"
	"github.com/teemow/meetsync/internal/logging"
)

// Side names one of the two calendars of a meeting.
type Side string

const (
	SideManager Side = "manager"
	SideOwner   Side = "owner"
)

// EventWriter writes one event on one calendar.
type EventWriter interface {
	Write(ctx context.Context, calendarID string, draft eventwriter.Draft) (eventwriter.Result, error)
}

// SideResult is the outcome of one side of a dual write.
type SideResult struct {
	eventwriter.Result
	Side Side
	// Skipped is set when the side had no calendar of its own to write to.
	Skipped bool
}

// DualResult is the outcome of writing both sides of a meeting.
type DualResult struct {
	Manager SideResult
	Owner   SideResult
}

// Bookable reports whether at least one side holds an event.
func (r DualResult) Bookable() bool {
	return r.Manager.Success || r.Owner.Success
}

// Partial reports whether one side holds an event while the other side was
// attempted and failed.
func (r DualResult) Partial() bool {
	return r.Bookable() && (r.Manager.failed() || r.Owner.failed())
}

// MeetLink returns the first conference link found, manager side first.
func (r DualResult) MeetLink() string {
	if r.Manager.MeetLink != "" {
		return r.Manager.MeetLink
	}
	return r.Owner.MeetLink
}

// ConferenceAttached reports whether either side carries a conference.
func (r DualResult) ConferenceAttached() bool {
	return r.Manager.ConferenceAttached || r.Owner.ConferenceAttached
}

func (s SideResult) failed() bool {
	return !s.Skipped && !s.Success
}

// MeetingDraft is the content shared by both sides of a meeting.
type MeetingDraft struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	TimeZone    string
	Reminders   []calendar.Reminder
	// Manager is invited on the owner-side event and Owner on the
	// manager-side event. Empty emails are not invited.
	Manager calendar.Attendee
	Owner   calendar.Attendee
}

func (d MeetingDraft) side(description string, invitee calendar.Attendee) eventwriter.Draft {
	out := eventwriter.Draft{
		Summary:     d.Summary,
		Description: description,
		Start:       d.Start,
		End:         d.End,
		TimeZone:    d.TimeZone,
		Reminders:   d.Reminders,
	}
	if invitee.Email != "" {
		out.Attendees = []calendar.Attendee{invitee}
	}
	return out
}

// DualWriter writes a meeting into the manager's and the owner's calendars.
type DualWriter struct {
	writer EventWriter
	logger *slog.Logger
}

// NewDualWriter creates a DualWriter.
func NewDualWriter(writer EventWriter, logger *slog.Logger) *DualWriter {
	return &DualWriter{writer: writer, logger: logging.OrDefault(logger)}
}

// Create writes the manager side and then the owner side, once each. The
// owner side is skipped when it has no calendar or shares the manager's. A
// failure on one side never prevents the other.
func (d *DualWriter) Create(ctx context.Context, managerCalendarID, ownerCalendarID string, draft MeetingDraft) DualResult {
	res := DualResult{
		Manager: SideResult{Side: SideManager},
		Owner:   SideResult{Side: SideOwner},
	}

	if managerCalendarID == "" {
		res.Manager.Skipped = true
	} else {
		res.Manager.Result = d.write(ctx, SideManager, managerCalendarID, draft.side(draft.Description, draft.Owner))
	}

	if ownerCalendarID == "" || ownerCalendarID == managerCalendarID {
		res.Owner.Skipped = true
		return res
	}

	description := draft.Description
	if res.Manager.Success && res.Manager.MeetLink != "" {
		description += "\n\nGoogle Meet: " + res.Manager.MeetLink
	}
	res.Owner.Result = d.write(ctx, SideOwner, ownerCalendarID, draft.side(description, draft.Manager))
	return res
}

func (d *DualWriter) write(ctx context.Context, side Side, calendarID string, draft eventwriter.Draft) eventwriter.Result {
	attrs := instrumentation.NewSpanAttributeBuilder().WithSide(string(side)).Build()
	ctx, span := instrumentation.StartSpan(ctx, "meetings.write_"+string(side), attrs...)
	defer span.End()

	res, err := d.writer.Write(ctx, calendarID, draft)
	defer func() {
		if res.Success {
			instrumentation.SetSpanSuccess(span)
		} else {
			instrumentation.SetSpanError(span, res.Err)
		}
	}()
	if err != nil {
		// Authorization failures stop only this side.
		d.logger.Error("calendar side rejected credentials",
			logging.Side(string(side)),
			logging.Calendar(calendarID),
			logging.Err(err))
		res.Success = false
		if res.Err == nil {
			res.Err = err
		}
	}
	return res
}
