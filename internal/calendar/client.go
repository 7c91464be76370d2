package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	calendar "google.golang.org/api/calendar/v3"

	"github.com/teemow/meetsync/internal/instrumentation"
	"github.com/teemow/meetsync/internal/logging"
	"github.com/teemow/meetsync/internal/model"
)

const (
	meetSolutionType = "hangoutsMeet"
	videoEntryPoint  = "video"
)

// Client implements Provider over the Google Calendar API.
type Client struct {
	services ServiceFactory
	metrics  *instrumentation.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewClient creates a Client. metrics and logger may be nil.
func NewClient(services ServiceFactory, metrics *instrumentation.Metrics, logger *slog.Logger) *Client {
	return &Client{
		services: services,
		metrics:  metrics,
		logger:   logging.OrDefault(logger),
		now:      time.Now,
	}
}

var _ Provider = (*Client)(nil)

// InsertEvent creates an event on the identity's calendar with the given
// conference shape.
func (c *Client) InsertEvent(ctx context.Context, identity model.CalendarIdentity, body EventBody, mode ConferenceMode) (InsertedEvent, error) {
	ctx, span := instrumentation.StartCalendarSpan(ctx, instrumentation.OperationInsert,
		instrumentation.NewSpanAttributeBuilder().
			WithMode(string(identity.Mode)).
			WithConference(string(mode)).
			Build()...)
	defer span.End()

	start := time.Now()
	created, err := c.insert(ctx, identity, body, mode)
	err = Classify(err, mode.Requested())
	c.metrics.RecordCalendarOperation(ctx, instrumentation.OperationInsert, string(identity.Mode), Kind(err), time.Since(start))
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return InsertedEvent{}, fmt.Errorf("failed to insert event: %w", err)
	}
	instrumentation.SetSpanSuccess(span)

	out := InsertedEvent{
		EventID:  created.Id,
		MeetLink: meetLink(created),
	}
	out.ConferenceAttached = out.MeetLink != "" ||
		(created.ConferenceData != nil && created.ConferenceData.ConferenceId != "")
	return out, nil
}

func (c *Client) insert(ctx context.Context, identity model.CalendarIdentity, body EventBody, mode ConferenceMode) (*calendar.Event, error) {
	svc, err := c.services.Service(ctx, identity)
	if err != nil {
		return nil, err
	}

	event := toEvent(body)
	call := svc.Events.Insert(identity.CalendarID, event).Context(ctx)

	switch mode {
	case ConferenceMinimal:
		event.ConferenceData = &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId: c.requestID(),
			},
		}
	case ConferenceFull:
		event.ConferenceData = &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId:             c.requestID(),
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{Type: meetSolutionType},
			},
		}
		call = call.ConferenceDataVersion(1)
	}

	return call.Do()
}

func (c *Client) requestID() string {
	return fmt.Sprintf("meet-%d-%s", c.now().Unix(), uuid.NewString())
}

// DeleteEvent removes an event.
func (c *Client) DeleteEvent(ctx context.Context, identity model.CalendarIdentity, eventID string) error {
	ctx, span := instrumentation.StartCalendarSpan(ctx, instrumentation.OperationDelete,
		instrumentation.NewSpanAttributeBuilder().WithMode(string(identity.Mode)).Build()...)
	defer span.End()

	start := time.Now()
	err := c.delete(ctx, identity, eventID)
	err = Classify(err, false)
	c.metrics.RecordCalendarOperation(ctx, instrumentation.OperationDelete, string(identity.Mode), Kind(err), time.Since(start))
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return fmt.Errorf("failed to delete event: %w", err)
	}
	instrumentation.SetSpanSuccess(span)
	return nil
}

func (c *Client) delete(ctx context.Context, identity model.CalendarIdentity, eventID string) error {
	svc, err := c.services.Service(ctx, identity)
	if err != nil {
		return err
	}
	return svc.Events.Delete(identity.CalendarID, eventID).Context(ctx).Do()
}

// QueryBusyIntervals runs a FreeBusy query for the identity's calendar.
func (c *Client) QueryBusyIntervals(ctx context.Context, identity model.CalendarIdentity, from, to time.Time) ([]model.Interval, error) {
	ctx, span := instrumentation.StartCalendarSpan(ctx, instrumentation.OperationFreeBusy,
		instrumentation.NewSpanAttributeBuilder().WithMode(string(identity.Mode)).Build()...)
	defer span.End()

	start := time.Now()
	busy, err := c.freeBusy(ctx, identity, from, to)
	err = Classify(err, false)
	c.metrics.RecordCalendarOperation(ctx, instrumentation.OperationFreeBusy, string(identity.Mode), Kind(err), time.Since(start))
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, fmt.Errorf("failed to query busy intervals: %w", err)
	}
	instrumentation.SetSpanSuccess(span)
	return busy, nil
}

func (c *Client) freeBusy(ctx context.Context, identity model.CalendarIdentity, from, to time.Time) ([]model.Interval, error) {
	svc, err := c.services.Service(ctx, identity)
	if err != nil {
		return nil, err
	}

	req := &calendar.FreeBusyRequest{
		TimeMin: from.Format(time.RFC3339),
		TimeMax: to.Format(time.RFC3339),
		Items:   []*calendar.FreeBusyRequestItem{{Id: identity.CalendarID}},
	}
	resp, err := svc.Freebusy.Query(req).Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	cal, ok := resp.Calendars[identity.CalendarID]
	if !ok {
		return nil, fmt.Errorf("%w: calendar missing from freebusy response", ErrNotFound)
	}
	if len(cal.Errors) > 0 {
		return nil, freeBusyError(cal.Errors[0])
	}

	intervals := make([]model.Interval, 0, len(cal.Busy))
	for _, period := range cal.Busy {
		s, err := time.Parse(time.RFC3339, period.Start)
		if err != nil {
			return nil, fmt.Errorf("failed to parse busy start %q: %w", period.Start, err)
		}
		e, err := time.Parse(time.RFC3339, period.End)
		if err != nil {
			return nil, fmt.Errorf("failed to parse busy end %q: %w", period.End, err)
		}
		intervals = append(intervals, model.Interval{Start: s, End: e})
	}
	sort.Slice(intervals, func(i, j int) bool { return intervals[i].Start.Before(intervals[j].Start) })
	return intervals, nil
}

func freeBusyError(e *calendar.Error) error {
	switch e.Reason {
	case "notFound":
		return fmt.Errorf("%w: freebusy reported %s", ErrNotFound, e.Reason)
	case "backendError", "internalError":
		return fmt.Errorf("%w: freebusy reported %s", ErrTransient, e.Reason)
	}
	return fmt.Errorf("freebusy reported %s for calendar %s", e.Reason, e.Domain)
}

func toEvent(body EventBody) *calendar.Event {
	event := &calendar.Event{
		Summary:     body.Summary,
		Description: body.Description,
		Start: &calendar.EventDateTime{
			DateTime: body.Start.Format(time.RFC3339),
			TimeZone: body.TimeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: body.End.Format(time.RFC3339),
			TimeZone: body.TimeZone,
		},
	}

	for _, a := range body.Attendees {
		event.Attendees = append(event.Attendees, &calendar.EventAttendee{
			Email:          a.Email,
			DisplayName:    a.DisplayName,
			Optional:       true,
			ResponseStatus: "needsAction",
		})
	}

	if len(body.Reminders) > 0 {
		reminders := &calendar.EventReminders{
			UseDefault: false,
			// UseDefault=false is the zero value and would otherwise be omitted.
			ForceSendFields: []string{"UseDefault"},
		}
		for _, r := range body.Reminders {
			reminders.Overrides = append(reminders.Overrides, &calendar.EventReminder{
				Method:  r.Method,
				Minutes: int64(r.Before / time.Minute),
			})
		}
		event.Reminders = reminders
	}
	return event
}

// meetLink returns the video entry point URI, falling back to HangoutLink.
func meetLink(event *calendar.Event) string {
	if event.ConferenceData != nil {
		for _, ep := range event.ConferenceData.EntryPoints {
			if ep.EntryPointType == videoEntryPoint && ep.Uri != "" {
				return ep.Uri
			}
		}
	}
	return event.HangoutLink
}
