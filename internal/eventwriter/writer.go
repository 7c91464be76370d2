package eventwriter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/teemow/meetsync/internal/calendar"
	"github.com/teemow/meetsync/internal/instrumentation"
	"github.com/teemow/meetsync/internal/logging"
	"github.com/teemow/meetsync/internal/model"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Shape names an insert attempt in the fallback sequence.
type Shape string

const (
	// ShapeWithConference is the first attempt, carrying the conference
	// request appropriate for the calendar's identity mode.
	ShapeWithConference Shape = "with_conference"
	// ShapeWithoutConference is the single retry after the provider rejected
	// the conference request. All other fields are unchanged.
	ShapeWithoutConference Shape = "without_conference"
)

// ValidationError reports a malformed attendee contact. The attendee is
// omitted and the event is still written.
type ValidationError struct {
	Field string
	Value string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
}

// IdentityResolver maps a calendar ID to the identity used to write to it.
type IdentityResolver interface {
	Resolve(ctx context.Context, calendarID string) (model.CalendarIdentity, error)
}

// Draft is the content of one event before identity-specific shaping.
type Draft struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	TimeZone    string
	Attendees   []calendar.Attendee
	Reminders   []calendar.Reminder
}

// Attempt records one insert call.
type Attempt struct {
	Shape      Shape
	Conference calendar.ConferenceMode
	Err        error
}

// Result is the outcome of Write.
type Result struct {
	Success            bool
	CalendarID         string
	EventID            string
	ConferenceAttached bool
	MeetLink           string
	Mode               model.CalendarMode
	// AttendeeDropped is set when any draft attendee was left off the event,
	// either because it was malformed or because the identity may not invite.
	AttendeeDropped bool
	Attempts        []Attempt
	// Err is the cause of a failed write. It is nil on success.
	Err error
}

// Fallback reports whether the event was written by the retry without
// conference data.
func (r Result) Fallback() bool {
	return r.Success && len(r.Attempts) == 2
}

// Options configures a Writer.
type Options struct {
	// SharedAttendees allows attendees on events written through the shared
	// identity.
	SharedAttendees bool
	// Timeout bounds every insert call. Zero means no extra bound.
	Timeout time.Duration
}

// Writer creates single calendar events with conferencing where the
// provider allows it.
type Writer struct {
	identities IdentityResolver
	provider   calendar.Provider
	opts       Options
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
}

// New creates a Writer.
func New(identities IdentityResolver, provider calendar.Provider, opts Options, metrics *instrumentation.Metrics, logger *slog.Logger) *Writer {
	return &Writer{
		identities: identities,
		provider:   provider,
		opts:       opts,
		metrics:    metrics,
		logger:     logging.OrDefault(logger),
	}
}

// Write creates the draft on calendarID. It makes at most two insert calls:
// one with conference data and, only if the provider rejected the
// conference request, one without.
//
// The returned error is non-nil only for authorization failures, which the
// caller must surface. Every other failure is reported through Result.
func (w *Writer) Write(ctx context.Context, calendarID string, draft Draft) (Result, error) {
	logger := w.logger.With(logging.Operation("write_event"), logging.Calendar(calendarID))
	res := Result{CalendarID: calendarID}

	identity, err := w.identities.Resolve(ctx, calendarID)
	if err != nil {
		res.Err = fmt.Errorf("failed to resolve calendar identity: %w", err)
		logger.Warn("event not written", logging.Err(res.Err))
		return res, nil
	}
	res.Mode = identity.Mode
	logger = logger.With(logging.Mode(string(identity.Mode)))

	body, dropped := w.body(identity, draft, logger)
	res.AttendeeDropped = dropped

	mode := conferenceModeFor(identity.Mode)
	event, err := w.insert(ctx, identity, body, mode, &res)
	if err != nil && errors.Is(err, calendar.ErrConferenceRejected) {
		logger.Info("conference request rejected, retrying without conference", logging.Err(err))
		event, err = w.insert(ctx, identity, body, calendar.ConferenceNone, &res)
		fallback := instrumentation.FallbackRecovered
		if err != nil {
			fallback = instrumentation.FallbackFailed
		}
		w.metrics.RecordConferenceFallback(ctx, string(identity.Mode), fallback)
		instrumentation.AddSpanEvent(trace.SpanFromContext(ctx), "conference_fallback",
			attribute.String(instrumentation.SpanAttrCalendarMode, string(identity.Mode)),
			attribute.String("calendar.fallback", fallback))
	}

	if err != nil {
		res.Err = err
		if errors.Is(err, calendar.ErrAuth) {
			logger.Error("calendar authorization failed", logging.Err(err))
			return res, err
		}
		logger.Warn("event not written", slog.Int("attempts", len(res.Attempts)), logging.Err(err))
		return res, nil
	}

	res.Success = true
	res.EventID = event.EventID
	res.MeetLink = event.MeetLink
	res.ConferenceAttached = event.ConferenceAttached
	logger.Info("event written",
		slog.Int("attempts", len(res.Attempts)),
		slog.Bool("conference", res.ConferenceAttached))
	return res, nil
}

func (w *Writer) insert(ctx context.Context, identity model.CalendarIdentity, body calendar.EventBody, mode calendar.ConferenceMode, res *Result) (calendar.InsertedEvent, error) {
	if w.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.opts.Timeout)
		defer cancel()
	}

	shape := ShapeWithConference
	if !mode.Requested() {
		shape = ShapeWithoutConference
	}
	event, err := w.provider.InsertEvent(ctx, identity, body, mode)
	res.Attempts = append(res.Attempts, Attempt{Shape: shape, Conference: mode, Err: err})
	return event, err
}

// body applies identity-specific attendee rules to the draft.
func (w *Writer) body(identity model.CalendarIdentity, draft Draft, logger *slog.Logger) (calendar.EventBody, bool) {
	body := calendar.EventBody{
		Summary:     draft.Summary,
		Description: draft.Description,
		Start:       draft.Start,
		End:         draft.End,
		TimeZone:    draft.TimeZone,
		Reminders:   draft.Reminders,
	}

	dropped := false
	if identity.Mode == model.ModeShared && !w.opts.SharedAttendees {
		if len(draft.Attendees) > 0 {
			logger.Debug("attendees omitted for shared identity", slog.Int("count", len(draft.Attendees)))
			dropped = true
		}
		return body, dropped
	}

	for _, a := range draft.Attendees {
		if ValidateAttendee(a) != nil {
			logger.Warn("attendee omitted, invalid email", logging.UserHash(a.Email))
			dropped = true
			continue
		}
		body.Attendees = append(body.Attendees, calendar.Attendee{
			Email:       strings.TrimSpace(a.Email),
			DisplayName: a.DisplayName,
		})
	}
	return body, dropped
}

// ValidateAttendee checks that an attendee has a well-formed email address.
func ValidateAttendee(a calendar.Attendee) error {
	if !emailPattern.MatchString(strings.TrimSpace(a.Email)) {
		return &ValidationError{Field: "attendee email", Value: a.Email}
	}
	return nil
}

func conferenceModeFor(mode model.CalendarMode) calendar.ConferenceMode {
	if mode == model.ModeDelegated {
		return calendar.ConferenceMinimal
	}
	return calendar.ConferenceFull
}
