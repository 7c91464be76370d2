package meetings

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teemow/meetsync/internal/availability"
	"github.com/teemow/meetsync/internal/calendar"
	"github.com/teemow/meetsync/internal/config"
	"github.com/teemow/meetsync/internal/ics"
	"github.com/teemow/meetsync/internal/instrumentation"
	"github.com/teemow/meetsync/internal/logging"
	"github.com/teemow/meetsync/internal/model"
	"github.com/teemow/meetsync/internal/store"
)

// SlotResolver computes free time for booking.
type SlotResolver interface {
	AvailableSlots(ctx context.Context, from time.Time, dayRange int) (availability.Result, error)
	IsFree(ctx context.Context, iv model.Interval) (bool, []string, error)
}

// Deps are the collaborators of a Manager.
type Deps struct {
	Store   store.Store
	Slots   SlotResolver
	Writer  *DualWriter
	Deleter *Deleter
	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Booking is a stored meeting together with how its calendars were written.
type Booking struct {
	Meeting  model.Meeting
	Result   DualResult
	Warnings []string
}

// CancelResult is the outcome of a cancellation. The meeting is cancelled
// whenever OK is set, even if some calendar events remain.
type CancelResult struct {
	OK                      bool
	Meeting                 model.Meeting
	Delete                  DeleteResult
	RemoteCleanupIncomplete bool
}

// Overdue is a manager who has not met recently enough.
type Overdue struct {
	Manager model.Participant
	// Last is the manager's most recent held or scheduled meeting, or nil.
	Last *model.Meeting
}

// Manager runs the meeting lifecycle: listing slots, booking, cancelling and
// closing meetings.
type Manager struct {
	cfg     config.Config
	loc     *time.Location
	store   store.Store
	slots   SlotResolver
	writer  *DualWriter
	deleter *Deleter
	metrics *instrumentation.Metrics
	logger  *slog.Logger
	now     func() time.Time

	// bookMu serializes the free check and the insert of a booking so two
	// bookings cannot both claim one slot.
	bookMu sync.Mutex
}

// NewManager creates a Manager. cfg must have been validated.
func NewManager(cfg config.Config, deps Deps) *Manager {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		cfg:     cfg,
		loc:     cfg.Location(),
		store:   deps.Store,
		slots:   deps.Slots,
		writer:  deps.Writer,
		deleter: deps.Deleter,
		metrics: deps.Metrics,
		logger:  logging.OrDefault(deps.Logger),
		now:     now,
	}
}

// Location returns the timezone slots are expressed in.
func (m *Manager) Location() *time.Location {
	return m.loc
}

// ListAvailableSlots returns the bookable slots of the next dayRange days.
// A non-positive dayRange means the configured default. The range never
// exceeds the booking horizon.
func (m *Manager) ListAvailableSlots(ctx context.Context, dayRange int) (availability.Result, error) {
	if dayRange <= 0 {
		dayRange = m.cfg.DaysAhead
	}
	if m.cfg.MaxBookingDaysAhead > 0 {
		dayRange = min(dayRange, m.cfg.MaxBookingDaysAhead)
	}
	res, err := m.slots.AvailableSlots(ctx, m.now(), dayRange)
	if err != nil {
		return availability.Result{}, fmt.Errorf("failed to compute available slots: %w", err)
	}
	return res, nil
}

// BookMeeting books the slot starting at start for managerID. A refused or
// entirely failed booking is a *BookingError; nothing is stored then. When
// the events were written but the meeting could not be stored the error is
// an *UnrecordedMeetingError and the events are left in place.
func (m *Manager) BookMeeting(ctx context.Context, managerID string, start time.Time) (*Booking, error) {
	logger := logging.WithOperation(m.logger, "book_meeting").With(logging.Participant(managerID))

	manager, err := m.bookingManager(ctx, managerID)
	if err != nil {
		return nil, m.rejected(ctx, logger, err)
	}

	slot := model.Slot{Start: start.In(m.loc), End: start.In(m.loc).Add(m.cfg.MeetingDuration)}
	now := m.now()
	if !slot.Start.After(now) {
		return nil, m.rejected(ctx, logger, noSlot("slot start is in the past"))
	}
	if m.cfg.MaxBookingDaysAhead > 0 && slot.Start.After(now.AddDate(0, 0, m.cfg.MaxBookingDaysAhead)) {
		return nil, m.rejected(ctx, logger, noSlot(fmt.Sprintf("slot is more than %d days ahead", m.cfg.MaxBookingDaysAhead)))
	}

	m.bookMu.Lock()
	defer m.bookMu.Unlock()

	if m.cfg.OneMeetingPerWindow {
		recent, err := m.RecentMeeting(ctx, managerID)
		if err != nil {
			return nil, err
		}
		if recent != nil {
			next := recent.Start.Add(m.cfg.RecentWindow).In(m.loc)
			return nil, m.rejected(ctx, logger, noSlot(fmt.Sprintf(
				"manager already has a meeting on %s, next booking allowed from %s",
				recent.Start.In(m.loc).Format(time.DateOnly), next.Format(time.DateOnly))))
		}
	}

	free, diags, err := m.slots.IsFree(ctx, slot.Interval())
	if err != nil {
		return nil, fmt.Errorf("failed to check slot: %w", err)
	}
	if !free {
		reason := "slot is no longer free"
		if len(diags) > 0 {
			reason += " (" + strings.Join(diags, "; ") + ")"
		}
		return nil, m.rejected(ctx, logger, noSlot(reason))
	}

	owners, err := m.owners(ctx)
	if err != nil {
		return nil, err
	}

	managerCalendar := manager.CalendarID
	if managerCalendar == "" {
		managerCalendar = m.cfg.SharedCalendarID
	}
	ownerCalendar := ""
	if len(owners) > 0 {
		ownerCalendar = owners[0].CalendarID
	}

	draft := m.draft(manager, owners, slot)
	result := m.writer.Create(ctx, managerCalendar, ownerCalendar, draft)
	if !result.Bookable() {
		m.metrics.RecordBooking(ctx, instrumentation.BookingFailed)
		be := &BookingError{Kind: PartialCalendarFailure, Reason: failureReason(result), Result: &result}
		logger.Warn("booking failed on every calendar", logging.Err(be))
		return nil, be
	}

	createdAt := m.now()
	meeting := model.Meeting{
		ID:                 uuid.NewString(),
		ManagerID:          managerID,
		Start:              slot.Start,
		Duration:           m.cfg.MeetingDuration,
		Status:             model.StatusScheduled,
		MeetLink:           result.MeetLink(),
		ConferenceAttached: result.ConferenceAttached(),
		CreatedAt:          createdAt,
		UpdatedAt:          createdAt,
	}
	if result.Manager.Success {
		meeting.ManagerCalendarID = managerCalendar
		meeting.ManagerEventID = result.Manager.EventID
	}
	if result.Owner.Success {
		meeting.OwnerCalendarID = ownerCalendar
		meeting.OwnerEventID = result.Owner.EventID
	}

	if err := m.store.CreateMeeting(ctx, meeting); err != nil {
		// Issued writes are never rolled back. The events stay in place and
		// are listed for manual cleanup.
		for _, side := range []struct {
			side       Side
			calendarID string
			eventID    string
		}{
			{SideManager, meeting.ManagerCalendarID, meeting.ManagerEventID},
			{SideOwner, meeting.OwnerCalendarID, meeting.OwnerEventID},
		} {
			if side.eventID == "" {
				continue
			}
			logger.Error("calendar event has no stored meeting, remove it manually",
				logging.Side(string(side.side)),
				logging.Calendar(side.calendarID),
				slog.String("event_id", side.eventID),
				slog.Time("start", meeting.Start))
		}
		m.metrics.RecordBooking(ctx, instrumentation.BookingFailed)
		return nil, &UnrecordedMeetingError{Meeting: meeting, Result: result, Err: err}
	}

	outcome := instrumentation.BookingBoth
	if result.Partial() {
		outcome = instrumentation.BookingPartial
	}
	m.metrics.RecordBooking(ctx, outcome)

	booking := &Booking{Meeting: meeting, Result: result, Warnings: warnings(result)}
	logger.Info("meeting booked",
		logging.MeetingID(meeting.ID),
		slog.Time("start", meeting.Start),
		slog.Bool("partial", result.Partial()),
		slog.Bool("conference", meeting.ConferenceAttached))
	return booking, nil
}

// bookingManager loads the manager and checks they may book.
func (m *Manager) bookingManager(ctx context.Context, managerID string) (model.Participant, error) {
	p, err := m.store.GetParticipant(ctx, managerID)
	if errors.Is(err, store.ErrNotFound) {
		return model.Participant{}, noSlot("manager not found")
	}
	if err != nil {
		return model.Participant{}, fmt.Errorf("failed to load manager: %w", err)
	}
	if p.Role != model.RoleManager {
		return model.Participant{}, noSlot(fmt.Sprintf("participant %s is not a manager", managerID))
	}
	if !p.Active() {
		return model.Participant{}, noSlot(fmt.Sprintf("manager is %s", p.Status))
	}
	return p, nil
}

// owners loads the configured owners that exist, in order.
func (m *Manager) owners(ctx context.Context) ([]model.Participant, error) {
	var out []model.Participant
	for _, id := range m.cfg.OwnerIDs {
		p, err := m.store.GetParticipant(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load owner %s: %w", id, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *Manager) draft(manager model.Participant, owners []model.Participant, slot model.Slot) MeetingDraft {
	department := manager.Department
	if department == "" {
		department = manager.Name
	}
	names := make([]string, 0, len(owners))
	for _, o := range owners {
		names = append(names, o.Name)
	}

	d := MeetingDraft{
		Summary:     m.cfg.Summary(department),
		Description: Description(manager.Name, strings.Join(names, ", "), department),
		Start:       slot.Start,
		End:         slot.End,
		TimeZone:    m.loc.String(),
		Reminders:   m.reminders(),
		Manager:     calendar.Attendee{Email: manager.Email, DisplayName: manager.Name},
	}
	if len(owners) > 0 {
		d.Owner = calendar.Attendee{Email: owners[0].Email, DisplayName: owners[0].Name}
	}
	return d
}

func (m *Manager) reminders() []calendar.Reminder {
	var out []calendar.Reminder
	if m.cfg.Reminders.PopupBefore > 0 {
		out = append(out, calendar.Reminder{Method: "popup", Before: m.cfg.Reminders.PopupBefore})
	}
	if m.cfg.Reminders.EmailBefore > 0 {
		out = append(out, calendar.Reminder{Method: "email", Before: m.cfg.Reminders.EmailBefore})
	}
	return out
}

func (m *Manager) rejected(ctx context.Context, logger *slog.Logger, err error) error {
	if IsBookingError(err, NoSlotFree) {
		m.metrics.RecordBooking(ctx, instrumentation.BookingRejected)
		logger.Info("booking refused", logging.Err(err))
	}
	return err
}

func noSlot(reason string) *BookingError {
	return &BookingError{Kind: NoSlotFree, Reason: reason}
}

// CancelMeeting cancels a scheduled meeting and then removes its calendar
// events. The status change is committed first; remote failures only mark
// the result as incomplete.
func (m *Manager) CancelMeeting(ctx context.Context, meetingID string) (CancelResult, error) {
	meeting, err := m.transition(ctx, meetingID, model.StatusCancelled)
	if err != nil {
		return CancelResult{}, err
	}

	del := m.deleter.Delete(ctx, meeting)
	res := CancelResult{
		OK:                      true,
		Meeting:                 meeting,
		Delete:                  del,
		RemoteCleanupIncomplete: del.AnyFailed,
	}

	cleanup := instrumentation.CleanupComplete
	if del.AnyFailed {
		cleanup = instrumentation.CleanupIncomplete
	}
	m.metrics.RecordCancellation(ctx, cleanup)
	m.logger.Info("meeting cancelled",
		logging.Operation("cancel_meeting"),
		logging.MeetingID(meeting.ID),
		slog.Int("deletes", len(del.Attempts)),
		slog.Bool("cleanup_incomplete", del.AnyFailed))
	return res, nil
}

// MarkCompleted records that a scheduled meeting took place.
func (m *Manager) MarkCompleted(ctx context.Context, meetingID string) (model.Meeting, error) {
	return m.transition(ctx, meetingID, model.StatusCompleted)
}

// MarkNoShow records that the manager did not attend a scheduled meeting.
func (m *Manager) MarkNoShow(ctx context.Context, meetingID string) (model.Meeting, error) {
	return m.transition(ctx, meetingID, model.StatusNoShow)
}

func (m *Manager) transition(ctx context.Context, meetingID string, to model.Status) (model.Meeting, error) {
	updated, err := m.store.UpdateStatus(ctx, meetingID, model.StatusScheduled, to)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return model.Meeting{}, fmt.Errorf("%w: %s", ErrMeetingNotFound, meetingID)
	case errors.Is(err, store.ErrStatusConflict):
		return model.Meeting{}, fmt.Errorf("%w: meeting %s is not scheduled", ErrInvalidTransition, meetingID)
	case err != nil:
		return model.Meeting{}, fmt.Errorf("failed to update meeting status: %w", err)
	}
	m.logger.Debug("meeting status changed",
		logging.MeetingID(meetingID),
		logging.Status(string(to)))
	return updated, nil
}

// GetMeeting returns one meeting.
func (m *Manager) GetMeeting(ctx context.Context, meetingID string) (model.Meeting, error) {
	meeting, err := m.store.GetMeeting(ctx, meetingID)
	if errors.Is(err, store.ErrNotFound) {
		return model.Meeting{}, fmt.Errorf("%w: %s", ErrMeetingNotFound, meetingID)
	}
	if err != nil {
		return model.Meeting{}, fmt.Errorf("failed to load meeting: %w", err)
	}
	return meeting, nil
}

// ListMeetings returns the meetings matching filter, ordered by start.
func (m *Manager) ListMeetings(ctx context.Context, filter store.MeetingFilter) ([]model.Meeting, error) {
	meetings, err := m.store.ListMeetings(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}
	return meetings, nil
}

// RecentMeeting returns the manager's latest scheduled meeting starting
// within the recent window, or nil.
func (m *Manager) RecentMeeting(ctx context.Context, managerID string) (*model.Meeting, error) {
	cutoff := m.now().Add(-m.cfg.RecentWindow)
	meetings, err := m.ListMeetings(ctx, store.MeetingFilter{
		ManagerID: managerID,
		Status:    model.StatusScheduled,
		From:      cutoff,
	})
	if err != nil {
		return nil, err
	}
	var latest *model.Meeting
	for i := range meetings {
		if meetings[i].Start.After(cutoff) {
			latest = &meetings[i]
		}
	}
	return latest, nil
}

// OverdueManagers returns the active managers whose last scheduled or held
// meeting started more than OverdueAfter ago, or who never had one.
func (m *Manager) OverdueManagers(ctx context.Context) ([]Overdue, error) {
	managers, err := m.store.ListParticipants(ctx, model.RoleManager)
	if err != nil {
		return nil, fmt.Errorf("failed to list managers: %w", err)
	}
	cutoff := m.now().Add(-m.cfg.OverdueAfter)

	var out []Overdue
	for _, p := range managers {
		if !p.Active() {
			continue
		}
		meetings, err := m.ListMeetings(ctx, store.MeetingFilter{ManagerID: p.ID})
		if err != nil {
			return nil, err
		}
		var last *model.Meeting
		for i := range meetings {
			if st := meetings[i].Status; st == model.StatusScheduled || st == model.StatusCompleted {
				last = &meetings[i]
			}
		}
		if last == nil || last.Start.Before(cutoff) {
			out = append(out, Overdue{Manager: p, Last: last})
		}
	}
	return out, nil
}

// ExportICS writes the meeting as an iCalendar document.
func (m *Manager) ExportICS(ctx context.Context, meetingID string, w io.Writer) error {
	meeting, err := m.GetMeeting(ctx, meetingID)
	if err != nil {
		return err
	}

	summary := m.cfg.Summary("")
	description := ""
	if p, err := m.store.GetParticipant(ctx, meeting.ManagerID); err == nil {
		department := p.Department
		if department == "" {
			department = p.Name
		}
		summary = m.cfg.Summary(department)
		owners, err := m.owners(ctx)
		if err != nil {
			return err
		}
		names := make([]string, 0, len(owners))
		for _, o := range owners {
			names = append(names, o.Name)
		}
		description = Description(p.Name, strings.Join(names, ", "), department)
	}
	if meeting.MeetLink != "" {
		description += "\n\nGoogle Meet: " + meeting.MeetLink
	}

	return ics.Encode(w, m.now(), ics.Event{
		Meeting:     meeting,
		Summary:     strings.TrimSpace(summary),
		Description: strings.TrimSpace(description),
	})
}
