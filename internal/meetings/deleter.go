package meetings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/teemow/meetsync/internal/calendar"
	"github.com/teemow/meetsync/internal/logging"
	"github.com/teemow/meetsync/internal/model"
)

// IdentityResolver maps a calendar ID to the identity used to act on it.
type IdentityResolver interface {
	Resolve(ctx context.Context, calendarID string) (model.CalendarIdentity, error)
}

// DeleteAttempt is the outcome of deleting one stored event.
type DeleteAttempt struct {
	Side       Side
	CalendarID string
	EventID    string
	// NotFound is set when the event was already gone, which counts as
	// success.
	NotFound bool
	Err      error
}

// DeleteResult is the outcome of removing a meeting's events.
type DeleteResult struct {
	Attempts  []DeleteAttempt
	AnyFailed bool
}

// Deleter removes the calendar events recorded on a meeting.
type Deleter struct {
	identities IdentityResolver
	provider   calendar.Provider
	timeout    time.Duration
	logger     *slog.Logger
}

// NewDeleter creates a Deleter. timeout bounds each delete call; zero
// means no extra bound.
func NewDeleter(identities IdentityResolver, provider calendar.Provider, timeout time.Duration, logger *slog.Logger) *Deleter {
	return &Deleter{
		identities: identities,
		provider:   provider,
		timeout:    timeout,
		logger:     logging.OrDefault(logger),
	}
}

// Delete removes every event stored on m, one call per distinct
// (calendar, event) pair, concurrently. No calendar is searched for events
// that were not recorded.
func (d *Deleter) Delete(ctx context.Context, m model.Meeting) DeleteResult {
	attempts := pairs(m)
	var g errgroup.Group
	for i := range attempts {
		g.Go(func() error {
			d.deleteOne(ctx, &attempts[i])
			return nil
		})
	}
	_ = g.Wait()

	res := DeleteResult{Attempts: attempts}
	for _, a := range attempts {
		if a.Err != nil {
			res.AnyFailed = true
			d.logger.Warn("calendar event not removed, needs manual cleanup",
				logging.MeetingID(m.ID),
				logging.Side(string(a.Side)),
				logging.Calendar(a.CalendarID),
				slog.String("event_id", a.EventID),
				logging.Err(a.Err))
		}
	}
	return res
}

var errNoCalendar = errors.New("event has no recorded calendar")

func (d *Deleter) deleteOne(ctx context.Context, a *DeleteAttempt) {
	if a.CalendarID == "" {
		a.Err = errNoCalendar
		return
	}

	identity, err := d.identities.Resolve(ctx, a.CalendarID)
	if err != nil {
		a.Err = fmt.Errorf("failed to resolve calendar identity: %w", err)
		return
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	err = d.provider.DeleteEvent(ctx, identity, a.EventID)
	if errors.Is(err, calendar.ErrNotFound) {
		a.NotFound = true
		return
	}
	a.Err = err
}

func pairs(m model.Meeting) []DeleteAttempt {
	var out []DeleteAttempt
	if m.ManagerEventID != "" {
		out = append(out, DeleteAttempt{Side: SideManager, CalendarID: m.ManagerCalendarID, EventID: m.ManagerEventID})
	}
	if m.OwnerEventID != "" &&
		(m.OwnerEventID != m.ManagerEventID || m.OwnerCalendarID != m.ManagerCalendarID) {
		out = append(out, DeleteAttempt{Side: SideOwner, CalendarID: m.OwnerCalendarID, EventID: m.OwnerEventID})
	}
	return out
}
