package availability

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/teemow/meetsync/internal/calendar"
	"github.com/teemow/meetsync/internal/instrumentation"
	"github.com/teemow/meetsync/internal/logging"
	"github.com/teemow/meetsync/internal/model"
	"github.com/teemow/meetsync/internal/store"
)

// DiagNoOwners is reported when no owner IDs are configured.
const DiagNoOwners = "no owners configured"

// IdentityResolver maps a calendar ID to the identity used to query it.
type IdentityResolver interface {
	Resolve(ctx context.Context, calendarID string) (model.CalendarIdentity, error)
}

// Options are the scheduling parameters of a Resolver.
type Options struct {
	// Owners are the owner participant IDs in priority order. Only the first
	// two take part in the intersection.
	Owners       []string
	Location     *time.Location
	Duration     time.Duration
	SkipWeekends bool
	// BusyTimeout bounds every provider busy query. Zero means no extra bound.
	BusyTimeout time.Duration
}

// Config holds the collaborators of a Resolver.
type Config struct {
	Participants store.ParticipantRepository
	Availability store.AvailabilityRepository
	Meetings     store.MeetingRepository
	Identities   IdentityResolver
	Provider     calendar.Provider
	Options      Options
	Metrics      *instrumentation.Metrics
	Logger       *slog.Logger
}

// DayResult is the availability of a single day.
type DayResult struct {
	Day         time.Time
	Slots       []model.Slot
	Diagnostics []string
	// Err is set when the store could not be read; Slots is then empty.
	Err error
}

// Result collects the slots of several days.
type Result struct {
	Slots       []model.Slot
	Diagnostics []string
}

// Resolver computes the bookable slots shared by the configured owners.
// It holds no state between calls.
type Resolver struct {
	participants store.ParticipantRepository
	availability store.AvailabilityRepository
	meetings     store.MeetingRepository
	identities   IdentityResolver
	provider     calendar.Provider
	opts         Options
	metrics      *instrumentation.Metrics
	logger       *slog.Logger
}

// NewResolver creates a Resolver. A nil Location means UTC.
func NewResolver(cfg Config) *Resolver {
	opts := cfg.Options
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	opts.Owners = append([]string(nil), opts.Owners...)
	return &Resolver{
		participants: cfg.Participants,
		availability: cfg.Availability,
		meetings:     cfg.Meetings,
		identities:   cfg.Identities,
		provider:     cfg.Provider,
		opts:         opts,
		metrics:      cfg.Metrics,
		logger:       logging.OrDefault(cfg.Logger),
	}
}

// Location returns the timezone days are computed in.
func (r *Resolver) Location() *time.Location {
	return r.opts.Location
}

// Days yields the availability of each day after from, up to dayRange days
// ahead. Weekend days are skipped when configured but still count towards
// the range. Every day re-reads the store and the calendars.
func (r *Resolver) Days(ctx context.Context, from time.Time, dayRange int) iter.Seq[DayResult] {
	return func(yield func(DayResult) bool) {
		if len(r.opts.Owners) == 0 {
			return
		}
		base := startOfDay(from, r.opts.Location)
		for offset := 1; offset <= dayRange; offset++ {
			day := base.AddDate(0, 0, offset)
			if r.opts.SkipWeekends && isWeekend(day) {
				continue
			}
			if !yield(r.Day(ctx, day)) {
				return
			}
			if ctx.Err() != nil {
				return
			}
		}
	}
}

// AvailableSlots collects Days into one result. It stops at the first store
// failure or context cancellation.
func (r *Resolver) AvailableSlots(ctx context.Context, from time.Time, dayRange int) (Result, error) {
	start := time.Now()
	var res Result
	if len(r.opts.Owners) == 0 {
		res.Diagnostics = append(res.Diagnostics, DiagNoOwners)
		r.metrics.RecordSlotComputation(ctx, 0, 0, time.Since(start))
		return res, nil
	}

	for day := range r.Days(ctx, from, dayRange) {
		if day.Err != nil {
			return Result{}, day.Err
		}
		res.Slots = append(res.Slots, day.Slots...)
		res.Diagnostics = append(res.Diagnostics, day.Diagnostics...)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	r.metrics.RecordSlotComputation(ctx, r.ownerCount(), len(res.Slots), time.Since(start))
	r.logger.Debug("computed available slots",
		logging.Operation("available_slots"),
		slog.Int("days", dayRange),
		slog.Int("slots", len(res.Slots)),
		slog.Int("diagnostics", len(res.Diagnostics)))
	return res, nil
}

// Day computes the slots of one day.
func (r *Resolver) Day(ctx context.Context, day time.Time) DayResult {
	day = startOfDay(day, r.opts.Location)
	res := DayResult{Day: day}

	free, diags, err := r.freeIntervals(ctx, day)
	res.Diagnostics = diags
	if err != nil {
		res.Err = err
		return res
	}

	taken, err := r.scheduled(ctx, day)
	if err != nil {
		res.Err = err
		return res
	}

	for _, slot := range Discretize(free, r.opts.Duration) {
		if !overlapsAny(slot.Interval(), taken) {
			res.Slots = append(res.Slots, slot)
		}
	}
	return res
}

// IsFree reports whether iv is one of the slots Day offers: it starts on a
// slot boundary, lasts one slot and overlaps no scheduled meeting. The
// diagnostics explain why a day has no free time.
func (r *Resolver) IsFree(ctx context.Context, iv model.Interval) (bool, []string, error) {
	if iv.Empty() || len(r.opts.Owners) == 0 {
		return false, nil, nil
	}
	day := startOfDay(iv.Start, r.opts.Location)
	if r.opts.SkipWeekends && isWeekend(day) {
		return false, nil, nil
	}

	res := r.Day(ctx, day)
	if res.Err != nil {
		return false, res.Diagnostics, res.Err
	}
	for _, slot := range res.Slots {
		if slot.Start.Equal(iv.Start) && slot.End.Equal(iv.End) {
			return true, res.Diagnostics, nil
		}
	}
	return false, res.Diagnostics, nil
}

// freeIntervals returns the intersection of the considered owners' free time.
func (r *Resolver) freeIntervals(ctx context.Context, day time.Time) ([]model.Interval, []string, error) {
	var (
		free  []model.Interval
		diags []string
	)
	for i, ownerID := range r.opts.Owners[:r.ownerCount()] {
		ownerFree, diag, err := r.ownerFree(ctx, ownerID, day)
		if err != nil {
			return nil, diags, err
		}
		if diag != "" {
			diags = append(diags, diag)
		}
		if i == 0 {
			free = ownerFree
		} else {
			free = Intersect(free, ownerFree)
		}
	}
	return free, diags, nil
}

// ownerFree returns one owner's free time on day: active windows, minus
// blocked time, minus calendar busy time. A non-empty diagnostic explains
// an owner contributing nothing for a reason other than no windows.
func (r *Resolver) ownerFree(ctx context.Context, ownerID string, day time.Time) ([]model.Interval, string, error) {
	p, err := r.participants.GetParticipant(ctx, ownerID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Sprintf("owner %s not found", ownerID), nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to load owner %s: %w", ownerID, err)
	}
	if !p.Active() {
		return nil, fmt.Sprintf("owner %s is %s", ownerID, p.Status), nil
	}

	windows, err := r.availability.ListWindows(ctx, ownerID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list windows of owner %s: %w", ownerID, err)
	}
	var free []model.Interval
	for _, w := range windows {
		if w.Active && w.Weekday == day.Weekday() {
			free = append(free, model.Interval{
				Start: w.Start.On(day, r.opts.Location),
				End:   w.End.On(day, r.opts.Location),
			})
		}
	}
	free = Normalize(free)
	if len(free) == 0 {
		return nil, "", nil
	}
	from, to := free[0].Start, free[len(free)-1].End

	blocked, err := r.availability.ListBlocked(ctx, ownerID, from, to)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list blocked time of owner %s: %w", ownerID, err)
	}
	blockedIntervals := make([]model.Interval, 0, len(blocked))
	for _, b := range blocked {
		blockedIntervals = append(blockedIntervals, b.Interval())
	}
	free = Subtract(free, blockedIntervals)

	if !p.HasCalendar() || len(free) == 0 {
		return free, "", nil
	}

	busy, err := r.busy(ctx, p, from, to)
	if err != nil {
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		r.logger.Warn("calendar busy query failed, blocking owner for the day",
			logging.Participant(ownerID),
			logging.Calendar(p.CalendarID),
			slog.String("day", day.Format(time.DateOnly)),
			logging.Err(err))
		return nil, fmt.Sprintf("calendar of owner %s unavailable on %s", ownerID, day.Format(time.DateOnly)), nil
	}
	return Subtract(free, busy), "", nil
}

func (r *Resolver) busy(ctx context.Context, p model.Participant, from, to time.Time) ([]model.Interval, error) {
	identity, err := r.identities.Resolve(ctx, p.CalendarID)
	if err != nil {
		return nil, err
	}
	if r.opts.BusyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.BusyTimeout)
		defer cancel()
	}
	return r.provider.QueryBusyIntervals(ctx, identity, from, to)
}

func (r *Resolver) scheduled(ctx context.Context, day time.Time) ([]model.Interval, error) {
	meetings, err := r.meetings.ListMeetings(ctx, store.MeetingFilter{
		Status: model.StatusScheduled,
		From:   day,
		To:     day.AddDate(0, 0, 1),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list scheduled meetings: %w", err)
	}
	out := make([]model.Interval, 0, len(meetings))
	for _, m := range meetings {
		out = append(out, m.Interval())
	}
	return out, nil
}

func (r *Resolver) ownerCount() int {
	return min(len(r.opts.Owners), 2)
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func isWeekend(day time.Time) bool {
	wd := day.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func overlapsAny(iv model.Interval, others []model.Interval) bool {
	for _, o := range others {
		if iv.Overlaps(o) {
			return true
		}
	}
	return false
}
