package meetings

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/teemow/meetsync/internal/availability"
	"github.com/teemow/meetsync/internal/calendar"
	"github.com/teemow/meetsync/internal/config"
	"github.com/teemow/meetsync/internal/eventwriter"
	"github.com/teemow/meetsync/internal/model"
	"github.com/teemow/meetsync/internal/store/memory"
)

// wednesday is the fixed "now" of the manager tests.
var wednesday = time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

// monday10 is a bookable slot start five days later.
var monday10 = time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

type insertCall struct {
	calendarID string
	mode       calendar.ConferenceMode
	body       calendar.EventBody
}

// fakeCalendar is an in-memory provider. Insert errors are scripted per
// calendar as a queue; delete errors are fixed per calendar.
type fakeCalendar struct {
	mu         sync.Mutex
	insertErrs map[string][]error
	deleteErrs map[string]error
	events     map[string]bool
	inserts    []insertCall
	deletes    []string
}

func newFakeCalendar() *fakeCalendar {
	return &fakeCalendar{
		insertErrs: map[string][]error{},
		deleteErrs: map[string]error{},
		events:     map[string]bool{},
	}
}

func (f *fakeCalendar) InsertEvent(_ context.Context, id model.CalendarIdentity, body calendar.EventBody, mode calendar.ConferenceMode) (calendar.InsertedEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.inserts = append(f.inserts, insertCall{calendarID: id.CalendarID, mode: mode, body: body})
	if q := f.insertErrs[id.CalendarID]; len(q) > 0 {
		err := q[0]
		f.insertErrs[id.CalendarID] = q[1:]
		if err != nil {
			return calendar.InsertedEvent{}, fmt.Errorf("failed to insert event: %w", err)
		}
	}

	eventID := fmt.Sprintf("evt-%d", len(f.inserts))
	f.events[id.CalendarID+"/"+eventID] = true
	out := calendar.InsertedEvent{EventID: eventID}
	if mode.Requested() {
		out.MeetLink = "https://meet.google.com/" + eventID
		out.ConferenceAttached = true
	}
	return out, nil
}

func (f *fakeCalendar) DeleteEvent(_ context.Context, id model.CalendarIdentity, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := id.CalendarID + "/" + eventID
	f.deletes = append(f.deletes, key)
	if err := f.deleteErrs[id.CalendarID]; err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if !f.events[key] {
		return fmt.Errorf("failed to delete event: %w", calendar.ErrNotFound)
	}
	delete(f.events, key)
	return nil
}

func (f *fakeCalendar) QueryBusyIntervals(context.Context, model.CalendarIdentity, time.Time, time.Time) ([]model.Interval, error) {
	return nil, nil
}

func (f *fakeCalendar) insertsFor(calendarID string) []insertCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []insertCall
	for _, c := range f.inserts {
		if c.calendarID == calendarID {
			out = append(out, c)
		}
	}
	return out
}

// suffixIdentities treats group calendars as shared and everything else as
// delegated.
type suffixIdentities struct{}

func (suffixIdentities) Resolve(_ context.Context, calendarID string) (model.CalendarIdentity, error) {
	if strings.HasSuffix(calendarID, "@group.calendar.google.com") {
		return model.CalendarIdentity{CalendarID: calendarID, Mode: model.ModeShared}, nil
	}
	return model.CalendarIdentity{CalendarID: calendarID, Mode: model.ModeDelegated, ParticipantID: calendarID}, nil
}

type stubSlots struct {
	free  bool
	diags []string
	calls int
}

func (s *stubSlots) AvailableSlots(context.Context, time.Time, int) (availability.Result, error) {
	return availability.Result{}, nil
}

func (s *stubSlots) IsFree(context.Context, model.Interval) (bool, []string, error) {
	s.calls++
	return s.free, s.diags, nil
}

const (
	managerCal = "ivan@example.com"
	ownerCal   = "anna@example.com"
	sharedCal  = "team@group.calendar.google.com"
)

type env struct {
	store    *memory.Store
	calendar *fakeCalendar
	slots    *stubSlots
	cfg      config.Config
	manager  *Manager
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Timezone = "UTC"
	cfg.OwnerIDs = []string{"owner-1"}
	cfg.ExpectedOwners = 1
	cfg.AllowSingleOwnerMode = true
	cfg.SharedCalendarID = sharedCal
	return cfg
}

func newEnv(t *testing.T, mutate ...func(*config.Config)) *env {
	t.Helper()
	cfg := testConfig()
	for _, fn := range mutate {
		fn(&cfg)
	}

	e := &env{
		store:    memory.New(),
		calendar: newFakeCalendar(),
		slots:    &stubSlots{free: true},
		cfg:      cfg,
	}
	ctx := context.Background()
	require.NoError(t, e.store.SaveParticipant(ctx, model.Participant{
		ID: "mgr-1", Name: "Ivan", Email: "ivan@example.com", Role: model.RoleManager,
		Status: model.ParticipantActive, Department: "Sales", CalendarID: managerCal,
	}))
	require.NoError(t, e.store.SaveParticipant(ctx, model.Participant{
		ID: "owner-1", Name: "Anna", Email: "anna@example.com", Role: model.RoleOwner,
		Status: model.ParticipantActive, CalendarID: ownerCal,
	}))

	e.manager = e.build()
	return e
}

func (e *env) build() *Manager {
	writer := eventwriter.New(suffixIdentities{}, e.calendar, eventwriter.Options{Timeout: time.Second}, nil, nil)
	return NewManager(e.cfg, Deps{
		Store:   e.store,
		Slots:   e.slots,
		Writer:  NewDualWriter(writer, nil),
		Deleter: NewDeleter(suffixIdentities{}, e.calendar, time.Second, nil),
		Now:     func() time.Time { return wednesday },
	})
}
