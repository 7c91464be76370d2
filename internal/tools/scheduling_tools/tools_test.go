package scheduling_tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/meetsync/internal/availability"
	"github.com/teemow/meetsync/internal/calendar"
	"github.com/teemow/meetsync/internal/config"
	"github.com/teemow/meetsync/internal/eventwriter"
	"github.com/teemow/meetsync/internal/instrumentation"
	"github.com/teemow/meetsync/internal/meetings"
	"github.com/teemow/meetsync/internal/model"
	"github.com/teemow/meetsync/internal/server"
	"github.com/teemow/meetsync/internal/store"
	"github.com/teemow/meetsync/internal/store/memory"
)

var wednesday = time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

type memoryCalendar struct {
	mu     sync.Mutex
	next   int
	events map[string]bool
}

func (c *memoryCalendar) InsertEvent(_ context.Context, id model.CalendarIdentity, _ calendar.EventBody, mode calendar.ConferenceMode) (calendar.InsertedEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next++
	eventID := fmt.Sprintf("evt-%d", c.next)
	c.events[id.CalendarID+"/"+eventID] = true
	out := calendar.InsertedEvent{EventID: eventID}
	if mode.Requested() {
		out.MeetLink = "https://meet.google.com/" + eventID
		out.ConferenceAttached = true
	}
	return out, nil
}

func (c *memoryCalendar) DeleteEvent(_ context.Context, id model.CalendarIdentity, eventID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := id.CalendarID + "/" + eventID
	if !c.events[key] {
		return fmt.Errorf("failed to delete event: %w", calendar.ErrNotFound)
	}
	delete(c.events, key)
	return nil
}

func (c *memoryCalendar) QueryBusyIntervals(context.Context, model.CalendarIdentity, time.Time, time.Time) ([]model.Interval, error) {
	return nil, nil
}

type delegatedIdentities struct{}

func (delegatedIdentities) Resolve(_ context.Context, calendarID string) (model.CalendarIdentity, error) {
	return model.CalendarIdentity{CalendarID: calendarID, Mode: model.ModeDelegated, ParticipantID: calendarID}, nil
}

type fixture struct {
	store    *memory.Store
	calendar *memoryCalendar
	sc       *server.ServerContext
	mcp      *mcpserver.MCPServer
}

func newFixture(t *testing.T, readOnly bool) *fixture {
	t.Helper()
	ctx := context.Background()

	cfg := config.Default()
	cfg.Timezone = "UTC"
	cfg.OwnerIDs = []string{"owner-1"}

	st := memory.New()
	require.NoError(t, st.SaveParticipant(ctx, model.Participant{
		ID: "mgr-1", Name: "Ivan", Email: "ivan@example.com", Role: model.RoleManager,
		Status: model.ParticipantActive, Department: "Sales", CalendarID: "ivan@example.com",
	}))
	require.NoError(t, st.SaveParticipant(ctx, model.Participant{
		ID: "owner-1", Name: "Anna", Email: "anna@example.com", Role: model.RoleOwner,
		Status: model.ParticipantActive, CalendarID: "anna@example.com",
	}))

	cal := &memoryCalendar{events: map[string]bool{}}
	ids := delegatedIdentities{}
	resolver := availability.NewResolver(availability.Config{
		Participants: st,
		Availability: st,
		Meetings:     st,
		Identities:   ids,
		Provider:     cal,
		Options: availability.Options{
			Owners:       cfg.OwnerIDs,
			Location:     time.UTC,
			Duration:     cfg.MeetingDuration,
			SkipWeekends: true,
			BusyTimeout:  time.Second,
		},
	})
	writer := eventwriter.New(ids, cal, eventwriter.Options{Timeout: time.Second}, nil, nil)
	manager := meetings.NewManager(cfg, meetings.Deps{
		Store:   st,
		Slots:   resolver,
		Writer:  meetings.NewDualWriter(writer, nil),
		Deleter: meetings.NewDeleter(ids, cal, time.Second, nil),
		Now:     func() time.Time { return wednesday },
	})

	sc := server.NewServerContext(ctx, manager, nil)
	t.Cleanup(func() { _ = sc.Shutdown() })

	s := mcpserver.NewMCPServer("meetsync", "test", mcpserver.WithToolCapabilities(true))
	require.NoError(t, RegisterSchedulingTools(s, sc, readOnly))
	return &fixture{store: st, calendar: cal, sc: sc, mcp: s}
}

type toolResponse struct {
	Result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
		Tools   []struct {
			Name string `json:"name"`
		} `json:"tools"`
	} `json:"result"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (f *fixture) rpc(t *testing.T, method string, params map[string]any) toolResponse {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": 1, "method": method, "params": params})
	require.NoError(t, err)

	out, err := json.Marshal(f.mcp.HandleMessage(context.Background(), raw))
	require.NoError(t, err)

	var resp toolResponse
	require.NoError(t, json.Unmarshal(out, &resp))
	require.Nil(t, resp.Error, "rpc error")
	return resp
}

// call invokes a tool and returns its text and error flag.
func (f *fixture) call(t *testing.T, name string, args map[string]any) (string, bool) {
	t.Helper()
	resp := f.rpc(t, "tools/call", map[string]any{"name": name, "arguments": args})
	var texts []string
	for _, c := range resp.Result.Content {
		texts = append(texts, c.Text)
	}
	return strings.Join(texts, "\n"), resp.Result.IsError
}

func (f *fixture) toolNames(t *testing.T) []string {
	t.Helper()
	resp := f.rpc(t, "tools/list", map[string]any{})
	var names []string
	for _, tool := range resp.Result.Tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)
	return names
}

func TestRegisterSchedulingTools(t *testing.T) {
	t.Run("read only", func(t *testing.T) {
		f := newFixture(t, true)
		assert.Equal(t, []string{
			"export_ics", "get_recent_meeting", "list_availability",
			"list_available_slots", "list_meetings", "list_overdue_managers",
		}, f.toolNames(t))
	})

	t.Run("all tools", func(t *testing.T) {
		f := newFixture(t, false)
		assert.Equal(t, []string{
			"add_blocked_interval", "book_meeting", "cancel_meeting", "complete_meeting",
			"export_ics", "get_recent_meeting", "list_availability", "list_available_slots",
			"list_meetings", "list_overdue_managers", "mark_no_show",
			"remove_availability_window", "remove_blocked_interval", "set_availability_window",
		}, f.toolNames(t))
	})

	t.Run("needs a manager", func(t *testing.T) {
		sc := server.NewServerContext(context.Background(), nil, nil)
		err := RegisterSchedulingTools(mcpserver.NewMCPServer("meetsync", "test"), sc, false)
		assert.Error(t, err)
	})
}

func TestBookingLifecycle(t *testing.T) {
	f := newFixture(t, false)

	text, isErr := f.call(t, "set_availability_window", map[string]any{
		"owner_id": "owner-1", "weekday": "monday", "start": "10:00", "end": "12:00",
	})
	require.False(t, isErr, text)
	assert.Contains(t, text, "Monday 10:00-12:00")

	text, isErr = f.call(t, "list_available_slots", map[string]any{"days": 7})
	require.False(t, isErr, text)
	assert.Contains(t, text, "Mon 19 Oct 2026")
	assert.Contains(t, text, "10:00-11:00")
	assert.Contains(t, text, "11:00-12:00")

	text, isErr = f.call(t, "book_meeting", map[string]any{"manager_id": "mgr-1", "start": "2026-10-19 10:00"})
	require.False(t, isErr, text)
	assert.Contains(t, text, "Both calendars were updated.")
	assert.Contains(t, text, "Video link: https://meet.google.com/")

	list, err := f.store.ListMeetings(context.Background(), store.MeetingFilter{ManagerID: "mgr-1"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	id := list[0].ID
	assert.Contains(t, text, "Meeting ID: "+id)

	text, isErr = f.call(t, "list_available_slots", map[string]any{"days": 7})
	require.False(t, isErr, text)
	assert.NotContains(t, text, "10:00-11:00", "booked slot is no longer offered")
	assert.Contains(t, text, "11:00-12:00")

	text, isErr = f.call(t, "get_recent_meeting", map[string]any{"manager_id": "mgr-1"})
	require.False(t, isErr, text)
	assert.Contains(t, text, id)

	text, isErr = f.call(t, "export_ics", map[string]any{"meeting_id": id})
	require.False(t, isErr, text)
	assert.Contains(t, text, "BEGIN:VCALENDAR")
	assert.Contains(t, text, "UID:"+id)

	text, isErr = f.call(t, "cancel_meeting", map[string]any{"meeting_id": id})
	require.False(t, isErr, text)
	assert.Equal(t, "Meeting cancelled. All calendar events were removed.", text)
	assert.Empty(t, f.calendar.events)

	text, isErr = f.call(t, "cancel_meeting", map[string]any{"meeting_id": id})
	assert.True(t, isErr)
	assert.Contains(t, text, "is not scheduled any more")

	text, isErr = f.call(t, "list_meetings", map[string]any{"status": "cancelled"})
	require.False(t, isErr, text)
	assert.Contains(t, text, id)
}

func TestBookAndCancel_AuditRecordsCalendar(t *testing.T) {
	f := newFixture(t, false)
	var buf bytes.Buffer
	f.sc.SetAuditLogger(instrumentation.NewAuditLoggerWithConfig(
		slog.New(slog.NewJSONHandler(&buf, nil)),
		instrumentation.AuditLoggingConfig{Enabled: true, IncludePII: true}))

	text, isErr := f.call(t, "set_availability_window", map[string]any{
		"owner_id": "owner-1", "weekday": "monday", "start": "10:00", "end": "12:00",
	})
	require.False(t, isErr, text)
	text, isErr = f.call(t, "book_meeting", map[string]any{"manager_id": "mgr-1", "start": "2026-10-19 10:00"})
	require.False(t, isErr, text)

	list, err := f.store.ListMeetings(context.Background(), store.MeetingFilter{ManagerID: "mgr-1"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	text, isErr = f.call(t, "cancel_meeting", map[string]any{"meeting_id": list[0].ID})
	require.False(t, isErr, text)

	calendars := map[string]any{}
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(line, &rec))
		calendars[rec["tool"].(string)] = rec["calendar"]
	}
	assert.Equal(t, "ivan@example.com", calendars["book_meeting"])
	assert.Equal(t, "ivan@example.com", calendars["cancel_meeting"])
	assert.Nil(t, calendars["set_availability_window"])
}

func TestBookMeeting_Refused(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"missing manager", map[string]any{"start": "2026-10-19 10:00"}, "manager_id is required"},
		{"bad start", map[string]any{"manager_id": "mgr-1", "start": "next monday"}, "invalid time"},
		{"unknown manager", map[string]any{"manager_id": "nobody", "start": "2026-10-19 10:00"}, "was not booked"},
		{"no window", map[string]any{"manager_id": "mgr-1", "start": "2026-10-19T10:00:00Z"}, "no longer free"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, false)
			text, isErr := f.call(t, "book_meeting", tt.args)
			assert.True(t, isErr)
			assert.Contains(t, text, tt.want)
		})
	}
}

func TestStatusTools(t *testing.T) {
	f := newFixture(t, false)
	_, isErr := f.call(t, "set_availability_window", map[string]any{
		"owner_id": "owner-1", "weekday": "1", "start": "10:00", "end": "11:00",
	})
	require.False(t, isErr)
	_, isErr = f.call(t, "book_meeting", map[string]any{"manager_id": "mgr-1", "start": "2026-10-19 10:00"})
	require.False(t, isErr)

	list, err := f.store.ListMeetings(context.Background(), store.MeetingFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)

	text, isErr := f.call(t, "complete_meeting", map[string]any{"meeting_id": list[0].ID})
	require.False(t, isErr, text)
	assert.Contains(t, text, "is now completed")

	text, isErr = f.call(t, "mark_no_show", map[string]any{"meeting_id": list[0].ID})
	assert.True(t, isErr)
	assert.Contains(t, text, "not scheduled any more")

	text, isErr = f.call(t, "complete_meeting", map[string]any{"meeting_id": "missing"})
	assert.True(t, isErr)
	assert.Contains(t, text, "Meeting missing not found.")
}

func TestAvailabilityTools(t *testing.T) {
	f := newFixture(t, false)

	text, isErr := f.call(t, "add_blocked_interval", map[string]any{
		"owner_id": "owner-1", "start": "2026-10-19 09:00", "end": "2026-10-19 13:00", "reason": "offsite",
	})
	require.False(t, isErr, text)

	text, isErr = f.call(t, "list_availability", nil)
	require.False(t, isErr, text)
	assert.Contains(t, text, "Anna (owner-1, active)")
	assert.Contains(t, text, "no availability windows")
	assert.Contains(t, text, "blocked 2026-10-19 09:00 - 2026-10-19 13:00 (offsite)")

	blocked, err := f.store.ListBlocked(context.Background(), "owner-1", wednesday, wednesday.AddDate(0, 0, 30))
	require.NoError(t, err)
	require.Len(t, blocked, 1)

	text, isErr = f.call(t, "remove_blocked_interval", map[string]any{"blocked_id": blocked[0].ID})
	require.False(t, isErr, text)

	text, isErr = f.call(t, "remove_blocked_interval", map[string]any{"blocked_id": blocked[0].ID})
	assert.True(t, isErr)
	assert.Contains(t, text, "not found")

	text, isErr = f.call(t, "set_availability_window", map[string]any{
		"owner_id": "owner-1", "weekday": "tue", "start": "12:00", "end": "10:00",
	})
	assert.True(t, isErr, text)

	_, isErr = f.call(t, "set_availability_window", map[string]any{
		"owner_id": "owner-1", "weekday": "tue", "start": "10:00", "end": "12:00",
	})
	require.False(t, isErr)
	text, isErr = f.call(t, "set_availability_window", map[string]any{
		"owner_id": "owner-1", "weekday": "tue", "start": "11:00", "end": "13:00",
	})
	assert.True(t, isErr)
	assert.Contains(t, text, "Window not added")
}

func TestListOverdueManagers(t *testing.T) {
	f := newFixture(t, true)

	text, isErr := f.call(t, "list_overdue_managers", nil)
	require.False(t, isErr, text)
	assert.Contains(t, text, "Ivan (mgr-1, Sales): never met")
}

func TestParseWeekday(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Weekday
		wantErr bool
	}{
		{"monday", time.Monday, false},
		{"Friday", time.Friday, false},
		{"sat", time.Saturday, false},
		{"0", time.Sunday, false},
		{"3", time.Wednesday, false},
		{"7", 0, true},
		{"mo", 0, true},
		{"someday", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseWeekday(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
