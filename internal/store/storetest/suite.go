// Package storetest holds a behavioural suite shared by every store.Store
// backend.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/meetsync/internal/model"
	"github.com/teemow/meetsync/internal/store"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) store.Store

// Run exercises the full store contract against the backend built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("participants", func(t *testing.T) { testParticipants(t, newStore(t)) })
	t.Run("windows", func(t *testing.T) { testWindows(t, newStore(t)) })
	t.Run("blocked", func(t *testing.T) { testBlocked(t, newStore(t)) })
	t.Run("meetings", func(t *testing.T) { testMeetings(t, newStore(t)) })
	t.Run("status compare-and-set", func(t *testing.T) { testStatusCAS(t, newStore(t)) })
	t.Run("concurrent terminal transitions", func(t *testing.T) { testConcurrentCAS(t, newStore(t)) })
}

var day = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func testParticipants(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.GetParticipant(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	owner := model.Participant{ID: "o1", Name: "Olga", Email: "olga@example.com", Role: model.RoleOwner, Status: model.ParticipantActive, CalendarID: "olga@example.com"}
	manager := model.Participant{ID: "m1", Name: "Max", Email: "max@example.com", Role: model.RoleManager, Status: model.ParticipantActive, Department: "Sales", CalendarID: "shared@group.calendar.google.com"}
	second := model.Participant{ID: "m2", Name: "Mia", Role: model.RoleManager, Status: model.ParticipantVacation, CalendarID: "shared@group.calendar.google.com"}
	for _, p := range []model.Participant{owner, manager, second} {
		require.NoError(t, s.SaveParticipant(ctx, p))
	}

	got, err := s.GetParticipant(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "Sales", got.Department)
	assert.False(t, got.CreatedAt.IsZero())

	managers, err := s.ListParticipants(ctx, model.RoleManager)
	require.NoError(t, err)
	require.Len(t, managers, 2)
	assert.Equal(t, "m1", managers[0].ID)

	shared, err := s.FindByCalendarID(ctx, "shared@group.calendar.google.com")
	require.NoError(t, err)
	assert.Len(t, shared, 2)

	none, err := s.FindByCalendarID(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, none)

	manager.CalendarID = "max@example.com"
	require.NoError(t, s.SaveParticipant(ctx, manager))
	shared, err = s.FindByCalendarID(ctx, "shared@group.calendar.google.com")
	require.NoError(t, err)
	assert.Len(t, shared, 1)
}

func testWindows(t *testing.T, s store.Store) {
	ctx := context.Background()

	mon := model.AvailabilityWindow{ID: "w1", OwnerID: "o1", Weekday: time.Monday, Start: model.MustClock("09:00"), End: model.MustClock("12:00"), Active: true}
	tue := model.AvailabilityWindow{ID: "w2", OwnerID: "o1", Weekday: time.Tuesday, Start: model.MustClock("14:00"), End: model.MustClock("16:00"), Active: false}
	other := model.AvailabilityWindow{ID: "w3", OwnerID: "o2", Weekday: time.Monday, Start: model.MustClock("10:00"), End: model.MustClock("11:00"), Active: true}
	for _, w := range []model.AvailabilityWindow{tue, mon, other} {
		require.NoError(t, s.SaveWindow(ctx, w))
	}

	bad := mon
	bad.ID = "w4"
	bad.End = bad.Start
	assert.Error(t, s.SaveWindow(ctx, bad))

	windows, err := s.ListWindows(ctx, "o1")
	require.NoError(t, err)
	require.Len(t, windows, 2)
	assert.Equal(t, mon, windows[0])
	assert.Equal(t, tue, windows[1])

	require.NoError(t, s.DeleteWindow(ctx, "w1"))
	assert.ErrorIs(t, s.DeleteWindow(ctx, "w1"), store.ErrNotFound)

	windows, err = s.ListWindows(ctx, "o1")
	require.NoError(t, err)
	assert.Len(t, windows, 1)
}

func testBlocked(t *testing.T, s store.Store) {
	ctx := context.Background()

	morning := model.BlockedInterval{ID: "b1", OwnerID: "o1", Start: at(9, 0), End: at(10, 0), Reason: "dentist"}
	nextDay := model.BlockedInterval{ID: "b2", OwnerID: "o1", Start: at(33, 0), End: at(35, 0)}
	require.NoError(t, s.SaveBlocked(ctx, morning))
	require.NoError(t, s.SaveBlocked(ctx, nextDay))

	assert.Error(t, s.SaveBlocked(ctx, model.BlockedInterval{ID: "b3", OwnerID: "o1", Start: at(10, 0), End: at(9, 0)}))

	got, err := s.ListBlocked(ctx, "o1", day, day.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "dentist", got[0].Reason)
	assert.True(t, got[0].Start.Equal(morning.Start))

	got, err = s.ListBlocked(ctx, "o1", at(10, 0), at(11, 0))
	require.NoError(t, err)
	assert.Empty(t, got, "an interval ending exactly at from does not overlap")

	require.NoError(t, s.DeleteBlocked(ctx, "b1"))
	assert.ErrorIs(t, s.DeleteBlocked(ctx, "b1"), store.ErrNotFound)
}

func scheduledMeeting(id string, start time.Time) model.Meeting {
	return model.Meeting{
		ID:                id,
		ManagerID:         "m1",
		Start:             start,
		Duration:          time.Hour,
		Status:            model.StatusScheduled,
		ManagerCalendarID: "max@example.com",
		ManagerEventID:    "evt-" + id,
		OwnerCalendarID:   "olga@example.com",
		MeetLink:          "https://meet.google.com/abc-defg-hij",
	}
}

func testMeetings(t *testing.T, s store.Store) {
	ctx := context.Background()

	invalid := scheduledMeeting("bad", at(9, 0))
	invalid.ManagerEventID = ""
	assert.ErrorIs(t, s.CreateMeeting(ctx, invalid), model.ErrNoEventIDs)

	first := scheduledMeeting("a", at(9, 0))
	second := scheduledMeeting("b", at(11, 0))
	second.ManagerID = "m2"
	require.NoError(t, s.CreateMeeting(ctx, second))
	require.NoError(t, s.CreateMeeting(ctx, first))
	assert.ErrorIs(t, s.CreateMeeting(ctx, first), store.ErrConflict)

	got, err := s.GetMeeting(ctx, "a")
	require.NoError(t, err)
	assert.True(t, got.Start.Equal(first.Start))
	assert.Equal(t, time.Hour, got.Duration)
	assert.Equal(t, "evt-a", got.ManagerEventID)
	assert.Empty(t, got.OwnerEventID)
	assert.Equal(t, first.MeetLink, got.MeetLink)

	_, err = s.GetMeeting(ctx, "zzz")
	assert.ErrorIs(t, err, store.ErrNotFound)

	all, err := s.ListMeetings(ctx, store.MeetingFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID)

	byManager, err := s.ListMeetings(ctx, store.MeetingFilter{ManagerID: "m2"})
	require.NoError(t, err)
	require.Len(t, byManager, 1)
	assert.Equal(t, "b", byManager[0].ID)

	window, err := s.ListMeetings(ctx, store.MeetingFilter{From: at(9, 30), To: at(10, 30)})
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, "a", window[0].ID)
}

func testStatusCAS(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateMeeting(ctx, scheduledMeeting("a", at(9, 0))))

	updated, err := s.UpdateStatus(ctx, "a", model.StatusScheduled, model.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, updated.Status)

	_, err = s.UpdateStatus(ctx, "a", model.StatusScheduled, model.StatusCompleted)
	assert.ErrorIs(t, err, store.ErrStatusConflict)

	_, err = s.UpdateStatus(ctx, "missing", model.StatusScheduled, model.StatusCompleted)
	assert.ErrorIs(t, err, store.ErrNotFound)

	scheduled, err := s.ListMeetings(ctx, store.MeetingFilter{Status: model.StatusScheduled})
	require.NoError(t, err)
	assert.Empty(t, scheduled)
}

func testConcurrentCAS(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateMeeting(ctx, scheduledMeeting("a", at(9, 0))))

	targets := []model.Status{model.StatusCancelled, model.StatusCompleted, model.StatusNoShow, model.StatusCancelled}
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		applied  int
		conflict int
	)
	for _, to := range targets {
		wg.Add(1)
		go func(to model.Status) {
			defer wg.Done()
			_, err := s.UpdateStatus(ctx, "a", model.StatusScheduled, to)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				applied++
			} else {
				assert.ErrorIs(t, err, store.ErrStatusConflict)
				conflict++
			}
		}(to)
	}
	wg.Wait()

	assert.Equal(t, 1, applied)
	assert.Equal(t, len(targets)-1, conflict)
}
