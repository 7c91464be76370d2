package eventwriter

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/meetsync/internal/calendar"
	"github.com/teemow/meetsync/internal/model"
)

type insertCall struct {
	identity model.CalendarIdentity
	body     calendar.EventBody
	mode     calendar.ConferenceMode
	deadline bool
}

// scriptedProvider answers inserts from a queue of errors; a nil entry succeeds.
type scriptedProvider struct {
	errs  []error
	calls []insertCall
}

func (p *scriptedProvider) InsertEvent(ctx context.Context, identity model.CalendarIdentity, body calendar.EventBody, mode calendar.ConferenceMode) (calendar.InsertedEvent, error) {
	_, hasDeadline := ctx.Deadline()
	p.calls = append(p.calls, insertCall{identity: identity, body: body, mode: mode, deadline: hasDeadline})

	var err error
	if len(p.errs) > 0 {
		err, p.errs = p.errs[0], p.errs[1:]
	}
	if err != nil {
		return calendar.InsertedEvent{}, fmt.Errorf("failed to insert event: %w", err)
	}
	out := calendar.InsertedEvent{EventID: fmt.Sprintf("evt-%d", len(p.calls))}
	if mode.Requested() {
		out.MeetLink = "https://meet.google.com/abc-defg-hij"
		out.ConferenceAttached = true
	}
	return out, nil
}

func (p *scriptedProvider) DeleteEvent(context.Context, model.CalendarIdentity, string) error {
	return nil
}

func (p *scriptedProvider) QueryBusyIntervals(context.Context, model.CalendarIdentity, time.Time, time.Time) ([]model.Interval, error) {
	return nil, nil
}

type fixedIdentity struct {
	mode model.CalendarMode
	err  error
}

func (f fixedIdentity) Resolve(_ context.Context, calendarID string) (model.CalendarIdentity, error) {
	if f.err != nil {
		return model.CalendarIdentity{}, f.err
	}
	return model.CalendarIdentity{CalendarID: calendarID, Mode: f.mode}, nil
}

func draft() Draft {
	start := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	return Draft{
		Summary:     "Созвон с Sales",
		Description: "Manager: Ivan",
		Start:       start,
		End:         start.Add(time.Hour),
		TimeZone:    "Europe/Moscow",
		Attendees: []calendar.Attendee{
			{Email: "ivan@example.com", DisplayName: "Ivan"},
			{Email: "not-an-email", DisplayName: "Broken"},
		},
		Reminders: []calendar.Reminder{{Method: "popup", Before: 10 * time.Minute}},
	}
}

func TestWrite_ConferenceShapeByIdentity(t *testing.T) {
	tests := []struct {
		mode model.CalendarMode
		want calendar.ConferenceMode
	}{
		{model.ModeDelegated, calendar.ConferenceMinimal},
		{model.ModeShared, calendar.ConferenceFull},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			p := &scriptedProvider{}
			w := New(fixedIdentity{mode: tt.mode}, p, Options{Timeout: time.Second}, nil, nil)

			res, err := w.Write(context.Background(), "cal@example.com", draft())
			require.NoError(t, err)
			assert.True(t, res.Success)
			assert.Equal(t, "evt-1", res.EventID)
			assert.True(t, res.ConferenceAttached)
			assert.NotEmpty(t, res.MeetLink)
			assert.Equal(t, tt.mode, res.Mode)
			assert.False(t, res.Fallback())

			require.Len(t, p.calls, 1)
			assert.Equal(t, tt.want, p.calls[0].mode)
			assert.True(t, p.calls[0].deadline, "insert runs under the write timeout")
		})
	}
}

func TestWrite_Attendees(t *testing.T) {
	t.Run("delegated keeps valid attendees only", func(t *testing.T) {
		p := &scriptedProvider{}
		w := New(fixedIdentity{mode: model.ModeDelegated}, p, Options{}, nil, nil)

		res, err := w.Write(context.Background(), "cal@example.com", draft())
		require.NoError(t, err)
		assert.True(t, res.AttendeeDropped)
		assert.Equal(t, []calendar.Attendee{{Email: "ivan@example.com", DisplayName: "Ivan"}}, p.calls[0].body.Attendees)
	})

	t.Run("shared omits attendees by default", func(t *testing.T) {
		p := &scriptedProvider{}
		w := New(fixedIdentity{mode: model.ModeShared}, p, Options{}, nil, nil)

		res, err := w.Write(context.Background(), "team@group.calendar.google.com", draft())
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.True(t, res.AttendeeDropped)
		assert.Empty(t, p.calls[0].body.Attendees)
	})

	t.Run("shared with attendees enabled", func(t *testing.T) {
		p := &scriptedProvider{}
		w := New(fixedIdentity{mode: model.ModeShared}, p, Options{SharedAttendees: true}, nil, nil)

		_, err := w.Write(context.Background(), "team@group.calendar.google.com", draft())
		require.NoError(t, err)
		assert.Len(t, p.calls[0].body.Attendees, 1)
	})
}

func TestWrite_FallbackOnceOnConferenceRejected(t *testing.T) {
	p := &scriptedProvider{errs: []error{calendar.ErrConferenceRejected, nil}}
	w := New(fixedIdentity{mode: model.ModeShared}, p, Options{}, nil, nil)

	d := draft()
	res, err := w.Write(context.Background(), "team@group.calendar.google.com", d)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.Fallback())
	assert.False(t, res.ConferenceAttached)
	assert.Empty(t, res.MeetLink)

	require.Len(t, p.calls, 2)
	assert.Equal(t, calendar.ConferenceFull, p.calls[0].mode)
	assert.Equal(t, calendar.ConferenceNone, p.calls[1].mode)
	assert.Equal(t, p.calls[0].body, p.calls[1].body, "fallback keeps every other field")

	require.Len(t, res.Attempts, 2)
	assert.Equal(t, ShapeWithConference, res.Attempts[0].Shape)
	assert.ErrorIs(t, res.Attempts[0].Err, calendar.ErrConferenceRejected)
	assert.Equal(t, ShapeWithoutConference, res.Attempts[1].Shape)
	assert.NoError(t, res.Attempts[1].Err)
}

func TestWrite_FallbackFailsToo(t *testing.T) {
	p := &scriptedProvider{errs: []error{calendar.ErrConferenceRejected, calendar.ErrConferenceRejected}}
	w := New(fixedIdentity{mode: model.ModeDelegated}, p, Options{}, nil, nil)

	res, err := w.Write(context.Background(), "cal@example.com", draft())
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Len(t, p.calls, 2, "never more than one fallback")
	assert.Error(t, res.Err)
}

func TestWrite_NoRetryOnTransient(t *testing.T) {
	p := &scriptedProvider{errs: []error{calendar.ErrTransient}}
	w := New(fixedIdentity{mode: model.ModeDelegated}, p, Options{}, nil, nil)

	res, err := w.Write(context.Background(), "cal@example.com", draft())
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, calendar.ErrTransient)
	assert.Len(t, p.calls, 1)
}

func TestWrite_AuthErrorIsReturned(t *testing.T) {
	tests := []struct {
		name string
		errs []error
	}{
		{"first attempt", []error{calendar.ErrAuth}},
		{"fallback attempt", []error{calendar.ErrConferenceRejected, calendar.ErrAuth}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &scriptedProvider{errs: tt.errs}
			w := New(fixedIdentity{mode: model.ModeDelegated}, p, Options{}, nil, nil)

			res, err := w.Write(context.Background(), "cal@example.com", draft())
			require.Error(t, err)
			assert.ErrorIs(t, err, calendar.ErrAuth)
			assert.False(t, res.Success)
			assert.Len(t, p.calls, len(tt.errs))
		})
	}
}

func TestWrite_IdentityFailure(t *testing.T) {
	p := &scriptedProvider{}
	w := New(fixedIdentity{err: errors.New("database is locked")}, p, Options{}, nil, nil)

	res, err := w.Write(context.Background(), "cal@example.com", draft())
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.ErrorContains(t, res.Err, "database is locked")
	assert.Empty(t, p.calls)
}

func TestValidateAttendee(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"anna@example.com", true},
		{"a.b+tag@sub.example.org", true},
		{" padded@example.com ", true},
		{"no-at-sign", false},
		{"anna@example", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			err := ValidateAttendee(calendar.Attendee{Email: tt.email})
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}
