package meetings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/teemow/meetsync/internal/calendar"
	"github.com/teemow/meetsync/internal/instrumentation"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func endedSpan(t *testing.T, recorder *tracetest.SpanRecorder, name string) sdktrace.ReadOnlySpan {
	t.Helper()
	for _, s := range recorder.Ended() {
		if s.Name() == name {
			return s
		}
	}
	require.Failf(t, "span not recorded", "no ended span named %q", name)
	return nil
}

func spanAttr(s sdktrace.ReadOnlySpan, key string) string {
	for _, kv := range s.Attributes() {
		if string(kv.Key) == key {
			return kv.Value.Emit()
		}
	}
	return ""
}

func TestBookMeeting_SideSpans(t *testing.T) {
	recorder := recordSpans(t)
	e := newEnv(t)
	e.calendar.insertErrs[ownerCal] = []error{calendar.ErrConferenceRejected, nil}

	_, err := e.manager.BookMeeting(context.Background(), "mgr-1", monday10)
	require.NoError(t, err)

	mgr := endedSpan(t, recorder, "meetings.write_manager")
	assert.Equal(t, "manager", spanAttr(mgr, instrumentation.SpanAttrSide))
	assert.Equal(t, codes.Ok, mgr.Status().Code)
	assert.Empty(t, mgr.Events())

	owner := endedSpan(t, recorder, "meetings.write_owner")
	assert.Equal(t, "owner", spanAttr(owner, instrumentation.SpanAttrSide))
	assert.Equal(t, codes.Ok, owner.Status().Code)
	require.Len(t, owner.Events(), 1)
	assert.Equal(t, "conference_fallback", owner.Events()[0].Name)
}

func TestBookMeeting_FailedSideSpanRecordsError(t *testing.T) {
	recorder := recordSpans(t)
	e := newEnv(t)
	e.calendar.insertErrs[ownerCal] = []error{calendar.ErrTransient}

	booking, err := e.manager.BookMeeting(context.Background(), "mgr-1", monday10)
	require.NoError(t, err)
	require.False(t, booking.Result.Owner.Success)

	owner := endedSpan(t, recorder, "meetings.write_owner")
	assert.Equal(t, codes.Error, owner.Status().Code)
	assert.Equal(t, codes.Ok, endedSpan(t, recorder, "meetings.write_manager").Status().Code)
}
