package instrumentation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
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

func attrMap(attrs []attribute.KeyValue) map[string]any {
	m := make(map[string]any, len(attrs))
	for _, a := range attrs {
		m[string(a.Key)] = a.Value.AsInterface()
	}
	return m
}

func TestSpanAttributeBuilder(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithMode("shared").
		WithSide("owner").
		WithConference("full").
		WithMeeting("m-1").
		WithParticipant("p-7").
		Build()

	assert.Equal(t, map[string]any{
		SpanAttrCalendarMode: "shared",
		SpanAttrSide:         "owner",
		SpanAttrConference:   "full",
		SpanAttrMeetingID:    "m-1",
		SpanAttrParticipant:  "p-7",
	}, attrMap(attrs))
}

func TestSpanAttributeBuilder_EmptyValues(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithParticipant("p-7").
		WithMode("").
		WithSide("").
		WithMeeting("").
		Build()

	assert.Len(t, attrs, 1)
}

func TestStartCalendarSpan(t *testing.T) {
	recorder := recordSpans(t)

	_, span := StartCalendarSpan(context.Background(), OperationInsert,
		NewSpanAttributeBuilder().WithMode("delegated").Build()...)
	SetSpanSuccess(span)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "calendar.insert", ended[0].Name())
	assert.Equal(t, trace.SpanKindClient, ended[0].SpanKind())
	assert.Equal(t, codes.Ok, ended[0].Status().Code)

	attrs := attrMap(ended[0].Attributes())
	assert.Equal(t, OperationInsert, attrs[SpanAttrOperation])
	assert.Equal(t, "delegated", attrs[SpanAttrCalendarMode])
}

func TestStartToolSpan(t *testing.T) {
	recorder := recordSpans(t)

	ctx, span := StartToolSpan(context.Background(), "cancel_meeting")
	assert.NotEmpty(t, GetTraceID(ctx))
	assert.NotEmpty(t, GetSpanID(ctx))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "tool.cancel_meeting", ended[0].Name())
	assert.Equal(t, trace.SpanKindServer, ended[0].SpanKind())
}

func TestSetSpanError(t *testing.T) {
	recorder := recordSpans(t)

	_, span := StartSpan(context.Background(), "booking")
	SetSpanError(span, errors.New("calendar unavailable"))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "calendar unavailable", ended[0].Status().Description)
	require.Len(t, ended[0].Events(), 1)
	assert.Equal(t, "exception", ended[0].Events()[0].Name)
}

func TestSetSpanError_Nil(t *testing.T) {
	recorder := recordSpans(t)

	_, span := StartSpan(context.Background(), "booking")
	SetSpanError(span, nil)
	span.End()

	assert.Equal(t, codes.Unset, recorder.Ended()[0].Status().Code)
}

func TestAddSpanEvent(t *testing.T) {
	recorder := recordSpans(t)

	_, span := StartSpan(context.Background(), "booking")
	AddSpanEvent(span, "conference_fallback", attribute.String(SpanAttrSide, "owner"))
	span.End()

	events := recorder.Ended()[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "conference_fallback", events[0].Name)
	assert.Equal(t, "owner", attrMap(events[0].Attributes)[SpanAttrSide])
}

func TestTraceIDs_NoSpan(t *testing.T) {
	assert.Empty(t, GetTraceID(context.Background()))
	assert.Empty(t, GetSpanID(context.Background()))
}
