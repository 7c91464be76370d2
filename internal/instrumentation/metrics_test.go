package instrumentation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T, detailed bool) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp.Meter("test"), detailed)
	require.NoError(t, err)
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

// counterValue sums the data points of a counter whose attributes contain all of want.
func counterValue(t *testing.T, m metricdata.Metrics, want ...attribute.KeyValue) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)

	var total int64
	for _, dp := range sum.DataPoints {
		matched := true
		for _, kv := range want {
			v, found := dp.Attributes.Value(kv.Key)
			if !found || v != kv.Value {
				matched = false
				break
			}
		}
		if matched {
			total += dp.Value
		}
	}
	return total
}

func TestMetrics_RecordCalendarOperation(t *testing.T) {
	m, reader := newTestMetrics(t, false)
	ctx := context.Background()

	m.RecordCalendarOperation(ctx, OperationInsert, "shared", StatusSuccess, 120*time.Millisecond)
	m.RecordCalendarOperation(ctx, OperationInsert, "shared", "conference_rejected", 80*time.Millisecond)
	m.RecordCalendarOperation(ctx, OperationFreeBusy, "delegated", StatusSuccess, 40*time.Millisecond)

	got := collect(t, reader)
	ops := got["calendar_operations_total"]
	assert.Equal(t, int64(2), counterValue(t, ops, attribute.String(attrOperation, OperationInsert)))
	assert.Equal(t, int64(1), counterValue(t, ops,
		attribute.String(attrOperation, OperationInsert),
		attribute.String(attrStatus, "conference_rejected")))
	assert.Equal(t, int64(1), counterValue(t, ops, attribute.String(attrMode, "delegated")))

	hist, ok := got["calendar_operation_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(3), count)
}

func TestMetrics_BookingLifecycle(t *testing.T) {
	m, reader := newTestMetrics(t, false)
	ctx := context.Background()

	m.RecordBooking(ctx, BookingBoth)
	m.RecordBooking(ctx, BookingBoth)
	m.RecordBooking(ctx, BookingPartial)
	m.RecordCancellation(ctx, CleanupIncomplete)
	m.RecordConferenceFallback(ctx, "delegated", FallbackRecovered)
	m.RecordOAuthTokenRefresh(ctx, OAuthResultFailure)

	got := collect(t, reader)
	assert.Equal(t, int64(2), counterValue(t, got["bookings_total"], attribute.String(attrOutcome, BookingBoth)))
	assert.Equal(t, int64(1), counterValue(t, got["bookings_total"], attribute.String(attrOutcome, BookingPartial)))
	assert.Equal(t, int64(1), counterValue(t, got["cancellations_total"], attribute.String(attrCleanup, CleanupIncomplete)))
	assert.Equal(t, int64(1), counterValue(t, got["conference_fallbacks_total"], attribute.String(attrResult, FallbackRecovered)))
	assert.Equal(t, int64(1), counterValue(t, got["oauth_token_refresh_total"], attribute.String(attrResult, OAuthResultFailure)))
}

func TestMetrics_RecordSlotComputation(t *testing.T) {
	m, reader := newTestMetrics(t, false)

	m.RecordSlotComputation(context.Background(), 2, 17, 300*time.Millisecond)

	got := collect(t, reader)
	hist, ok := got["slots_offered"].Data.(metricdata.Histogram[int64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, int64(17), hist.DataPoints[0].Sum)
	owners, _ := hist.DataPoints[0].Attributes.Value(attrOwners)
	assert.Equal(t, int64(2), owners.AsInt64())
}

func TestMetrics_ToolCallerLabel(t *testing.T) {
	tests := []struct {
		name       string
		detailed   bool
		wantCaller bool
	}{
		{name: "caller dropped by default", detailed: false, wantCaller: false},
		{name: "caller kept with detailed labels", detailed: true, wantCaller: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, reader := newTestMetrics(t, tt.detailed)
			m.RecordToolInvocationWithCaller(context.Background(), "book_meeting", StatusSuccess, "manager-1", time.Second)

			sum := collect(t, reader)["mcp_tool_invocations_total"].Data.(metricdata.Sum[int64])
			require.Len(t, sum.DataPoints, 1)
			_, found := sum.DataPoints[0].Attributes.Value(attrCaller)
			assert.Equal(t, tt.wantCaller, found)
		})
	}
}

func TestMetrics_HTTPRequest(t *testing.T) {
	m, reader := newTestMetrics(t, false)

	m.RecordHTTPRequest(context.Background(), "POST", "/mcp", 200, 10*time.Millisecond)

	got := collect(t, reader)
	assert.Equal(t, int64(1), counterValue(t, got["http_requests_total"], attribute.String(attrStatus, "200")))
}

func TestMetrics_NoOp(t *testing.T) {
	ctx := context.Background()

	for _, m := range []*Metrics{nil, {}} {
		assert.NotPanics(t, func() {
			m.RecordHTTPRequest(ctx, "GET", "/", 200, time.Second)
			m.RecordCalendarOperation(ctx, OperationDelete, "shared", StatusSuccess, time.Second)
			m.RecordConferenceFallback(ctx, "shared", FallbackFailed)
			m.RecordBooking(ctx, BookingFailed)
			m.RecordCancellation(ctx, CleanupComplete)
			m.RecordSlotComputation(ctx, 1, 3, time.Second)
			m.RecordOAuthTokenRefresh(ctx, OAuthResultSuccess)
			m.RecordToolInvocation(ctx, "cancel_meeting", StatusError, time.Second)
		})
	}
}
