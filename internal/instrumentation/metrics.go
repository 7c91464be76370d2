package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrMode      = "mode"
	attrResult    = "result"
	attrOutcome   = "outcome"
	attrCleanup   = "cleanup"
	attrTool      = "tool"
	attrCaller    = "caller"
	attrOwners    = "owners"
)

// Metrics provides methods for recording observability metrics.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// Calendar provider metrics
	calendarOperationsTotal   metric.Int64Counter
	calendarOperationDuration metric.Float64Histogram
	conferenceFallbacksTotal  metric.Int64Counter

	// Booking lifecycle metrics
	bookingsTotal      metric.Int64Counter
	cancellationsTotal metric.Int64Counter
	slotComputation    metric.Float64Histogram
	slotsOffered       metric.Int64Histogram

	// OAuth metrics
	oauthTokenRefreshTotal metric.Int64Counter

	// MCP Tool metrics
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	// detailedLabels controls whether high-cardinality labels are included
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.calendarOperationsTotal, err = meter.Int64Counter(
		"calendar_operations_total",
		metric.WithDescription("Total number of calendar provider operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar_operations_total counter: %w", err)
	}

	m.calendarOperationDuration, err = meter.Float64Histogram(
		"calendar_operation_duration_seconds",
		metric.WithDescription("Calendar provider operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar_operation_duration_seconds histogram: %w", err)
	}

	m.conferenceFallbacksTotal, err = meter.Int64Counter(
		"conference_fallbacks_total",
		metric.WithDescription("Event inserts retried without conference data after a rejection"),
		metric.WithUnit("{fallback}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create conference_fallbacks_total counter: %w", err)
	}

	m.bookingsTotal, err = meter.Int64Counter(
		"bookings_total",
		metric.WithDescription("Total number of booking attempts by outcome"),
		metric.WithUnit("{booking}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create bookings_total counter: %w", err)
	}

	m.cancellationsTotal, err = meter.Int64Counter(
		"cancellations_total",
		metric.WithDescription("Total number of cancellations by remote cleanup outcome"),
		metric.WithUnit("{cancellation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cancellations_total counter: %w", err)
	}

	m.slotComputation, err = meter.Float64Histogram(
		"slot_computation_duration_seconds",
		metric.WithDescription("Time spent computing available slots"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create slot_computation_duration_seconds histogram: %w", err)
	}

	m.slotsOffered, err = meter.Int64Histogram(
		"slots_offered",
		metric.WithDescription("Number of slots returned per availability request"),
		metric.WithUnit("{slot}"),
		metric.WithExplicitBucketBoundaries(0, 1, 5, 10, 25, 50, 100),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create slots_offered histogram: %w", err)
	}

	m.oauthTokenRefreshTotal, err = meter.Int64Counter(
		"oauth_token_refresh_total",
		metric.WithDescription("Total number of OAuth token refresh attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_token_refresh_total counter: %w", err)
	}

	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	)

	m.httpRequestsTotal.Add(ctx, 1, attrs)
	m.httpRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordCalendarOperation records one call against the calendar provider.
//
// Parameters:
//   - operation: OperationInsert, OperationDelete or OperationFreeBusy
//   - mode: calendar mode of the identity ("delegated" or "shared")
//   - status: StatusSuccess or the classified error kind
//   - duration: time taken for the call
func (m *Metrics) RecordCalendarOperation(ctx context.Context, operation, mode, status string, duration time.Duration) {
	if m == nil || m.calendarOperationsTotal == nil || m.calendarOperationDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrOperation, operation),
		attribute.String(attrMode, mode),
		attribute.String(attrStatus, status),
	)

	m.calendarOperationsTotal.Add(ctx, 1, attrs)
	m.calendarOperationDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordConferenceFallback records a retry without conference data.
// Result is FallbackRecovered when the retry created the event.
func (m *Metrics) RecordConferenceFallback(ctx context.Context, mode, result string) {
	if m == nil || m.conferenceFallbacksTotal == nil {
		return
	}

	m.conferenceFallbacksTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrMode, mode),
		attribute.String(attrResult, result),
	))
}

// RecordBooking records the outcome of a booking attempt.
func (m *Metrics) RecordBooking(ctx context.Context, outcome string) {
	if m == nil || m.bookingsTotal == nil {
		return
	}

	m.bookingsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOutcome, outcome)))
}

// RecordCancellation records a cancellation and whether every remote event was removed.
func (m *Metrics) RecordCancellation(ctx context.Context, cleanup string) {
	if m == nil || m.cancellationsTotal == nil {
		return
	}

	m.cancellationsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrCleanup, cleanup)))
}

// RecordSlotComputation records how long an availability request took and
// how many slots it produced. Owners is the number of owners intersected.
func (m *Metrics) RecordSlotComputation(ctx context.Context, owners, slots int, duration time.Duration) {
	if m == nil || m.slotComputation == nil || m.slotsOffered == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.Int(attrOwners, owners))

	m.slotComputation.Record(ctx, duration.Seconds(), attrs)
	m.slotsOffered.Record(ctx, int64(slots), attrs)
}

// RecordOAuthTokenRefresh records an OAuth token refresh attempt with result.
// Result should be one of: "success", "failure", "expired"
func (m *Metrics) RecordOAuthTokenRefresh(ctx context.Context, result string) {
	if m == nil || m.oauthTokenRefreshTotal == nil {
		return
	}

	m.oauthTokenRefreshTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	m.RecordToolInvocationWithCaller(ctx, toolName, status, "", duration)
}

// RecordToolInvocationWithCaller records an MCP tool invocation. The caller
// label is only attached when detailed labels are enabled.
func (m *Metrics) RecordToolInvocationWithCaller(ctx context.Context, toolName, status, caller string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}

	if m.detailedLabels && caller != "" {
		attrs = append(attrs, attribute.String(attrCaller, caller))
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

