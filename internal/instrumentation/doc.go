// Package instrumentation provides OpenTelemetry metrics, tracing and tool
// audit logging for meetsync.
//
// # Metrics
//
// Calendar provider:
//   - calendar_operations_total: calls by operation (insert, delete, freebusy), mode and status
//   - calendar_operation_duration_seconds: latency of those calls
//   - conference_fallbacks_total: inserts retried without conference data, by mode and result
//
// Booking lifecycle:
//   - bookings_total: booking attempts by outcome (both, partial, failed, rejected)
//   - cancellations_total: cancellations by remote cleanup outcome
//   - slot_computation_duration_seconds and slots_offered: availability requests
//
// Server:
//   - http_requests_total and http_request_duration_seconds for the streamable HTTP transport
//   - oauth_token_refresh_total: delegated token refreshes by result
//   - mcp_tool_invocations_total and mcp_tool_duration_seconds
//
// # Tracing
//
// Spans are created for MCP tool calls (tool.<name>) and calendar provider
// calls (calendar.<operation>).
//
// # Configuration
//
// DefaultConfig reads:
//   - INSTRUMENTATION_ENABLED (default: true)
//   - METRICS_EXPORTER: prometheus, otlp or stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_INSECURE
//   - OTEL_TRACES_SAMPLER_ARG (default: 0.1)
//   - OTEL_SERVICE_NAME (default: meetsync)
//   - AUDIT_LOGGING_ENABLED, AUDIT_LOGGING_INCLUDE_PII
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	m := provider.Metrics()
//	m.RecordCalendarOperation(ctx, instrumentation.OperationInsert, "shared", instrumentation.StatusSuccess, time.Since(start))
//	m.RecordBooking(ctx, instrumentation.BookingBoth)
package instrumentation
