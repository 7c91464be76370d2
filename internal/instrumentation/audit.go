package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"github.com/teemow/meetsync/internal/logging"
)

// ToolInvocation captures one MCP tool call for the audit trail.
//
// Caller and Calendar identify people. LogAttrs hashes them; LogAuditAttrs
// writes them verbatim and is only used when the audit stream is configured
// to include PII.
type ToolInvocation struct {
	Tool string

	// Caller is the participant ID the tool acted for (manager or owner).
	Caller string

	// Calendar is the calendar ID touched by the call, if any.
	Calendar string

	// MeetingID is set for booking, cancellation and status tools.
	MeetingID string

	// Outcome is a short domain result such as "both", "partial" or "no_slot".
	Outcome string

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	TraceID string
	SpanID  string
}

// Status returns "success" or "error" based on the Success field.
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns slog attributes with people identifiers hashed.
func (ti *ToolInvocation) LogAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("tool", ti.Tool),
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success),
	}

	if ti.Caller != "" {
		attrs = append(attrs, slog.String("caller_hash", logging.AnonymizeEmail(ti.Caller)))
	}
	if ti.Calendar != "" {
		attrs = append(attrs, logging.Calendar(ti.Calendar))
	}
	return ti.appendCommon(attrs, false)
}

// LogAuditAttrs returns slog attributes including the raw caller and calendar.
func (ti *ToolInvocation) LogAuditAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("tool", ti.Tool),
		slog.String("caller", ti.Caller),
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success),
	}

	if ti.Calendar != "" {
		attrs = append(attrs, slog.String("calendar", ti.Calendar))
	}
	return ti.appendCommon(attrs, true)
}

func (ti *ToolInvocation) appendCommon(attrs []slog.Attr, withSpan bool) []slog.Attr {
	if ti.MeetingID != "" {
		attrs = append(attrs, logging.MeetingID(ti.MeetingID))
	}
	if ti.Outcome != "" {
		attrs = append(attrs, slog.String("outcome", ti.Outcome))
	}
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID))
	}
	if withSpan && ti.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", ti.SpanID))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String("error", ti.Error))
	}
	return attrs
}

// NewToolInvocation creates a new ToolInvocation with timing started.
// Call Complete() when the tool operation finishes.
func NewToolInvocation(tool string) *ToolInvocation {
	return &ToolInvocation{
		Tool:      tool,
		StartTime: time.Now(),
	}
}

// WithCaller sets the participant the call acted for.
func (ti *ToolInvocation) WithCaller(participantID string) *ToolInvocation {
	ti.Caller = participantID
	return ti
}

// WithCalendar sets the calendar the call touched.
func (ti *ToolInvocation) WithCalendar(calendarID string) *ToolInvocation {
	ti.Calendar = calendarID
	return ti
}

// WithMeeting sets the meeting identifier.
func (ti *ToolInvocation) WithMeeting(meetingID string) *ToolInvocation {
	ti.MeetingID = meetingID
	return ti
}

// WithOutcome sets the domain outcome.
func (ti *ToolInvocation) WithOutcome(outcome string) *ToolInvocation {
	ti.Outcome = outcome
	return ti
}

// WithSpanContext extracts trace context from the current span.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	ti.TraceID = GetTraceID(ctx)
	ti.SpanID = GetSpanID(ctx)
	return ti
}

// Complete marks the invocation as completed and calculates duration.
func (ti *ToolInvocation) Complete(success bool, err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = success
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// AuditLogger writes tool invocations to a dedicated slog stream.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger creates an enabled AuditLogger that hashes identifiers.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true})
}

// NewAuditLoggerWithConfig creates a new AuditLogger with the given configuration.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	return &AuditLogger{
		logger:     logging.OrDefault(logger),
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// LogToolInvocation logs a finished tool invocation. Successful calls are
// logged at info as tool_executed, failed calls at warn as tool_failed.
func (al *AuditLogger) LogToolInvocation(ti *ToolInvocation) {
	if al == nil || !al.enabled || ti == nil {
		return
	}

	var attrs []slog.Attr
	if al.includePII {
		attrs = ti.LogAuditAttrs()
	} else {
		attrs = ti.LogAttrs()
	}

	level := slog.LevelInfo
	msg := "tool_executed"
	if !ti.Success {
		level = slog.LevelWarn
		msg = "tool_failed"
	}
	al.logger.LogAttrs(context.Background(), level, msg, attrs...)
}
