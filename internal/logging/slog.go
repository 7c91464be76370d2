package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation   = "operation"
	KeyCalendar    = "calendar"
	KeyMeetingID   = "meeting_id"
	KeyParticipant = "participant"
	KeySide        = "side"
	KeyMode        = "mode"
	KeyUserHash    = "user_hash"
	KeyStatus      = "status"
	KeyError       = "error"
)

// Status values for consistent logging.
// Note: These are intentionally duplicated from instrumentation package
// to avoid circular dependencies (instrumentation imports logging).
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// sharedCalendarSuffix marks Google group calendars, which identify no person.
const sharedCalendarSuffix = "@group.calendar.google.com"

// New builds a logger writing to w. format is "json" or "text"; level is one of
// debug, info, warn, error.
func New(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q, must be text or json", format)
	}
}

// OrDefault returns logger, or slog.Default() when logger is nil.
func OrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithMeeting returns a logger with the meeting_id attribute set.
func WithMeeting(logger *slog.Logger, meetingID string) *slog.Logger {
	return logger.With(slog.String(KeyMeetingID, meetingID))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Calendar returns a slog attribute for a calendar ID. Personal calendar IDs
// are email addresses, so they are anonymized; shared group calendars are
// logged as is.
func Calendar(calendarID string) slog.Attr {
	if strings.HasSuffix(calendarID, sharedCalendarSuffix) || !strings.Contains(calendarID, "@") {
		return slog.String(KeyCalendar, calendarID)
	}
	return slog.String(KeyCalendar, AnonymizeEmail(calendarID))
}

// MeetingID returns a slog attribute for a meeting ID.
func MeetingID(id string) slog.Attr {
	return slog.String(KeyMeetingID, id)
}

// Participant returns a slog attribute for a participant ID.
func Participant(id string) slog.Attr {
	return slog.String(KeyParticipant, id)
}

// Side returns a slog attribute naming the meeting side (manager or owner).
func Side(side string) slog.Attr {
	return slog.String(KeySide, side)
}

// Mode returns a slog attribute for a calendar identity mode.
func Mode(mode string) slog.Attr {
	return slog.String(KeyMode, mode)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Err returns a slog attribute for an error.
// If err is nil, returns an empty Group attribute that will be omitted from output.
// This allows safely passing Err(maybeNilErr) without adding empty attributes.
//
// Usage:
//
//	logger.Info("operation", logging.Err(err))  // Safe even if err is nil
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeEmail returns a hashed representation of an email for logging purposes.
// This allows correlation of log entries without exposing PII.
func AnonymizeEmail(email string) string {
	if email == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(email))
	return "user:" + hex.EncodeToString(hash[:8])
}

// UserHash returns a slog attribute with the anonymized user email.
//
// Usage:
//
//	logger.Info("attendee dropped", logging.UserHash(p.Email))
func UserHash(email string) slog.Attr {
	return slog.String(KeyUserHash, AnonymizeEmail(email))
}

// SanitizeToken returns a masked version of a token for logging.
// It returns a length indicator without exposing any token content,
// as even partial token prefixes (like JWT headers) can aid attacks.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}
