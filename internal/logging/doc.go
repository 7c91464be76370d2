// Package logging provides structured logging utilities for meetsync.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "meetings.book")
//	logger.Info("event created",
//	    logging.Side("owner"),
//	    logging.Calendar(calendarID))
//
// Sanitize sensitive data before logging:
//
//	logger.Warn("attendee dropped",
//	    logging.UserHash(email))
//
// # Security Considerations
//
//   - Participant emails and personal calendar IDs are hashed
//   - Tokens are never logged directly
package logging
