package calendar

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
)

var (
	// ErrAuth means the calendar cannot be reached with the available
	// credentials. It is fatal for that side and never retried.
	ErrAuth = errors.New("calendar authorization failed")

	// ErrConferenceRejected means the provider refused the requested
	// conference shape.
	ErrConferenceRejected = errors.New("conference request rejected")

	// ErrTransient covers timeouts, rate limits and server errors.
	ErrTransient = errors.New("transient calendar error")

	// ErrNotFound means the event or calendar does not exist.
	ErrNotFound = errors.New("calendar resource not found")
)

// Error kinds, used as metric labels.
const (
	KindAuth               = "auth"
	KindConferenceRejected = "conference_rejected"
	KindTransient          = "transient"
	KindNotFound           = "not_found"
	KindOther              = "error"
)

// Classify wraps err with the matching sentinel. conferenceRequested tells
// whether the failed call carried conference data, which decides if a 400
// or a conference-related 403 counts as a rejected conference shape.
// Errors that match no sentinel are returned unchanged.
func Classify(err error, conferenceRequested bool) error {
	if err == nil {
		return nil
	}
	if isClassified(err) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if sentinel := classifyAPIError(apiErr, conferenceRequested); sentinel != nil {
			return fmt.Errorf("%w: %w", sentinel, err)
		}
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
	return err
}

func classifyAPIError(e *googleapi.Error, conferenceRequested bool) error {
	switch {
	case e.Code == http.StatusUnauthorized:
		return ErrAuth
	case e.Code == http.StatusForbidden:
		if hasReason(e, "rateLimitExceeded", "userRateLimitExceeded", "quotaExceeded") {
			return ErrTransient
		}
		if conferenceRequested && mentionsConference(e) {
			return ErrConferenceRejected
		}
		return ErrAuth
	case e.Code == http.StatusBadRequest && conferenceRequested:
		return ErrConferenceRejected
	case e.Code == http.StatusNotFound, e.Code == http.StatusGone:
		return ErrNotFound
	case e.Code == http.StatusTooManyRequests, e.Code >= 500:
		return ErrTransient
	}
	return nil
}

func hasReason(e *googleapi.Error, reasons ...string) bool {
	for _, item := range e.Errors {
		for _, r := range reasons {
			if item.Reason == r {
				return true
			}
		}
	}
	return false
}

func mentionsConference(e *googleapi.Error) bool {
	if strings.Contains(strings.ToLower(e.Message), "conference") {
		return true
	}
	for _, item := range e.Errors {
		if strings.Contains(strings.ToLower(item.Message), "conference") {
			return true
		}
	}
	return false
}

func isClassified(err error) bool {
	return errors.Is(err, ErrAuth) ||
		errors.Is(err, ErrConferenceRejected) ||
		errors.Is(err, ErrTransient) ||
		errors.Is(err, ErrNotFound)
}

// Kind returns the metric label for a classified error.
func Kind(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrAuth):
		return KindAuth
	case errors.Is(err, ErrConferenceRejected):
		return KindConferenceRejected
	case errors.Is(err, ErrTransient):
		return KindTransient
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	}
	return KindOther
}
