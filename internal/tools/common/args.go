package common

import (
	"fmt"
	"strings"
	"time"
)

// Argument keys that identify the participant a tool acts for, in lookup
// order.
var callerKeys = []string{"manager_id", "owner_id"}

// CallerFromArgs returns the participant ID a tool call acts for, or "" when
// the call names none.
func CallerFromArgs(args map[string]interface{}) string {
	for _, key := range callerKeys {
		if v, ok := args[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// StringArg returns a trimmed string argument.
func StringArg(args map[string]interface{}, key string) (string, bool) {
	v, ok := args[key].(string)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// RequiredString returns a non-empty string argument or an error naming it.
func RequiredString(args map[string]interface{}, key string) (string, error) {
	v, ok := StringArg(args, key)
	if !ok {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}

// IntArg returns an integer argument. JSON numbers arrive as float64.
func IntArg(args map[string]interface{}, key string, defaultValue int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return defaultValue
}

// Accepted local layouts after RFC 3339.
var localLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
}

// ParseTime parses RFC 3339, or a local date and clock time in loc.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q: use RFC 3339 or YYYY-MM-DD HH:MM", s)
}

// TimeArg parses a required time argument with ParseTime.
func TimeArg(args map[string]interface{}, key string, loc *time.Location) (time.Time, error) {
	s, err := RequiredString(args, key)
	if err != nil {
		return time.Time{}, err
	}
	t, err := ParseTime(s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", key, err)
	}
	return t, nil
}
