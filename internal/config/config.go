// Package config holds the explicit, validated configuration of the scheduling
// engine. It is loaded once at startup and passed to constructors; nothing in
// the engine reads the environment at call time.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Token store backends for delegated credentials.
const (
	TokenStoreFile   = "file"
	TokenStoreMemory = "memory"
)

// Timeouts bounds every external calendar call.
type Timeouts struct {
	Write  time.Duration
	Delete time.Duration
	Busy   time.Duration
}

// Reminders are the reminder overrides put on every created event.
type Reminders struct {
	PopupBefore time.Duration
	EmailBefore time.Duration
}

// Google holds credentials for both calendar identity modes.
type Google struct {
	// ClientID and ClientSecret configure the OAuth client used for delegated
	// calendars and token refresh.
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// ServiceAccountFile is the JSON key of the shared service identity.
	ServiceAccountFile string

	// TokenStore selects where delegated tokens live (file or memory).
	TokenStore string
	// TokenDir overrides the directory of the file token store.
	TokenDir string
}

// Config is the full engine configuration.
type Config struct {
	// OwnerIDs lists the configured owners in priority order. Only the first two
	// gate slot availability.
	OwnerIDs []string
	// ExpectedOwners, when positive, must equal len(OwnerIDs).
	ExpectedOwners int
	// AllowSingleOwnerMode permits running with exactly one owner.
	AllowSingleOwnerMode bool

	Timezone            string
	MeetingDuration     time.Duration
	DaysAhead           int
	MaxBookingDaysAhead int
	SkipWeekends        bool

	// OverdueAfter is how long a manager may go without a meeting before being
	// reported as overdue.
	OverdueAfter time.Duration
	// RecentWindow is the look-back for a manager's most recent meeting.
	RecentWindow time.Duration
	// OneMeetingPerWindow refuses a booking if the manager already has a
	// scheduled meeting within RecentWindow.
	OneMeetingPerWindow bool

	// SharedCalendarID is the calendar of record used when a participant has
	// no calendar of their own.
	SharedCalendarID string
	// SharedAttendees allows attendees on shared-identity events. Service
	// identities without domain-wide delegation cannot invite attendees.
	SharedAttendees bool
	// SummaryTemplate is the event title; "{department}" is substituted.
	SummaryTemplate string

	Google    Google
	Timeouts  Timeouts
	Reminders Reminders

	Store        string
	DatabasePath string

	LogLevel  string
	LogFormat string
}

// Default returns the built-in defaults without consulting the environment.
func Default() Config {
	return Config{
		AllowSingleOwnerMode: true,
		Timezone:             "Europe/Moscow",
		MeetingDuration:      60 * time.Minute,
		DaysAhead:            14,
		MaxBookingDaysAhead:  30,
		SkipWeekends:         true,
		OverdueAfter:         17 * 24 * time.Hour,
		RecentWindow:         14 * 24 * time.Hour,
		SummaryTemplate:      "Созвон с {department}",
		Google: Google{
			RedirectURL: "urn:ietf:wg:oauth:2.0:oob",
			TokenStore:  TokenStoreFile,
		},
		Timeouts: Timeouts{
			Write:  15 * time.Second,
			Delete: 10 * time.Second,
			Busy:   10 * time.Second,
		},
		Reminders: Reminders{
			PopupBefore: 10 * time.Minute,
			EmailBefore: 24 * time.Hour,
		},
		Store:        StoreSQLite,
		DatabasePath: "meetsync.db",
		LogLevel:     "info",
		LogFormat:    "text",
	}
}

// Load returns the defaults overridden by MEETSYNC_* and GOOGLE_* environment
// variables. Malformed values are reported together.
func Load() (Config, error) {
	c := Default()
	var errs []error

	c.OwnerIDs = getEnvList("MEETSYNC_OWNER_IDS", c.OwnerIDs)
	c.ExpectedOwners = getEnvInt("MEETSYNC_EXPECTED_OWNERS", c.ExpectedOwners, &errs)
	c.AllowSingleOwnerMode = getEnvBool("MEETSYNC_ALLOW_SINGLE_OWNER", c.AllowSingleOwnerMode, &errs)
	c.Timezone = getEnvOrDefault("MEETSYNC_TIMEZONE", c.Timezone)
	c.MeetingDuration = getEnvDuration("MEETSYNC_MEETING_DURATION", c.MeetingDuration, &errs)
	c.DaysAhead = getEnvInt("MEETSYNC_DAYS_AHEAD", c.DaysAhead, &errs)
	c.MaxBookingDaysAhead = getEnvInt("MEETSYNC_MAX_BOOKING_DAYS_AHEAD", c.MaxBookingDaysAhead, &errs)
	c.SkipWeekends = getEnvBool("MEETSYNC_SKIP_WEEKENDS", c.SkipWeekends, &errs)
	c.OverdueAfter = getEnvDuration("MEETSYNC_OVERDUE_AFTER", c.OverdueAfter, &errs)
	c.RecentWindow = getEnvDuration("MEETSYNC_RECENT_WINDOW", c.RecentWindow, &errs)
	c.OneMeetingPerWindow = getEnvBool("MEETSYNC_ONE_MEETING_PER_WINDOW", c.OneMeetingPerWindow, &errs)
	c.SharedCalendarID = getEnvOrDefault("MEETSYNC_SHARED_CALENDAR_ID", c.SharedCalendarID)
	c.SharedAttendees = getEnvBool("MEETSYNC_SHARED_ATTENDEES", c.SharedAttendees, &errs)
	c.SummaryTemplate = getEnvOrDefault("MEETSYNC_SUMMARY_TEMPLATE", c.SummaryTemplate)

	c.Google.ClientID = getEnvOrDefault("GOOGLE_CLIENT_ID", c.Google.ClientID)
	c.Google.ClientSecret = getEnvOrDefault("GOOGLE_CLIENT_SECRET", c.Google.ClientSecret)
	c.Google.RedirectURL = getEnvOrDefault("GOOGLE_REDIRECT_URL", c.Google.RedirectURL)
	c.Google.ServiceAccountFile = getEnvOrDefault("GOOGLE_SERVICE_ACCOUNT_FILE", c.Google.ServiceAccountFile)
	c.Google.TokenStore = getEnvOrDefault("MEETSYNC_TOKEN_STORE", c.Google.TokenStore)
	c.Google.TokenDir = getEnvOrDefault("MEETSYNC_TOKEN_DIR", c.Google.TokenDir)

	c.Timeouts.Write = getEnvDuration("MEETSYNC_WRITE_TIMEOUT", c.Timeouts.Write, &errs)
	c.Timeouts.Delete = getEnvDuration("MEETSYNC_DELETE_TIMEOUT", c.Timeouts.Delete, &errs)
	c.Timeouts.Busy = getEnvDuration("MEETSYNC_BUSY_TIMEOUT", c.Timeouts.Busy, &errs)

	c.Store = getEnvOrDefault("MEETSYNC_STORE", c.Store)
	c.DatabasePath = getEnvOrDefault("MEETSYNC_DATABASE_PATH", c.DatabasePath)
	c.LogLevel = getEnvOrDefault("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnvOrDefault("LOG_FORMAT", c.LogFormat)

	if len(errs) > 0 {
		return c, fmt.Errorf("invalid environment: %w", errors.Join(errs...))
	}
	return c, nil
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.ExpectedOwners < 0 {
		errs = append(errs, fmt.Errorf("expected owners must not be negative, got %d", c.ExpectedOwners))
	}
	if c.ExpectedOwners > 0 && len(c.OwnerIDs) != c.ExpectedOwners {
		errs = append(errs, fmt.Errorf("expected %d owners, %d configured", c.ExpectedOwners, len(c.OwnerIDs)))
	}
	if len(c.OwnerIDs) == 1 && !c.AllowSingleOwnerMode {
		errs = append(errs, errors.New("exactly one owner configured but single-owner mode is disabled"))
	}
	seen := make(map[string]bool, len(c.OwnerIDs))
	for _, id := range c.OwnerIDs {
		if id == "" {
			errs = append(errs, errors.New("owner ids must not be empty"))
			continue
		}
		if seen[id] {
			errs = append(errs, fmt.Errorf("owner %q configured twice", id))
		}
		seen[id] = true
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err))
	}
	if c.MeetingDuration <= 0 {
		errs = append(errs, fmt.Errorf("meeting duration must be positive, got %s", c.MeetingDuration))
	}
	if c.DaysAhead <= 0 {
		errs = append(errs, fmt.Errorf("days ahead must be positive, got %d", c.DaysAhead))
	}
	if c.MaxBookingDaysAhead < c.DaysAhead {
		errs = append(errs, fmt.Errorf("max booking days ahead (%d) must be at least days ahead (%d)", c.MaxBookingDaysAhead, c.DaysAhead))
	}
	for name, d := range map[string]time.Duration{
		"write timeout":  c.Timeouts.Write,
		"delete timeout": c.Timeouts.Delete,
		"busy timeout":   c.Timeouts.Busy,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}

	switch c.Store {
	case StoreMemory:
	case StoreSQLite:
		if c.DatabasePath == "" {
			errs = append(errs, errors.New("database path is required for the sqlite store"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid store %q, must be one of: memory, sqlite", c.Store))
	}
	switch c.Google.TokenStore {
	case TokenStoreFile, TokenStoreMemory:
	default:
		errs = append(errs, fmt.Errorf("invalid token store %q, must be one of: file, memory", c.Google.TokenStore))
	}

	return errors.Join(errs...)
}

// Location returns the configured timezone. Call Validate first.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Summary renders the event title for a department.
func (c *Config) Summary(department string) string {
	return strings.ReplaceAll(c.SummaryTemplate, "{department}", department)
}

// getEnvOrDefault returns the value of an environment variable or a default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvBool(key string, defaultValue bool, errs *[]error) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int, errs *[]error) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return parsed
}
