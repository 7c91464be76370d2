package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	c.OwnerIDs = []string{"o1", "o2"}
	require.NoError(t, c.Validate())
	assert.Equal(t, "Europe/Moscow", c.Location().String())
	assert.Equal(t, time.Hour, c.MeetingDuration)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("MEETSYNC_OWNER_IDS", " o1, o2 ,")
	t.Setenv("MEETSYNC_EXPECTED_OWNERS", "2")
	t.Setenv("MEETSYNC_MEETING_DURATION", "45m")
	t.Setenv("MEETSYNC_SKIP_WEEKENDS", "false")
	t.Setenv("MEETSYNC_STORE", "memory")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "/etc/meetsync/sa.json")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"o1", "o2"}, c.OwnerIDs)
	assert.Equal(t, 2, c.ExpectedOwners)
	assert.Equal(t, 45*time.Minute, c.MeetingDuration)
	assert.False(t, c.SkipWeekends)
	assert.Equal(t, StoreMemory, c.Store)
	assert.Equal(t, "/etc/meetsync/sa.json", c.Google.ServiceAccountFile)
	assert.NoError(t, c.Validate())
}

func TestLoadReportsMalformedValues(t *testing.T) {
	t.Setenv("MEETSYNC_DAYS_AHEAD", "two weeks")
	t.Setenv("MEETSYNC_WRITE_TIMEOUT", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MEETSYNC_DAYS_AHEAD")
	assert.Contains(t, err.Error(), "MEETSYNC_WRITE_TIMEOUT")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:    "owner count mismatch",
			mutate:  func(c *Config) { c.ExpectedOwners = 2; c.OwnerIDs = []string{"o1"} },
			wantErr: "expected 2 owners, 1 configured",
		},
		{
			name:    "single owner not allowed",
			mutate:  func(c *Config) { c.OwnerIDs = []string{"o1"}; c.AllowSingleOwnerMode = false },
			wantErr: "single-owner mode is disabled",
		},
		{
			name:    "duplicate owner",
			mutate:  func(c *Config) { c.OwnerIDs = []string{"o1", "o1"} },
			wantErr: "configured twice",
		},
		{
			name:    "bad timezone",
			mutate:  func(c *Config) { c.Timezone = "Mars/Olympus" },
			wantErr: "invalid timezone",
		},
		{
			name:    "zero duration",
			mutate:  func(c *Config) { c.MeetingDuration = 0 },
			wantErr: "meeting duration must be positive",
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.Timeouts.Busy = 0 },
			wantErr: "busy timeout must be positive",
		},
		{
			name:    "unknown store",
			mutate:  func(c *Config) { c.Store = "postgres" },
			wantErr: "invalid store",
		},
		{
			name:    "unknown token store",
			mutate:  func(c *Config) { c.Google.TokenStore = "vault" },
			wantErr: "invalid token store",
		},
		{
			name:    "booking horizon shorter than offer horizon",
			mutate:  func(c *Config) { c.MaxBookingDaysAhead = 7 },
			wantErr: "max booking days ahead",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			c.OwnerIDs = []string{"o1", "o2"}
			tt.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateAllowsZeroOwners(t *testing.T) {
	c := Default()
	assert.NoError(t, c.Validate())
}

func TestSummary(t *testing.T) {
	c := Default()
	assert.Equal(t, "Созвон с Sales", c.Summary("Sales"))
}
