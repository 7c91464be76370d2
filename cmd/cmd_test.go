package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/meetsync/internal/config"
)

// execute runs the root command with args and returns the combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(bytes.NewBufferString(""))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCLI_ParticipantsAndMeetings(t *testing.T) {
	t.Setenv("MEETSYNC_TOKEN_STORE", config.TokenStoreMemory)
	t.Setenv("GOOGLE_CLIENT_ID", "")
	t.Setenv("GOOGLE_CLIENT_SECRET", "")
	db := filepath.Join(t.TempDir(), "meetsync.db")
	global := []string{"--store", "sqlite", "--database", db, "--owners", "owner-1", "--log-level", "error"}
	with := func(args ...string) []string { return append(args, global...) }

	out, err := execute(t, with("participant", "add", "owner-1",
		"--role", "owner", "--name", "Anna", "--email", "anna@example.com", "--department", "", "--calendar", "")...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Participant owner-1 saved.")

	out, err = execute(t, with("participant", "add", "mgr-1",
		"--role", "manager", "--name", "Ivan", "--email", "ivan@example.com", "--department", "Sales", "--calendar", "")...)
	require.NoError(t, err, out)

	out, err = execute(t, with("participant", "list", "--role", "")...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "mgr-1\tIvan\tmanager\tactive\t-")
	assert.Contains(t, out, "owner-1\tAnna\towner\tactive\t-")

	out, err = execute(t, with("overdue")...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "mgr-1\tIvan\tSales\tnever met")

	out, err = execute(t, with("slots", "--days", "3")...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "No free slots in the requested range.")

	out, err = execute(t, with("meetings", "--manager", "mgr-1", "--status", "")...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "No meetings found.")

	_, err = execute(t, with("book", "mgr-1", "next tuesday")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid time")

	_, err = execute(t, with("cancel", "missing")...)
	assert.Error(t, err)

	_, err = execute(t, with("connect", "mgr-1", "--code", "abc")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestCLI_InvalidConfiguration(t *testing.T) {
	t.Setenv("MEETSYNC_TOKEN_STORE", config.TokenStoreMemory)
	_, err := execute(t, "overdue", "--store", "postgres", "--log-level", "error")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid store")

	// Reset the persistent flag for later tests.
	require.NoError(t, rootCmd.PersistentFlags().Set("store", config.StoreMemory))
}

func TestVersionCmd(t *testing.T) {
	SetVersion("1.2.3")
	t.Cleanup(func() { SetVersion("dev") })

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "meetsync version 1.2.3\n", out)
}

func TestLoadMetricsEnvVars(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		args     []string
		expected MetricsConfig
	}{
		{
			name:     "defaults",
			expected: MetricsConfig{Enabled: true, Addr: ":9090"},
		},
		{
			name:     "env disables metrics",
			env:      map[string]string{"METRICS_ENABLED": "false", "METRICS_ADDR": ":9191"},
			expected: MetricsConfig{Enabled: false, Addr: ":9191"},
		},
		{
			name:     "flags win over env",
			env:      map[string]string{"METRICS_ENABLED": "false", "METRICS_ADDR": ":9191"},
			args:     []string{"--metrics-enabled=true", "--metrics-addr=:9292"},
			expected: MetricsConfig{Enabled: true, Addr: ":9292"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			var cfg MetricsConfig
			cmd := &cobra.Command{Use: "test"}
			cmd.Flags().BoolVar(&cfg.Enabled, "metrics-enabled", true, "")
			cmd.Flags().StringVar(&cfg.Addr, "metrics-addr", ":9090", "")
			require.NoError(t, cmd.ParseFlags(tt.args))

			loadMetricsEnvVars(cmd, &cfg)
			assert.Equal(t, tt.expected, cfg)
		})
	}
}

func TestGetCategoryFromToolName(t *testing.T) {
	tests := map[string]string{
		"list_available_slots":    "Slot Tools",
		"book_meeting":            "Slot Tools",
		"set_availability_window": "Availability Tools",
		"remove_blocked_interval": "Availability Tools",
		"cancel_meeting":          "Meeting Tools",
		"list_overdue_managers":   "Meeting Tools",
		"mark_no_show":            "Meeting Tools",
		"export_ics":              "Meeting Tools",
		"something_else":          "Other",
	}
	for name, want := range tests {
		assert.Equal(t, want, getCategoryFromToolName(name), name)
	}
}

func TestGenerateToolMarkdown(t *testing.T) {
	tool := mcp.NewTool("book_meeting",
		mcp.WithDescription("Book a meeting"),
		mcp.WithString("manager_id", mcp.Required(), mcp.Description("Participant ID of the manager")),
		mcp.WithString("note"),
	)

	md := generateToolMarkdown(tool)
	assert.Contains(t, md, "### book_meeting\n\nBook a meeting\n\n")
	assert.Contains(t, md, "- `manager_id` (required): Participant ID of the manager\n")
	assert.Contains(t, md, "- `note` (optional): string parameter\n")
}

func TestRunGenerateDocs(t *testing.T) {
	out := filepath.Join(t.TempDir(), "tools.md")
	require.NoError(t, runGenerateDocs(&bytes.Buffer{}, out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	md := string(data)
	assert.Contains(t, md, "## Slot Tools")
	assert.Contains(t, md, "### book_meeting")
	assert.Contains(t, md, "### set_availability_window")
	assert.NotContains(t, md, "## Other")
	assert.Less(t, strings.Index(md, "## Slot Tools"), strings.Index(md, "## Meeting Tools"))
}

func TestGenerateDocsCmd_Stdout(t *testing.T) {
	out, err := execute(t, "generate-docs", "--output", "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# MCP Tools Reference"))
	assert.Contains(t, out, "### cancel_meeting")
}
