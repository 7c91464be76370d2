package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the meetsync application
var rootCmd = &cobra.Command{
	Use:   "meetsync",
	Short: "Books recurring manager meetings into two Google calendars",
	Long: `meetsync finds meeting slots that are free for the configured owners and
books them into both the manager's and the owner's calendar, with a Google
Meet link where the calendar allows one.

It can run as:
  - A CLI for looking up slots and managing meetings
  - An MCP (Model Context Protocol) server for AI assistants`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "meetsync version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	addGlobalFlags(rootCmd)

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newSlotsCmd())
	rootCmd.AddCommand(newBookCmd())
	rootCmd.AddCommand(newCancelCmd())
	rootCmd.AddCommand(newStatusCmd("complete", "Mark a meeting as held", func(a *app) statusFunc { return a.manager.MarkCompleted }))
	rootCmd.AddCommand(newStatusCmd("no-show", "Mark a meeting as missed by the manager", func(a *app) statusFunc { return a.manager.MarkNoShow }))
	rootCmd.AddCommand(newMeetingsCmd())
	rootCmd.AddCommand(newExportICSCmd())
	rootCmd.AddCommand(newOverdueCmd())
	rootCmd.AddCommand(newConnectCmd())
	rootCmd.AddCommand(newParticipantCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}
