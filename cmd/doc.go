// Package cmd implements the command-line interface for meetsync.
//
// This package provides the following commands:
//   - serve: Start the MCP server to provide scheduling tools for AI assistants
//   - slots, book, cancel, complete, no-show: Look up slots and manage meetings
//   - meetings, overdue, export-ics: Inspect booked meetings
//   - connect: Authorize delegated access to a participant's calendar
//   - participant: Add and list managers and owners
//   - generate-docs: Generate markdown documentation for all MCP tools
//   - version: Display version information
//
// Configuration comes from MEETSYNC_* and GOOGLE_* environment variables;
// the persistent flags of the root command override them.
package cmd
