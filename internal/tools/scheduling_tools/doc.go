// Package scheduling_tools exposes the meeting lifecycle as MCP tools.
//
// Read tools (always registered):
//   - list_available_slots, list_availability, list_meetings
//   - get_recent_meeting, list_overdue_managers, export_ics
//
// Write tools (skipped in read-only mode):
//   - book_meeting, cancel_meeting, complete_meeting, mark_no_show
//   - set_availability_window, remove_availability_window
//   - add_blocked_interval, remove_blocked_interval
//
// Times are accepted as RFC 3339 or as "YYYY-MM-DD HH:MM" in the configured
// timezone, and are rendered in that timezone.
package scheduling_tools
