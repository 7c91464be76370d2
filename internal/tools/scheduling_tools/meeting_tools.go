package scheduling_tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/meetsync/internal/instrumentation"
	"github.com/teemow/meetsync/internal/meetings"
	"github.com/teemow/meetsync/internal/model"
	"github.com/teemow/meetsync/internal/server"
	"github.com/teemow/meetsync/internal/store"
	"github.com/teemow/meetsync/internal/tools/common"
)

func registerMeetingTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) {
	listMeetingsTool := mcp.NewTool("list_meetings",
		mcp.WithDescription("List booked meetings, optionally for one manager or status"),
		mcp.WithString("manager_id",
			mcp.Description("Only meetings of this manager"),
		),
		mcp.WithString("status",
			mcp.Description("Only meetings in this status: scheduled, completed, cancelled or no_show"),
		),
	)
	s.AddTool(listMeetingsTool, common.InstrumentedToolHandler("list_meetings", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListMeetings(ctx, request, sc)
		}))

	recentTool := mcp.NewTool("get_recent_meeting",
		mcp.WithDescription("Show the manager's most recent scheduled meeting within the recent window"),
		mcp.WithString("manager_id",
			mcp.Required(),
			mcp.Description("Participant ID of the manager"),
		),
	)
	s.AddTool(recentTool, common.InstrumentedToolHandler("get_recent_meeting", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetRecentMeeting(ctx, request, sc)
		}))

	overdueTool := mcp.NewTool("list_overdue_managers",
		mcp.WithDescription("List active managers who have not had a meeting for longer than the overdue period"),
	)
	s.AddTool(overdueTool, common.InstrumentedToolHandler("list_overdue_managers", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListOverdueManagers(ctx, request, sc)
		}))

	exportTool := mcp.NewTool("export_ics",
		mcp.WithDescription("Export a booked meeting as an iCalendar (.ics) document"),
		mcp.WithString("meeting_id",
			mcp.Required(),
			mcp.Description("ID of the meeting"),
		),
	)
	s.AddTool(exportTool, common.InstrumentedToolHandler("export_ics", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleExportICS(ctx, request, sc)
		}))

	if readOnly {
		return
	}

	cancelTool := mcp.NewTool("cancel_meeting",
		mcp.WithDescription("Cancel a scheduled meeting and remove its calendar events"),
		mcp.WithString("meeting_id",
			mcp.Required(),
			mcp.Description("ID of the meeting to cancel"),
		),
	)
	s.AddTool(cancelTool, common.InstrumentedToolHandler("cancel_meeting", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCancelMeeting(ctx, request, sc)
		}))

	completeTool := mcp.NewTool("complete_meeting",
		mcp.WithDescription("Mark a scheduled meeting as held"),
		mcp.WithString("meeting_id",
			mcp.Required(),
			mcp.Description("ID of the meeting"),
		),
	)
	s.AddTool(completeTool, common.InstrumentedToolHandler("complete_meeting", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleTransition(ctx, request, sc.Manager().MarkCompleted)
		}))

	noShowTool := mcp.NewTool("mark_no_show",
		mcp.WithDescription("Mark a scheduled meeting as missed by the manager"),
		mcp.WithString("meeting_id",
			mcp.Required(),
			mcp.Description("ID of the meeting"),
		),
	)
	s.AddTool(noShowTool, common.InstrumentedToolHandler("mark_no_show", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleTransition(ctx, request, sc.Manager().MarkNoShow)
		}))
}

func handleListMeetings(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	filter := store.MeetingFilter{}
	filter.ManagerID, _ = common.StringArg(args, "manager_id")
	if s, ok := common.StringArg(args, "status"); ok {
		status, err := model.ParseStatus(s)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		filter.Status = status
	}

	manager := sc.Manager()
	list, err := manager.ListMeetings(ctx, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list meetings: %v", err)), nil
	}
	if len(list) == 0 {
		return mcp.NewToolResultText("No meetings found."), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d meeting(s):\n\n", len(list))
	for _, m := range list {
		sb.WriteString(meetings.FormatMeeting(m, manager.Location()))
		sb.WriteString("\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func handleGetRecentMeeting(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	managerID, err := common.RequiredString(request.GetArguments(), "manager_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	manager := sc.Manager()
	recent, err := manager.RecentMeeting(ctx, managerID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to look up recent meeting: %v", err)), nil
	}
	if recent == nil {
		return mcp.NewToolResultText(fmt.Sprintf("Manager %s has no recent scheduled meeting.", managerID)), nil
	}

	common.Annotate(ctx, func(inv *instrumentation.ToolInvocation) {
		inv.WithMeeting(recent.ID)
	})
	return mcp.NewToolResultText("Most recent meeting:\n" + meetings.FormatMeeting(*recent, manager.Location())), nil
}

func handleListOverdueManagers(ctx context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	manager := sc.Manager()
	overdue, err := manager.OverdueManagers(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list overdue managers: %v", err)), nil
	}
	if len(overdue) == 0 {
		return mcp.NewToolResultText("No managers are overdue."), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d manager(s) overdue:\n\n", len(overdue))
	for _, o := range overdue {
		last := "never met"
		if o.Last != nil {
			last = "last meeting " + o.Last.Start.In(manager.Location()).Format(time.DateOnly)
		}
		fmt.Fprintf(&sb, "%s (%s, %s): %s\n", o.Manager.Name, o.Manager.ID, o.Manager.Department, last)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func handleExportICS(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	meetingID, err := common.RequiredString(request.GetArguments(), "meeting_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sb strings.Builder
	if err := sc.Manager().ExportICS(ctx, meetingID, &sb); err != nil {
		return mcp.NewToolResultError(meetingError("export meeting", meetingID, err)), nil
	}
	common.Annotate(ctx, func(inv *instrumentation.ToolInvocation) {
		inv.WithMeeting(meetingID)
	})
	return mcp.NewToolResultText(sb.String()), nil
}

func handleCancelMeeting(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	meetingID, err := common.RequiredString(request.GetArguments(), "meeting_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := sc.Manager().CancelMeeting(ctx, meetingID)
	if err != nil {
		return mcp.NewToolResultError(meetingError("cancel meeting", meetingID, err)), nil
	}

	cleanup := instrumentation.CleanupComplete
	if res.RemoteCleanupIncomplete {
		cleanup = instrumentation.CleanupIncomplete
	}
	common.Annotate(ctx, func(inv *instrumentation.ToolInvocation) {
		inv.WithMeeting(meetingID).
			WithCalendar(auditCalendar(res.Meeting)).
			WithOutcome(cleanup)
	})
	return mcp.NewToolResultText(res.Message()), nil
}

// auditCalendar names the calendar a meeting lives on for the audit record:
// the manager side when it holds an event, else the owner side.
func auditCalendar(m model.Meeting) string {
	if m.ManagerEventID != "" {
		return m.ManagerCalendarID
	}
	return m.OwnerCalendarID
}

func handleTransition(ctx context.Context, request mcp.CallToolRequest, fn func(context.Context, string) (model.Meeting, error)) (*mcp.CallToolResult, error) {
	meetingID, err := common.RequiredString(request.GetArguments(), "meeting_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	m, err := fn(ctx, meetingID)
	if err != nil {
		return mcp.NewToolResultError(meetingError("update meeting", meetingID, err)), nil
	}
	common.Annotate(ctx, func(inv *instrumentation.ToolInvocation) {
		inv.WithMeeting(m.ID).WithOutcome(string(m.Status))
	})
	return mcp.NewToolResultText(fmt.Sprintf("Meeting %s is now %s.", m.ID, m.Status)), nil
}

// meetingError turns lifecycle errors into user-facing text.
func meetingError(action, meetingID string, err error) string {
	switch {
	case errors.Is(err, meetings.ErrMeetingNotFound):
		return fmt.Sprintf("Meeting %s not found.", meetingID)
	case errors.Is(err, meetings.ErrInvalidTransition):
		return fmt.Sprintf("Meeting %s is not scheduled any more.", meetingID)
	}
	return fmt.Sprintf("Failed to %s %s: %v", action, meetingID, err)
}
