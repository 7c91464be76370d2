package scheduling_tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/meetsync/internal/instrumentation"
	"github.com/teemow/meetsync/internal/meetings"
	"github.com/teemow/meetsync/internal/server"
	"github.com/teemow/meetsync/internal/tools/common"
)

func registerSlotTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) {
	listSlotsTool := mcp.NewTool("list_available_slots",
		mcp.WithDescription("List meeting slots that are free for the owners over the next days"),
		mcp.WithNumber("days",
			mcp.Description("Number of days to look ahead, starting tomorrow (default: configured days ahead, capped at the booking horizon)"),
		),
	)
	s.AddTool(listSlotsTool, common.InstrumentedToolHandler("list_available_slots", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListAvailableSlots(ctx, request, sc)
		}))

	if readOnly {
		return
	}

	bookTool := mcp.NewTool("book_meeting",
		mcp.WithDescription("Book a meeting for a manager at a free slot. Creates the event in the manager and owner calendars"),
		mcp.WithString("manager_id",
			mcp.Required(),
			mcp.Description("Participant ID of the manager the meeting is booked for"),
		),
		mcp.WithString("start",
			mcp.Required(),
			mcp.Description("Slot start (RFC 3339, or 'YYYY-MM-DD HH:MM' in the configured timezone)"),
		),
	)
	s.AddTool(bookTool, common.InstrumentedToolHandler("book_meeting", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleBookMeeting(ctx, request, sc)
		}))
}

func handleListAvailableSlots(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	days := common.IntArg(args, "days", 0)
	if days < 0 {
		return mcp.NewToolResultError("days must not be negative"), nil
	}

	manager := sc.Manager()
	res, err := manager.ListAvailableSlots(ctx, days)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list available slots: %v", err)), nil
	}

	common.Annotate(ctx, func(inv *instrumentation.ToolInvocation) {
		inv.WithOutcome(fmt.Sprintf("%d_slots", len(res.Slots)))
	})
	return mcp.NewToolResultText(meetings.FormatSlots(res, manager.Location())), nil
}

func handleBookMeeting(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	manager := sc.Manager()

	managerID, err := common.RequiredString(args, "manager_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	start, err := common.TimeArg(args, "start", manager.Location())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	booking, err := manager.BookMeeting(ctx, managerID, start)
	if err != nil {
		var be *meetings.BookingError
		if errors.As(err, &be) {
			common.Annotate(ctx, func(inv *instrumentation.ToolInvocation) {
				inv.WithOutcome(string(be.Kind))
			})
			return mcp.NewToolResultError(bookingRefusal(be)), nil
		}
		var unrecorded *meetings.UnrecordedMeetingError
		if errors.As(err, &unrecorded) {
			common.Annotate(ctx, func(inv *instrumentation.ToolInvocation) {
				inv.WithCalendar(auditCalendar(unrecorded.Meeting)).WithOutcome(instrumentation.BookingFailed)
			})
			return mcp.NewToolResultError(fmt.Sprintf(
				"The meeting was written to the calendars but could not be saved. Remove the events manually: %v", err)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Failed to book meeting: %v", err)), nil
	}

	outcome := instrumentation.BookingBoth
	if booking.Result.Partial() {
		outcome = instrumentation.BookingPartial
	}
	common.Annotate(ctx, func(inv *instrumentation.ToolInvocation) {
		inv.WithMeeting(booking.Meeting.ID).
			WithCalendar(auditCalendar(booking.Meeting)).
			WithOutcome(outcome)
	})

	return mcp.NewToolResultText(booking.Message(manager.Location())), nil
}

func bookingRefusal(be *meetings.BookingError) string {
	switch be.Kind {
	case meetings.NoSlotFree:
		return "The meeting was not booked: " + be.Reason
	case meetings.PartialCalendarFailure:
		return "The meeting was not booked because no calendar could be written: " + be.Reason
	}
	return be.Error()
}
