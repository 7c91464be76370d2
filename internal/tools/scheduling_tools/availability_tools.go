package scheduling_tools

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/meetsync/internal/model"
	"github.com/teemow/meetsync/internal/server"
	"github.com/teemow/meetsync/internal/store"
	"github.com/teemow/meetsync/internal/tools/common"
)

func registerAvailabilityTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) {
	listTool := mcp.NewTool("list_availability",
		mcp.WithDescription("List the weekly availability windows and upcoming blocked time of every owner"),
	)
	s.AddTool(listTool, common.InstrumentedToolHandler("list_availability", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListAvailability(ctx, request, sc)
		}))

	if readOnly {
		return
	}

	setWindowTool := mcp.NewTool("set_availability_window",
		mcp.WithDescription("Add a weekly availability window for an owner"),
		mcp.WithString("owner_id",
			mcp.Required(),
			mcp.Description("Participant ID of the owner"),
		),
		mcp.WithString("weekday",
			mcp.Required(),
			mcp.Description("Day of the week, e.g. 'monday' (or 0-6 with 0 = Sunday)"),
		),
		mcp.WithString("start",
			mcp.Required(),
			mcp.Description("Window start as HH:MM in the configured timezone"),
		),
		mcp.WithString("end",
			mcp.Required(),
			mcp.Description("Window end as HH:MM in the configured timezone"),
		),
	)
	s.AddTool(setWindowTool, common.InstrumentedToolHandler("set_availability_window", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSetAvailabilityWindow(ctx, request, sc)
		}))

	removeWindowTool := mcp.NewTool("remove_availability_window",
		mcp.WithDescription("Remove a weekly availability window"),
		mcp.WithString("window_id",
			mcp.Required(),
			mcp.Description("ID of the window, as shown by list_availability"),
		),
	)
	s.AddTool(removeWindowTool, common.InstrumentedToolHandler("remove_availability_window", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleRemove(ctx, request, "window_id", "Availability window", sc.Manager().RemoveAvailabilityWindow)
		}))

	addBlockedTool := mcp.NewTool("add_blocked_interval",
		mcp.WithDescription("Block time in an owner's availability, e.g. for a vacation or an offsite"),
		mcp.WithString("owner_id",
			mcp.Required(),
			mcp.Description("Participant ID of the owner"),
		),
		mcp.WithString("start",
			mcp.Required(),
			mcp.Description("Start of the blocked time (RFC 3339, or 'YYYY-MM-DD HH:MM' in the configured timezone)"),
		),
		mcp.WithString("end",
			mcp.Required(),
			mcp.Description("End of the blocked time (RFC 3339, or 'YYYY-MM-DD HH:MM' in the configured timezone)"),
		),
		mcp.WithString("reason",
			mcp.Description("Optional note shown in list_availability"),
		),
	)
	s.AddTool(addBlockedTool, common.InstrumentedToolHandler("add_blocked_interval", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleAddBlockedInterval(ctx, request, sc)
		}))

	removeBlockedTool := mcp.NewTool("remove_blocked_interval",
		mcp.WithDescription("Remove a blocked interval"),
		mcp.WithString("blocked_id",
			mcp.Required(),
			mcp.Description("ID of the blocked interval, as shown by list_availability"),
		),
	)
	s.AddTool(removeBlockedTool, common.InstrumentedToolHandler("remove_blocked_interval", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleRemove(ctx, request, "blocked_id", "Blocked interval", sc.Manager().RemoveBlockedInterval)
		}))
}

func handleListAvailability(ctx context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	manager := sc.Manager()
	owners, err := manager.ListAvailability(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list availability: %v", err)), nil
	}
	if len(owners) == 0 {
		return mcp.NewToolResultText("No owners are configured."), nil
	}

	loc := manager.Location()
	var sb strings.Builder
	for _, o := range owners {
		fmt.Fprintf(&sb, "%s (%s, %s)\n", o.Owner.Name, o.Owner.ID, o.Owner.Status)
		if len(o.Windows) == 0 {
			sb.WriteString("  no availability windows\n")
		}
		for _, w := range o.Windows {
			state := ""
			if !w.Active {
				state = " (inactive)"
			}
			fmt.Fprintf(&sb, "  %-9s %s-%s%s  id=%s\n", w.Weekday, w.Start, w.End, state, w.ID)
		}
		for _, b := range o.Blocked {
			fmt.Fprintf(&sb, "  blocked %s - %s", b.Start.In(loc).Format("2006-01-02 15:04"), b.End.In(loc).Format("2006-01-02 15:04"))
			if b.Reason != "" {
				fmt.Fprintf(&sb, " (%s)", b.Reason)
			}
			fmt.Fprintf(&sb, "  id=%s\n", b.ID)
		}
		sb.WriteString("\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func handleSetAvailabilityWindow(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	ownerID, err := common.RequiredString(args, "owner_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	weekdayArg, err := common.RequiredString(args, "weekday")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	weekday, err := ParseWeekday(weekdayArg)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	start, err := clockArg(args, "start")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	end, err := clockArg(args, "end")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	w, err := sc.Manager().SetAvailabilityWindow(ctx, ownerID, weekday, start, end)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return mcp.NewToolResultError(fmt.Sprintf("Window not added: %v", err)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Failed to add availability window: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Availability window added: %s %s-%s (id=%s)", w.Weekday, w.Start, w.End, w.ID)), nil
}

func handleAddBlockedInterval(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	manager := sc.Manager()

	ownerID, err := common.RequiredString(args, "owner_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	start, err := common.TimeArg(args, "start", manager.Location())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	end, err := common.TimeArg(args, "end", manager.Location())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	reason, _ := common.StringArg(args, "reason")

	b, err := manager.AddBlockedInterval(ctx, ownerID, start, end, reason)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to add blocked interval: %v", err)), nil
	}
	loc := manager.Location()
	return mcp.NewToolResultText(fmt.Sprintf("Blocked %s - %s for %s (id=%s)",
		b.Start.In(loc).Format("2006-01-02 15:04"), b.End.In(loc).Format("2006-01-02 15:04"), ownerID, b.ID)), nil
}

func handleRemove(ctx context.Context, request mcp.CallToolRequest, key, what string, remove func(context.Context, string) error) (*mcp.CallToolResult, error) {
	id, err := common.RequiredString(request.GetArguments(), key)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := remove(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("%s %s not found.", what, id)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Failed to remove %s: %v", strings.ToLower(what), err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s %s removed.", what, id)), nil
}

func clockArg(args map[string]interface{}, key string) (model.ClockTime, error) {
	s, err := common.RequiredString(args, key)
	if err != nil {
		return 0, err
	}
	c, err := model.ParseClock(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return c, nil
}

// ParseWeekday accepts English day names, their three-letter prefixes, or
// 0-6 with 0 = Sunday.
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 6 {
			return 0, fmt.Errorf("weekday %d out of range 0-6", n)
		}
		return time.Weekday(n), nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || (len(s) == 3 && strings.HasPrefix(name, s)) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}
