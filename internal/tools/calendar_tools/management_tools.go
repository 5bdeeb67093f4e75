package calendar_tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/calbridge/calbridge/internal/server"
	"github.com/calbridge/calbridge/internal/tools/common"
)

// RegisterCalendarManagementTools registers calendar discovery and
// scheduling tools with the MCP server.
func RegisterCalendarManagementTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	listCalendarsTool := mcp.NewTool("calendar_list_calendars",
		mcp.WithDescription("List all calendars visible to the account"),
	)

	s.AddTool(listCalendarsTool, common.InstrumentedToolHandler("calendar_list_calendars", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListCalendars(ctx, request, sc)
		}))

	freeBusyTool := mcp.NewTool("calendar_query_free_busy",
		mcp.WithDescription("Query busy intervals for one or more calendars within a time range"),
		mcp.WithString("calendarIds",
			mcp.Description("Comma-separated calendar IDs (default: 'primary')"),
		),
		mcp.WithString("timeMin",
			mcp.Required(),
			mcp.Description("Start of the range (RFC3339 format)"),
		),
		mcp.WithString("timeMax",
			mcp.Required(),
			mcp.Description("End of the range (RFC3339 format)"),
		),
	)

	s.AddTool(freeBusyTool, common.InstrumentedToolHandler("calendar_query_free_busy", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleQueryFreeBusy(ctx, request, sc)
		}))

	if readOnly {
		return nil
	}

	ensureCalendarTool := mcp.NewTool("calendar_ensure_calendar",
		mcp.WithDescription("Find a calendar by its title, creating it when missing, and return its ID"),
		mcp.WithString("summary",
			mcp.Required(),
			mcp.Description("The calendar title to look up or create"),
		),
	)

	s.AddTool(ensureCalendarTool, common.InstrumentedToolHandler("calendar_ensure_calendar", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleEnsureCalendar(ctx, request, sc)
		}))

	return nil
}

func handleListCalendars(ctx context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	calendars, err := sc.CalendarClient().ListCalendars(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list calendars: %v", err)), nil
	}

	result := fmt.Sprintf("Found %d calendars:\n\n", len(calendars))
	for i, cal := range calendars {
		result += fmt.Sprintf("%d. %s\n", i+1, cal.Summary)
		result += fmt.Sprintf("   ID: %s\n", cal.ID)
		result += fmt.Sprintf("   Access: %s\n", cal.AccessRole)
		if cal.Primary {
			result += "   Primary: yes\n"
		}
		if cal.TimeZone != "" {
			result += fmt.Sprintf("   Time zone: %s\n", cal.TimeZone)
		}
		result += "\n"
	}

	return mcp.NewToolResultText(result), nil
}

func handleQueryFreeBusy(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	if _, ok := common.StringArg(args, "timeMin"); !ok {
		return mcp.NewToolResultError("timeMin is required"), nil
	}
	timeMin, err := common.TimeArg(args, "timeMin")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid timeMin format: %v", err)), nil
	}

	if _, ok := common.StringArg(args, "timeMax"); !ok {
		return mcp.NewToolResultError("timeMax is required"), nil
	}
	timeMax, err := common.TimeArg(args, "timeMax")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid timeMax format: %v", err)), nil
	}

	calendarIDs := []string{"primary"}
	if ids, ok := common.StringArg(args, "calendarIds"); ok {
		calendarIDs = nil
		for _, id := range strings.Split(ids, ",") {
			calendarIDs = append(calendarIDs, strings.TrimSpace(id))
		}
	}

	infos, err := sc.CalendarClient().QueryFreeBusy(ctx, timeMin, timeMax, calendarIDs)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to query free/busy: %v", err)), nil
	}

	result := fmt.Sprintf("Free/busy between %s and %s:\n\n",
		timeMin.Format(time.RFC3339), timeMax.Format(time.RFC3339))
	for _, info := range infos {
		result += fmt.Sprintf("Calendar %s:\n", info.Calendar)
		if len(info.Errors) > 0 {
			for _, e := range info.Errors {
				result += fmt.Sprintf("  error: %s\n", e)
			}
			continue
		}
		if len(info.Busy) == 0 {
			result += "  free for the whole range\n"
			continue
		}
		for _, busy := range info.Busy {
			result += fmt.Sprintf("  busy %s - %s\n",
				busy.Start.Format(time.RFC3339), busy.End.Format(time.RFC3339))
		}
	}

	return mcp.NewToolResultText(result), nil
}

func handleEnsureCalendar(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	summary, ok := common.StringArg(args, "summary")
	if !ok {
		return mcp.NewToolResultError("summary is required"), nil
	}

	id, err := sc.CalendarClient().GetOrCreateCalendar(ctx, summary)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to ensure calendar: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Calendar %q has ID %s", summary, id)), nil
}
