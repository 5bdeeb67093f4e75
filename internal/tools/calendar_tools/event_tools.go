package calendar_tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/calbridge/calbridge/internal/calendar"
	"github.com/calbridge/calbridge/internal/server"
	"github.com/calbridge/calbridge/internal/tools/common"
)

// RegisterEventTools registers event-related tools with the MCP server.
func RegisterEventTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	listEventsTool := mcp.NewTool("calendar_list_events",
		mcp.WithDescription("List calendar events within a time range"),
		mcp.WithString("calendarId",
			mcp.Description("Calendar ID (use 'primary' for the primary calendar)"),
		),
		mcp.WithString("timeMin",
			mcp.Required(),
			mcp.Description("Start of the range (RFC3339 format, e.g. '2026-08-01T00:00:00Z')"),
		),
		mcp.WithString("timeMax",
			mcp.Required(),
			mcp.Description("End of the range (RFC3339 format, e.g. '2026-08-31T23:59:59Z')"),
		),
	)

	s.AddTool(listEventsTool, common.InstrumentedToolHandler("calendar_list_events", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListEvents(ctx, request, sc)
		}))

	getEventTool := mcp.NewTool("calendar_get_event",
		mcp.WithDescription("Get details of a specific calendar event"),
		mcp.WithString("calendarId",
			mcp.Description("Calendar ID (use 'primary' for the primary calendar)"),
		),
		mcp.WithString("eventId",
			mcp.Required(),
			mcp.Description("The ID of the event to retrieve"),
		),
	)

	s.AddTool(getEventTool, common.InstrumentedToolHandler("calendar_get_event", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetEvent(ctx, request, sc)
		}))

	if readOnly {
		return nil
	}

	createEventTool := mcp.NewTool("calendar_create_event",
		mcp.WithDescription("Create a new calendar event (supports all-day and recurring events)"),
		mcp.WithString("calendarId",
			mcp.Description("Calendar ID (use 'primary' for the primary calendar)"),
		),
		mcp.WithString("summary",
			mcp.Required(),
			mcp.Description("Event title"),
		),
		mcp.WithString("description",
			mcp.Description("Event description"),
		),
		mcp.WithString("location",
			mcp.Description("Event location"),
		),
		mcp.WithString("start",
			mcp.Required(),
			mcp.Description("Start time (RFC3339 format, e.g. '2026-08-25T14:00:00Z')"),
		),
		mcp.WithString("end",
			mcp.Required(),
			mcp.Description("End time (RFC3339 format, e.g. '2026-08-25T15:00:00Z')"),
		),
		mcp.WithString("timeZone",
			mcp.Description("Time zone (e.g. 'Europe/Berlin'). Defaults to UTC."),
		),
		mcp.WithString("attendees",
			mcp.Description("Comma-separated list of attendee email addresses"),
		),
		mcp.WithString("recurrence",
			mcp.Description("Recurrence rule (e.g. 'RRULE:FREQ=WEEKLY;BYDAY=MO')"),
		),
		mcp.WithBoolean("allDay",
			mcp.Description("Create as an all-day event (only the date portion of start/end is used)"),
		),
	)

	s.AddTool(createEventTool, common.InstrumentedToolHandler("calendar_create_event", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCreateEvent(ctx, request, sc)
		}))

	updateEventTool := mcp.NewTool("calendar_update_event",
		mcp.WithDescription("Update an existing calendar event; omitted fields are left unchanged"),
		mcp.WithString("calendarId",
			mcp.Description("Calendar ID (use 'primary' for the primary calendar)"),
		),
		mcp.WithString("eventId",
			mcp.Required(),
			mcp.Description("The ID of the event to update"),
		),
		mcp.WithString("summary",
			mcp.Description("New event title"),
		),
		mcp.WithString("description",
			mcp.Description("New event description"),
		),
		mcp.WithString("location",
			mcp.Description("New event location"),
		),
		mcp.WithString("start",
			mcp.Description("New start time (RFC3339 format)"),
		),
		mcp.WithString("end",
			mcp.Description("New end time (RFC3339 format)"),
		),
		mcp.WithString("timeZone",
			mcp.Description("Time zone (e.g. 'Europe/Berlin')"),
		),
		mcp.WithString("attendees",
			mcp.Description("New comma-separated list of attendee email addresses"),
		),
		mcp.WithBoolean("allDay",
			mcp.Description("Convert to an all-day event"),
		),
	)

	s.AddTool(updateEventTool, common.InstrumentedToolHandler("calendar_update_event", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleUpdateEvent(ctx, request, sc)
		}))

	deleteEventTool := mcp.NewTool("calendar_delete_event",
		mcp.WithDescription("Delete a calendar event"),
		mcp.WithString("calendarId",
			mcp.Description("Calendar ID (use 'primary' for the primary calendar)"),
		),
		mcp.WithString("eventId",
			mcp.Required(),
			mcp.Description("The ID of the event to delete"),
		),
	)

	s.AddTool(deleteEventTool, common.InstrumentedToolHandler("calendar_delete_event", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleDeleteEvent(ctx, request, sc)
		}))

	return nil
}

func handleListEvents(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	calendarID := common.StringArgOrDefault(args, "calendarId", "primary")

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

	events, err := sc.CalendarClient().ListEvents(ctx, calendarID, timeMin, timeMax)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list events: %v", err)), nil
	}

	result := fmt.Sprintf("Found %d events:\n\n", len(events))
	for i, event := range events {
		result += fmt.Sprintf("%d. %s\n", i+1, event.Summary)
		result += fmt.Sprintf("   ID: %s\n", event.ID)
		result += fmt.Sprintf("   Start: %s\n", formatEventTime(event.Start, event.AllDay))
		result += fmt.Sprintf("   End: %s\n", formatEventTime(event.End, event.AllDay))
		if event.Location != "" {
			result += fmt.Sprintf("   Location: %s\n", event.Location)
		}
		if len(event.Attendees) > 0 {
			result += fmt.Sprintf("   Attendees: %d\n", len(event.Attendees))
		}
		result += "\n"
	}

	return mcp.NewToolResultText(result), nil
}

func handleGetEvent(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	calendarID := common.StringArgOrDefault(args, "calendarId", "primary")

	eventID, ok := common.StringArg(args, "eventId")
	if !ok {
		return mcp.NewToolResultError("eventId is required"), nil
	}

	event, err := sc.CalendarClient().GetEvent(ctx, calendarID, eventID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get event: %v", err)), nil
	}
	if event == nil {
		return mcp.NewToolResultText(fmt.Sprintf("Event %s not found", eventID)), nil
	}

	result := fmt.Sprintf("Event: %s\n", event.Summary)
	result += fmt.Sprintf("ID: %s\n", event.ID)
	result += fmt.Sprintf("Start: %s\n", formatEventTime(event.Start, event.AllDay))
	result += fmt.Sprintf("End: %s\n", formatEventTime(event.End, event.AllDay))
	result += fmt.Sprintf("Status: %s\n", event.Status)
	if event.Description != "" {
		result += fmt.Sprintf("Description: %s\n", event.Description)
	}
	if event.Location != "" {
		result += fmt.Sprintf("Location: %s\n", event.Location)
	}
	if event.Creator != "" {
		result += fmt.Sprintf("Creator: %s\n", event.Creator)
	}
	if event.Organizer != "" {
		result += fmt.Sprintf("Organizer: %s\n", event.Organizer)
	}
	if event.HTMLLink != "" {
		result += fmt.Sprintf("Link: %s\n", event.HTMLLink)
	}

	if len(event.Attendees) > 0 {
		result += fmt.Sprintf("\nAttendees (%d):\n", len(event.Attendees))
		for _, att := range event.Attendees {
			result += fmt.Sprintf("  - %s (%s)", att.Email, att.ResponseStatus)
			if att.DisplayName != "" {
				result += fmt.Sprintf(" - %s", att.DisplayName)
			}
			if att.Optional {
				result += " [optional]"
			}
			result += "\n"
		}
	}

	return mcp.NewToolResultText(result), nil
}

func handleCreateEvent(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	calendarID := common.StringArgOrDefault(args, "calendarId", "primary")

	summary, ok := common.StringArg(args, "summary")
	if !ok {
		return mcp.NewToolResultError("summary is required"), nil
	}

	if _, ok := common.StringArg(args, "start"); !ok {
		return mcp.NewToolResultError("start is required"), nil
	}
	start, err := common.TimeArg(args, "start")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid start format: %v", err)), nil
	}

	if _, ok := common.StringArg(args, "end"); !ok {
		return mcp.NewToolResultError("end is required"), nil
	}
	end, err := common.TimeArg(args, "end")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid end format: %v", err)), nil
	}

	input := calendar.EventInput{
		Summary:     summary,
		Description: common.StringArgOrDefault(args, "description", ""),
		Location:    common.StringArgOrDefault(args, "location", ""),
		Start:       start,
		End:         end,
		TimeZone:    common.StringArgOrDefault(args, "timeZone", ""),
		AllDay:      common.BoolArg(args, "allDay"),
	}

	if attendees, ok := common.StringArg(args, "attendees"); ok {
		input.Attendees = splitEmails(attendees)
	}
	if recurrence, ok := common.StringArg(args, "recurrence"); ok {
		input.Recurrence = []string{recurrence}
	}

	event, err := sc.CalendarClient().CreateEvent(ctx, calendarID, input)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to create event: %v", err)), nil
	}

	result := fmt.Sprintf("Successfully created event: %s\n", event.Summary)
	result += fmt.Sprintf("ID: %s\n", event.ID)
	result += fmt.Sprintf("Start: %s\n", formatEventTime(event.Start, event.AllDay))
	result += fmt.Sprintf("End: %s\n", formatEventTime(event.End, event.AllDay))
	if event.HTMLLink != "" {
		result += fmt.Sprintf("Link: %s\n", event.HTMLLink)
	}

	return mcp.NewToolResultText(result), nil
}

func handleUpdateEvent(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	calendarID := common.StringArgOrDefault(args, "calendarId", "primary")

	eventID, ok := common.StringArg(args, "eventId")
	if !ok {
		return mcp.NewToolResultError("eventId is required"), nil
	}

	input := calendar.EventInput{
		Summary:     common.StringArgOrDefault(args, "summary", ""),
		Description: common.StringArgOrDefault(args, "description", ""),
		Location:    common.StringArgOrDefault(args, "location", ""),
		TimeZone:    common.StringArgOrDefault(args, "timeZone", ""),
		AllDay:      common.BoolArg(args, "allDay"),
	}

	start, err := common.TimeArg(args, "start")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid start format: %v", err)), nil
	}
	input.Start = start

	end, err := common.TimeArg(args, "end")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid end format: %v", err)), nil
	}
	input.End = end

	if attendees, ok := common.StringArg(args, "attendees"); ok {
		input.Attendees = splitEmails(attendees)
	}

	event, err := sc.CalendarClient().UpdateEvent(ctx, calendarID, eventID, input)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to update event: %v", err)), nil
	}

	result := fmt.Sprintf("Successfully updated event: %s\n", event.Summary)
	result += fmt.Sprintf("ID: %s\n", event.ID)
	result += fmt.Sprintf("Start: %s\n", formatEventTime(event.Start, event.AllDay))
	result += fmt.Sprintf("End: %s\n", formatEventTime(event.End, event.AllDay))

	return mcp.NewToolResultText(result), nil
}

func handleDeleteEvent(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	calendarID := common.StringArgOrDefault(args, "calendarId", "primary")

	eventID, ok := common.StringArg(args, "eventId")
	if !ok {
		return mcp.NewToolResultError("eventId is required"), nil
	}

	if err := sc.CalendarClient().DeleteEvent(ctx, calendarID, eventID); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to delete event: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Successfully deleted event %s", eventID)), nil
}

func formatEventTime(t time.Time, allDay bool) string {
	if allDay {
		return t.Format("2006-01-02")
	}
	return t.Format(time.RFC3339)
}

func splitEmails(s string) []string {
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
