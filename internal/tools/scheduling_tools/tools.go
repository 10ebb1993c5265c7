package scheduling_tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/meetslot/internal/availability"
	"github.com/teemow/meetslot/internal/server"
	"github.com/teemow/meetslot/internal/tools/common"
)

// Tool names.
const (
	ToolFindMeetingSlots = "find_meeting_slots"
	ToolQueryFreeBusy    = "query_freebusy"
	ToolBookMeetingSlot  = "book_meeting_slot"
)

// RegisterSchedulingTools registers the scheduling tools with the MCP server.
// book_meeting_slot is only registered when sc allows booking.
func RegisterSchedulingTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	findTool := mcp.NewTool(ToolFindMeetingSlots,
		mcp.WithDescription("Find the best common free meeting slots for a set of participants on a date. "+
			"Slots respect working hours and the lunch break and are ranked by time-of-day preference. "+
			"If partialFailures is not empty, the slots may conflict with those participants' calendars."),
		mcp.WithString("participants",
			mcp.Required(),
			mcp.Description("Comma-separated list of participant email addresses"),
		),
		mcp.WithString("date",
			mcp.Required(),
			mcp.Description("Day to search (YYYY-MM-DD)"),
		),
		mcp.WithNumber("durationMinutes",
			mcp.Description("Meeting duration in minutes. Defaults to the user's preferred duration when a user is given, otherwise to the configured default (30)."),
		),
		mcp.WithNumber("maxResults",
			mcp.Description(fmt.Sprintf("Maximum number of slots to return (1-%d, default from configuration)", availability.MaxTopN)),
		),
		mcp.WithString("timezone",
			mcp.Description("IANA timezone of the working hours, e.g. 'Europe/Istanbul'. Defaults to the user's or the configured timezone."),
		),
		mcp.WithString("user",
			mcp.Description("Email of the requesting user, used to look up preferences"),
		),
	)
	s.AddTool(findTool, common.InstrumentedToolHandler(ToolFindMeetingSlots, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleFindMeetingSlots(ctx, request, sc)
		}))

	queryTool := mcp.NewTool(ToolQueryFreeBusy,
		mcp.WithDescription("Return each participant's busy intervals within the working window of a date, "+
			"together with whether the data could be read. Unknown status must not be read as free."),
		mcp.WithString("participants",
			mcp.Required(),
			mcp.Description("Comma-separated list of participant email addresses"),
		),
		mcp.WithString("date",
			mcp.Required(),
			mcp.Description("Day to query (YYYY-MM-DD)"),
		),
		mcp.WithString("timezone",
			mcp.Description("IANA timezone of the working hours. Defaults to the configured timezone."),
		),
		mcp.WithString("user",
			mcp.Description("Email of the requesting user, used to look up the preferred timezone"),
		),
	)
	s.AddTool(queryTool, common.InstrumentedToolHandler(ToolQueryFreeBusy, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleQueryFreeBusy(ctx, request, sc)
		}))

	if sc.CanBook() {
		bookTool := mcp.NewTool(ToolBookMeetingSlot,
			mcp.WithDescription("Create a calendar event for a chosen slot and invite the participants. "+
				"Booking the same participants and times again returns the existing event."),
			mcp.WithString("participants",
				mcp.Required(),
				mcp.Description("Comma-separated list of participant email addresses"),
			),
			mcp.WithString("start",
				mcp.Required(),
				mcp.Description("Slot start (RFC3339, as returned by find_meeting_slots)"),
			),
			mcp.WithString("end",
				mcp.Required(),
				mcp.Description("Slot end (RFC3339)"),
			),
			mcp.WithString("summary",
				mcp.Required(),
				mcp.Description("Event title"),
			),
			mcp.WithString("description",
				mcp.Description("Event description"),
			),
			mcp.WithString("timezone",
				mcp.Description("IANA timezone for the event"),
			),
		)
		s.AddTool(bookTool, common.InstrumentedWriteToolHandler(ToolBookMeetingSlot, sc,
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return handleBookMeetingSlot(ctx, request, sc)
			}))
	}

	return nil
}

// requestBase parses the arguments shared by the read tools.
func requestBase(args map[string]interface{}, sc *server.ServerContext) (availability.SchedulingRequest, error) {
	participants, err := common.ParticipantsFromArgs(args)
	if err != nil {
		return availability.SchedulingRequest{}, err
	}
	dateStr, err := common.RequiredStringArg(args, "date")
	if err != nil {
		return availability.SchedulingRequest{}, err
	}
	date, err := availability.ParseDate(dateStr)
	if err != nil {
		return availability.SchedulingRequest{}, fmt.Errorf("invalid date: %w", err)
	}

	req := availability.SchedulingRequest{Participants: participants, Date: date}
	if tz := common.StringArg(args, "timezone"); tz != "" {
		loc, err := availability.LoadLocation(tz)
		if err != nil {
			return availability.SchedulingRequest{}, err
		}
		policy := sc.Engine().Policy().WithLocation(loc)
		req.Policy = &policy
	}
	sc.Preferences().Apply(&req, common.StringArg(args, "user"), sc.Engine().Policy())
	return req, nil
}

func location(req availability.SchedulingRequest, sc *server.ServerContext) *time.Location {
	if req.Policy != nil {
		return req.Policy.Location
	}
	return sc.Engine().Policy().Location
}

func handleFindMeetingSlots(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	req, err := requestBase(args, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	duration, _, err := common.IntArg(args, "durationMinutes")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	maxResults, _, err := common.IntArg(args, "maxResults")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	req.DurationMinutes = duration
	req.MaxResults = maxResults

	result, err := sc.Engine().FindSlots(ctx, req)
	if err != nil {
		if errors.Is(err, availability.ErrInvalidRequest) {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid scheduling request: %v", err)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Failed to find meeting slots: %v", err)), nil
	}

	outcome := availability.OutcomeOK
	switch {
	case result.Empty:
		outcome = availability.OutcomeEmpty
	case !result.ConflictFree():
		outcome = availability.OutcomePartial
	}
	if inv := common.InvocationFromContext(ctx); inv != nil {
		inv.WithResult(result.RequestID, outcome, len(result.PartialFailures))
	}

	return jsonResult(NewSlotsResponse(result, req.Date, location(req, sc)))
}

func handleQueryFreeBusy(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	req, err := requestBase(request.GetArguments(), sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	busy, window, err := sc.Engine().QueryBusy(ctx, req.Participants, req.Date, req.Policy)
	if err != nil {
		if errors.Is(err, availability.ErrInvalidRequest) {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid request: %v", err)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Failed to query free/busy: %v", err)), nil
	}

	return jsonResult(NewFreeBusyResponse(busy, window, req.Date, location(req, sc)))
}

func handleBookMeetingSlot(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	booker := sc.Booker()
	if booker == nil || !sc.CanBook() {
		return mcp.NewToolResultError("booking is not enabled on this server"), nil
	}

	args := request.GetArguments()
	participants, err := common.ParticipantsFromArgs(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	start, err := timeArg(args, "start")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	end, err := timeArg(args, "end")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	summary, err := common.RequiredStringArg(args, "summary")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	booking, err := booker.Book(ctx, calendarRequest(participants, start, end, summary, args))
	if err != nil {
		if errors.Is(err, availability.ErrInvalidRequest) {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid booking request: %v", err)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Failed to book meeting: %v", err)), nil
	}

	outcome := "created"
	if booking.Existing {
		outcome = "existing"
	}
	if inv := common.InvocationFromContext(ctx); inv != nil {
		inv.WithResult(booking.Event.ID, outcome, 0)
	}

	return jsonResult(BookingResponse{
		EventID:  booking.Event.ID,
		Summary:  booking.Event.Summary,
		Start:    booking.Event.Start.Format(time.RFC3339),
		End:      booking.Event.End.Format(time.RFC3339),
		HTMLLink: booking.Event.HTMLLink,
		Existing: booking.Existing,
	})
}

func timeArg(args map[string]interface{}, name string) (time.Time, error) {
	s, err := common.RequiredStringArg(args, name)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s format: %w", name, err)
	}
	return t, nil
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
