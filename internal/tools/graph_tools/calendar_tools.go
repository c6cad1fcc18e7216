package graph_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/graphcal/internal/graph"
	"github.com/teemow/graphcal/internal/server"
	"github.com/teemow/graphcal/internal/tools/common"
)

// defaultEventTimeZone applies when graph_create_event gets no timeZone.
const defaultEventTimeZone = "UTC"

func registerReadTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	profileTool := mcp.NewTool("graph_get_profile",
		mcp.WithDescription("Get the signed-in user's profile: display name, mail, mailbox settings and user principal name"),
		mcp.WithString("user",
			mcp.Description(userArgDescription),
		),
	)

	s.AddTool(profileTool, common.InstrumentedToolHandler("graph_get_profile", graph.OpProfile, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetProfile(ctx, request, sc)
		}))

	calendarViewTool := mcp.NewTool("graph_get_calendar_view",
		mcp.WithDescription("List calendar events overlapping a time range, ordered by start time"),
		mcp.WithString("user",
			mcp.Description(userArgDescription),
		),
		mcp.WithString("start",
			mcp.Required(),
			mcp.Description("Start of the range (ISO 8601, e.g. '2024-01-01T00:00:00Z')"),
		),
		mcp.WithString("end",
			mcp.Required(),
			mcp.Description("End of the range (ISO 8601, e.g. '2024-01-07T23:59:59Z')"),
		),
		mcp.WithString("timeZone",
			mcp.Description("Windows or IANA time zone for returned times (e.g. 'Pacific Standard Time'). Defaults to UTC."),
		),
	)

	s.AddTool(calendarViewTool, common.InstrumentedToolHandler("graph_get_calendar_view", graph.OpCalendarView, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetCalendarView(ctx, request, sc)
		}))

	teamsMeetingsTool := mcp.NewTool("graph_get_teams_meetings",
		mcp.WithDescription("List the user's events that are online (Teams) meetings, ordered by start time"),
		mcp.WithString("user",
			mcp.Description(userArgDescription),
		),
	)

	s.AddTool(teamsMeetingsTool, common.InstrumentedToolHandler("graph_get_teams_meetings", graph.OpTeamsMeetings, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetTeamsMeetings(ctx, request, sc)
		}))
}

func registerWriteTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	createEventTool := mcp.NewTool("graph_create_event",
		mcp.WithDescription("Create an event in the user's default calendar"),
		mcp.WithString("user",
			mcp.Description(userArgDescription),
		),
		mcp.WithString("subject",
			mcp.Required(),
			mcp.Description("Event subject"),
		),
		mcp.WithString("start",
			mcp.Required(),
			mcp.Description("Local start date-time in timeZone (e.g. '2024-03-01T09:00')"),
		),
		mcp.WithString("end",
			mcp.Required(),
			mcp.Description("Local end date-time in timeZone (e.g. '2024-03-01T10:00')"),
		),
		mcp.WithString("timeZone",
			mcp.Description("Time zone of start and end (e.g. 'Eastern Standard Time'). Defaults to UTC."),
		),
		mcp.WithString("body",
			mcp.Description("Plain text event body"),
		),
		mcp.WithString("attendees",
			mcp.Description("Attendee email addresses separated by ';' or ',', or a JSON array of addresses. Each is added as a required attendee."),
		),
	)

	s.AddTool(createEventTool, common.InstrumentedToolHandler("graph_create_event", graph.OpCreateEvent, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCreateEvent(ctx, request, sc)
		}))

	createSubscriptionTool := mcp.NewTool("graph_create_subscription",
		mcp.WithDescription("Subscribe the configured notification URL to created, updated and deleted events of the user"),
		mcp.WithString("user",
			mcp.Description(userArgDescription),
		),
	)

	s.AddTool(createSubscriptionTool, common.InstrumentedToolHandler("graph_create_subscription", graph.OpCreateSubscription, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCreateSubscription(ctx, request, sc)
		}))
}

func handleGetProfile(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	user := common.UserFromArgs(request.GetArguments(), sc)

	profile, err := sc.Graph().GetUserDetails(ctx, sc.Identity(), user)
	if err != nil {
		return common.ErrorResult("get profile", user, err), nil
	}
	return common.JSONResult(profile)
}

func handleGetCalendarView(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	user := common.UserFromArgs(args, sc)

	start := common.StringArg(args, "start")
	end := common.StringArg(args, "end")
	if start == "" || end == "" {
		return mcp.NewToolResultError("start and end are required"), nil
	}

	events, err := sc.Graph().GetCalendarView(ctx, sc.Identity(), user, start, end, common.StringArg(args, "timeZone"))
	if err != nil {
		return common.ErrorResult("get calendar view", user, err), nil
	}
	return common.JSONResult(events)
}

func handleGetTeamsMeetings(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	user := common.UserFromArgs(request.GetArguments(), sc)

	meetings, err := sc.Graph().GetTeamsMeetings(ctx, sc.Identity(), user)
	if err != nil {
		return common.ErrorResult("get Teams meetings", user, err), nil
	}
	return common.JSONResult(meetings)
}

func handleCreateEvent(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	user := common.UserFromArgs(args, sc)

	attendees, err := common.StringListArg(args, "attendees")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	form := graph.EventForm{
		Subject:   common.StringArg(args, "subject"),
		Start:     common.StringArg(args, "start"),
		End:       common.StringArg(args, "end"),
		Body:      common.StringArg(args, "body"),
		Attendees: attendees,
	}
	timeZone := common.StringArg(args, "timeZone")
	if timeZone == "" {
		timeZone = defaultEventTimeZone
	}

	event, err := sc.Graph().CreateEvent(ctx, sc.Identity(), user, form, timeZone)
	if err != nil {
		return common.ErrorResult("create event", user, err), nil
	}
	return common.JSONResult(event)
}

func handleCreateSubscription(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	user := common.UserFromArgs(request.GetArguments(), sc)

	subscription, err := sc.Graph().CreateSubscription(ctx, sc.Identity(), user)
	if err != nil {
		return common.ErrorResult("create subscription", user, err), nil
	}
	return common.JSONResult(subscription)
}
