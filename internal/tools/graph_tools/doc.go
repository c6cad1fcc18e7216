// Package graph_tools provides MCP tools for Microsoft Graph calendars.
//
// Sign-in tools:
//   - graph_get_auth_url: start an interactive sign-in for a user
//   - graph_save_auth_code: finish the sign-in with the authorization code
//
// Read tools:
//   - graph_get_profile: the user's profile
//   - graph_get_calendar_view: events overlapping a time range
//   - graph_get_teams_meetings: upcoming events that are online meetings
//
// Write tools, hidden in read-only mode:
//   - graph_create_event: create an event in the default calendar
//   - graph_create_subscription: subscribe to changes of the user's events
//
// Every tool accepts an optional "user" argument naming the signed-in user to
// act for; without it the server's default user is used.
package graph_tools
