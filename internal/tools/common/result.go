package common

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/microsoft/kiota-abstractions-go/serialization"

	"github.com/teemow/graphcal/internal/graph"
)

// JSONResult renders a Graph model as indented JSON text content.
func JSONResult(p serialization.Parsable) (*mcp.CallToolResult, error) {
	data, err := graph.MarshalJSON(p)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode Graph response: %v", err)), nil
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		return mcp.NewToolResultText(string(data)), nil
	}
	return mcp.NewToolResultText(pretty.String()), nil
}

// ErrorResult turns an error from the Graph adapter into a tool error whose
// text tells the agent how to recover.
func ErrorResult(action, user string, err error) *mcp.CallToolResult {
	var stateErr *graph.InvalidStateError
	var authErr *graph.AuthFailure

	switch {
	case errors.As(err, &stateErr) && !stateErr.UserPresent:
		return mcp.NewToolResultError(`No user specified. Pass the "user" argument or start the server with --user.`)

	case errors.As(err, &authErr), errors.Is(err, graph.ErrUnauthorised):
		return mcp.NewToolResultError(fmt.Sprintf(`Failed to %s: user %q is not signed in or the session has expired.

To sign in:
1. Call graph_get_auth_url with user=%q and open the URL in a browser
2. Sign in with the Microsoft account and grant access
3. Copy the "code" parameter from the redirect URL
4. Call graph_save_auth_code with user=%q and the code`, action, user, user, user))

	case errors.Is(err, graph.ErrNotificationURLRequired):
		return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: no notification URL is configured. Set GRAPH_NOTIFICATION_URL or --notification-url.", action))

	case errors.Is(err, graph.ErrInvalidArgument):
		return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err))

	default:
		return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: %v", action, err))
	}
}
