package graph_tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/graphcal/internal/server"
	"github.com/teemow/graphcal/internal/tools/common"
)

func registerAuthTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	getAuthURLTool := mcp.NewTool("graph_get_auth_url",
		mcp.WithDescription("Get the Microsoft sign-in URL that authorizes calendar access for a user"),
		mcp.WithString("user",
			mcp.Description(userArgDescription),
		),
	)

	s.AddTool(getAuthURLTool, common.InstrumentedToolHandler("graph_get_auth_url", "", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetAuthURL(ctx, request, sc)
		}))

	saveAuthCodeTool := mcp.NewTool("graph_save_auth_code",
		mcp.WithDescription("Complete a Microsoft sign-in started with graph_get_auth_url by saving the authorization code"),
		mcp.WithString("user",
			mcp.Description(userArgDescription),
		),
		mcp.WithString("authCode",
			mcp.Required(),
			mcp.Description("The code parameter from the sign-in redirect URL, or the whole redirect URL"),
		),
	)

	s.AddTool(saveAuthCodeTool, common.InstrumentedToolHandler("graph_save_auth_code", "", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSaveAuthCode(ctx, request, sc)
		}))
}

func handleGetAuthURL(_ context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	user := common.UserFromArgs(request.GetArguments(), sc)
	if user == "" {
		return mcp.NewToolResultError(`No user specified. Pass the "user" argument or start the server with --user.`), nil
	}

	authURL, err := sc.BeginLogin(user)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to start sign-in for %s: %v", user, err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf(`To authorize calendar access for user "%s":

1. Visit this URL in your browser:
   %s

2. Sign in with the Microsoft account and grant access
3. Copy the URL you are redirected to, or just its "code" parameter

4. Call the graph_save_auth_code tool with it and user "%s" to complete sign-in`, user, authURL, user)), nil
}

func handleSaveAuthCode(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	user := common.UserFromArgs(args, sc)
	if user == "" {
		return mcp.NewToolResultError(`No user specified. Pass the "user" argument or start the server with --user.`), nil
	}

	authCode := common.StringArg(args, "authCode")
	if authCode == "" {
		return mcp.NewToolResultError("authCode is required"), nil
	}

	if err := sc.CompleteLogin(ctx, user, authCode); err != nil {
		if errors.Is(err, server.ErrNoPendingLogin) {
			return mcp.NewToolResultError(fmt.Sprintf("No sign-in in progress for %s. Call graph_get_auth_url first.", user)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Failed to save authorization code for %s: %v", user, err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Sign-in successful for %s. The calendar tools can now act for this user.", user)), nil
}
