package graph_tools

import (
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/graphcal/internal/server"
)

const userArgDescription = "User ID (home account ID, usually the sign-in address). Defaults to the server's default user."

// RegisterGraphTools registers all Microsoft Graph tools with the MCP server.
// Write tools are skipped when readOnly is set.
func RegisterGraphTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	registerAuthTools(s, sc)
	registerReadTools(s, sc)
	if !readOnly {
		registerWriteTools(s, sc)
	}
	return nil
}
