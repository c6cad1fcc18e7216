package common

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/graphcal/internal/instrumentation"
	"github.com/teemow/graphcal/internal/logging"
	"github.com/teemow/graphcal/internal/server"
)

// ToolHandler is the signature of an MCP tool handler.
type ToolHandler = mcpserver.ToolHandlerFunc

// InstrumentedToolHandler wraps a tool handler with a span, metrics and
// audit logging. operation names the Graph operation the tool performs and
// may be empty for tools that do not call Graph. Calls over the server's
// per-user rate limit are rejected without running the handler.
//
// Usage:
//
//	s.AddTool(tool, common.InstrumentedToolHandler("graph_get_profile", graph.OpProfile, sc, handler))
func InstrumentedToolHandler(toolName, operation string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		user := UserFromArgs(request.GetArguments(), sc)
		userHash := logging.AnonymizeUser(user)

		ctx, span := instrumentation.StartToolSpan(ctx, toolName,
			attribute.String(instrumentation.SpanAttrUserHash, userHash))
		defer span.End()
		if operation != "" {
			span.SetAttributes(attribute.String(instrumentation.SpanAttrOperation, operation))
		}

		invocation := instrumentation.NewToolInvocation(toolName).
			WithUser(user).
			WithOperation(operation).
			WithSpanContext(ctx)

		start := time.Now()
		var result *mcp.CallToolResult
		var err error
		if limitErr := allowToolCall(sc, user); limitErr != nil {
			logging.WithTool(slog.Default(), toolName).Warn("tool call rate limited", logging.UserHash(user))
			result = mcp.NewToolResultError("Rate limit exceeded: too many tool calls for this user. Wait a minute and retry.")
		} else {
			result, err = handler(ctx, request)
		}
		duration := time.Since(start)

		switch {
		case err != nil:
			invocation.Complete(false, err)
			instrumentation.SetSpanError(span, err)
		case result != nil && result.IsError:
			toolErr := fmt.Errorf("%s", resultText(result))
			invocation.Complete(false, toolErr)
			instrumentation.SetSpanError(span, toolErr)
		default:
			invocation.Complete(true, nil)
			instrumentation.SetSpanSuccess(span)
		}

		if sc != nil {
			sc.Metrics().RecordToolInvocation(ctx, toolName, invocation.Status(), userHash, duration)
			sc.AuditLogger().LogToolInvocation(invocation)
		}

		return result, err
	}
}

func allowToolCall(sc *server.ServerContext, user string) error {
	if sc == nil {
		return nil
	}
	return sc.AllowToolCall(user)
}

// resultText returns the first text content of a result.
func resultText(result *mcp.CallToolResult) string {
	for _, content := range result.Content {
		if text, ok := mcp.AsTextContent(content); ok {
			return text.Text
		}
	}
	return "tool returned an error"
}
