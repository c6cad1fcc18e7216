// Package server provides the MCP server context and the HTTP plumbing around
// it for graphcal.
//
// # Key Components
//
// ServerContext holds the Graph service, the identity client used for silent
// token acquisition, the default user for tool calls and the instrumentation
// hooks. It also tracks unfinished interactive sign-ins so that the PKCE
// verifier created by BeginLogin is available to CompleteLogin.
//
// HTTPServer exposes the MCP server over the streamable HTTP transport on
// /mcp, with per-request metrics and Kubernetes health endpoints.
//
// MetricsServer serves the Prometheus /metrics endpoint on its own port.
package server
