// Package common provides helpers shared by the MCP tool packages: user
// resolution from tool arguments, Graph model rendering, error-to-result
// mapping and the instrumentation wrapper every handler is registered with.
package common
