// Package cmd implements the command-line interface for graphcal.
//
// This package provides the following commands:
//   - login: Sign a user in with the authorization code flow and store the token
//   - profile: Print the signed-in user's profile
//   - calendar: Print the events of a time range
//   - create-event: Create an event in the default calendar
//   - subscribe: Subscribe a notification URL to event changes
//   - teams-meetings: Print upcoming events that are Teams meetings
//   - serve: Start the MCP server to provide tools for AI assistants
//   - generate-docs: Generate markdown documentation for all MCP tools
//   - version: Display version information
//
// Configuration is read from the environment, optionally seeded from a .env
// file, and overridden by flags.
package cmd
