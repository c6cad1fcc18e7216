// Package logging provides structured logging utilities for graphcal.
//
// All packages log through slog, either directly or through the Logger
// interface which lets callers choose the sink.
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithTool(slog.Default(), "graph_get_calendar_view")
//	logger.Warn("tool call rate limited",
//	    logging.UserHash(userID))
//
// Never log raw user identifiers or tokens:
//
//	logger.Error("token acquisition failed",
//	    logging.UserHash(userID),
//	    logging.Err(err))
package logging
