// Package instrumentation provides OpenTelemetry metrics, tracing and audit
// logging for graphcal.
//
// # Metrics
//
//   - http_requests_total, http_request_duration_seconds: MCP HTTP transport
//   - graph_api_operations_total, graph_api_operation_duration_seconds: Graph operations by operation and status
//   - token_acquisitions_total: silent token acquisitions by result (success, failure, no_account)
//   - mcp_tool_invocations_total, mcp_tool_duration_seconds: MCP tools by tool and status
//
// # Tracing
//
// Spans are named graph.<operation> for outbound Graph calls and
// mcp.tool.<name> for tool invocations.
//
// # Configuration
//
//   - INSTRUMENTATION_ENABLED (default: true)
//   - METRICS_EXPORTER: prometheus, otlp, stdout, none (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout, none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_INSECURE
//   - OTEL_TRACES_SAMPLER_ARG (default: 0.1)
//   - OTEL_SERVICE_NAME (default: graphcal)
//   - AUDIT_LOGGING_ENABLED, AUDIT_LOGGING_INCLUDE_PII
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	metrics := provider.Metrics()
//	metrics.RecordGraphOperation(ctx, "calendar_view", instrumentation.StatusSuccess, time.Since(start))
package instrumentation
