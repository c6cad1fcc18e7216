package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/graphcal/internal/graph"
	"github.com/teemow/graphcal/internal/instrumentation"
	"github.com/teemow/graphcal/internal/logging"
	"github.com/teemow/graphcal/internal/server"
	"github.com/teemow/graphcal/internal/tools/graph_tools"
)

// Transports accepted by --transport.
const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"
)

// ServeConfig holds the serve command settings.
type ServeConfig struct {
	Transport        string
	HTTPAddr         string
	ReadOnly         bool
	DisableStreaming bool
	NotificationURL  string
	TLSCertFile      string
	TLSKeyFile       string
	Metrics          MetricsConfig

	// RateLimit is the sustained tool calls per minute per user; 0 disables limiting.
	RateLimit int
	RateBurst int
}

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

func newServeCmd() *cobra.Command {
	var config ServeConfig

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server to provide Microsoft Graph
calendar tools for AI assistants.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport on /mcp, with /healthz and /readyz

Users:
  Tools act for the user named by their "user" argument, or for --user when
  the argument is omitted. Users sign in with "graphcal login" or through the
  graph_get_auth_url and graph_save_auth_code tools.

Read-only mode:
  --read-only hides graph_create_event and graph_create_subscription.

Rate limiting:
  Each user may make --rate-limit tool calls per minute with bursts of
  --rate-burst. Calls over the limit fail without reaching Graph.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			loadMetricsEnvVars(cmd, &config.Metrics)
			if err := loadRateLimitEnvVars(cmd, &config); err != nil {
				return err
			}
			return runServe(config)
		},
	}

	cmd.Flags().StringVar(&config.Transport, "transport", transportStdio, "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&config.HTTPAddr, "http-addr", ":8080", "HTTP server address (for streamable-http transport)")
	cmd.Flags().BoolVar(&config.ReadOnly, "read-only", false, "Register only tools that do not modify calendars")
	cmd.Flags().BoolVar(&config.DisableStreaming, "disable-streaming", false, "Disable SSE streaming for streamable-http transport")
	cmd.Flags().StringVar(&config.NotificationURL, "notification-url", "", "HTTPS endpoint receiving subscription notifications (env: GRAPH_NOTIFICATION_URL)")
	cmd.Flags().StringVar(&config.TLSCertFile, "tls-cert-file", "", "TLS certificate file for HTTPS")
	cmd.Flags().StringVar(&config.TLSKeyFile, "tls-key-file", "", "TLS private key file for HTTPS")
	cmd.Flags().BoolVar(&config.Metrics.Enabled, "metrics-enabled", true, "Serve Prometheus metrics on a separate port (streamable-http only; env: METRICS_ENABLED)")
	cmd.Flags().StringVar(&config.Metrics.Addr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address (env: METRICS_ADDR)")
	cmd.Flags().IntVar(&config.RateLimit, "rate-limit", server.DefaultToolCallsPerMinute, "Tool calls per minute per user, 0 to disable (env: MCP_RATE_LIMIT)")
	cmd.Flags().IntVar(&config.RateBurst, "rate-burst", server.DefaultToolCallBurst, "Tool calls a user may make at once (env: MCP_RATE_BURST)")

	return cmd
}

// loadMetricsEnvVars applies METRICS_ENABLED and METRICS_ADDR unless the
// matching flag was set explicitly.
func loadMetricsEnvVars(cmd *cobra.Command, config *MetricsConfig) {
	if !cmd.Flags().Changed("metrics-enabled") {
		switch os.Getenv("METRICS_ENABLED") {
		case "true":
			config.Enabled = true
		case "false":
			config.Enabled = false
		}
	}
	if !cmd.Flags().Changed("metrics-addr") {
		if addr := os.Getenv("METRICS_ADDR"); addr != "" {
			config.Addr = addr
		}
	}
}

// loadRateLimitEnvVars applies MCP_RATE_LIMIT and MCP_RATE_BURST unless the
// matching flag was set explicitly.
func loadRateLimitEnvVars(cmd *cobra.Command, config *ServeConfig) error {
	for _, v := range []struct {
		flag string
		env  string
		dst  *int
	}{
		{"rate-limit", "MCP_RATE_LIMIT", &config.RateLimit},
		{"rate-burst", "MCP_RATE_BURST", &config.RateBurst},
	} {
		raw := os.Getenv(v.env)
		if raw == "" || cmd.Flags().Changed(v.flag) {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid %s %q: must be a non-negative integer", v.env, raw)
		}
		*v.dst = n
	}
	return nil
}

func runServe(config ServeConfig) error {
	if config.Transport != transportStdio && config.Transport != transportStreamableHTTP {
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", config.Transport)
	}

	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			slog.Warn("error during instrumentation shutdown", "error", err)
		}
	}()

	// Start metrics server if enabled and not in stdio mode
	var metricsServer *server.MetricsServer
	if config.Transport != transportStdio && config.Metrics.Enabled && provider.Enabled() {
		metricsServer, err = startMetricsServer(config.Metrics, provider)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				slog.Warn("error during metrics server shutdown", "error", err)
			}
		}()
	}

	var recorder graph.Recorder
	if provider.Enabled() {
		recorder = provider.Metrics()
	}
	env, err := newEnvironment(environmentOptions{
		NotificationURL: config.NotificationURL,
		Recorder:        recorder,
	})
	if err != nil {
		return err
	}
	defer env.close()

	serverContext, err := server.NewServerContext(shutdownCtx, env.graph, env.identity, resolveUser())
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			slog.Warn("error during server context shutdown", "error", err)
		}
	}()

	serverContext.SetRateLimiter(server.NewToolRateLimiter(config.RateLimit, config.RateBurst))

	// Set metrics and audit logger on server context for tool instrumentation
	if provider.Enabled() {
		serverContext.SetMetrics(provider.Metrics())
		serverContext.SetAuditLogger(instrumentation.NewAuditLogger(logging.WithService(slog.Default(), "audit"), instrConfig.AuditLogging))
	}

	mcpSrv := mcpserver.NewMCPServer("graphcal", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRecovery(),
	)

	if err := registerAllTools(mcpSrv, serverContext, config.ReadOnly); err != nil {
		return err
	}

	slog.Info("starting graphcal MCP server",
		"transport", config.Transport,
		"read_only", config.ReadOnly,
		"rate_limit_per_minute", config.RateLimit,
		"default_user_configured", serverContext.DefaultUser() != "",
		"graph_url", env.graph.Config().BaseURL)

	switch config.Transport {
	case transportStdio:
		return runStdioServer(mcpSrv)
	default:
		return runStreamableHTTPServer(shutdownCtx, mcpSrv, serverContext, config, provider)
	}
}

func startMetricsServer(config MetricsConfig, provider *instrumentation.Provider) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    config.Addr,
		InstrumentationProvider: provider,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	// Use ready channel to confirm metrics server started successfully
	metricsReady := make(chan struct{})
	metricsErr := make(chan error, 1)
	go func() {
		if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && err != http.ErrServerClosed {
			metricsErr <- err
		}
		close(metricsErr)
	}()

	select {
	case <-metricsReady:
		slog.Info("metrics server started", "addr", metricsServer.Addr())
		return metricsServer, nil
	case err := <-metricsErr:
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	case <-time.After(5 * time.Second):
		return nil, fmt.Errorf("metrics server startup timed out")
	}
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

// registerAllTools registers all MCP tools
func registerAllTools(mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	type toolRegistration struct {
		name     string
		register func() error
	}

	registrations := []toolRegistration{
		{
			name: "Graph",
			register: func() error {
				return graph_tools.RegisterGraphTools(mcpSrv, sc, readOnly)
			},
		},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s tools: %w", reg.name, err)
		}
	}

	return nil
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, config ServeConfig, provider *instrumentation.Provider) error {
	healthChecker := server.NewHealthChecker(sc, version)

	httpConfig := server.HTTPServerConfig{
		DisableStreaming: config.DisableStreaming,
		HealthChecker:    healthChecker,
		TLSCertFile:      config.TLSCertFile,
		TLSKeyFile:       config.TLSKeyFile,
	}
	if provider.Enabled() {
		httpConfig.Metrics = provider.Metrics()
	}

	httpServer, err := server.NewHTTPServer(mcpSrv, httpConfig)
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	scheme := "http"
	if config.TLSCertFile != "" {
		scheme = "https"
	}

	ready := make(chan struct{})
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.StartWithReadySignal(config.HTTPAddr, ready); err != nil && err != http.ErrServerClosed {
			serverDone <- err
		}
	}()

	select {
	case <-ready:
	case err := <-serverDone:
		return fmt.Errorf("HTTP server failed to start: %w", err)
	case <-ctx.Done():
		return httpServer.Shutdown(context.Background())
	}

	slog.Info("streamable HTTP server listening",
		"addr", httpServer.Addr(),
		"scheme", scheme,
		"endpoint", server.MCPEndpoint,
		"streaming", !config.DisableStreaming)
	healthChecker.SetReady(true)

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received, stopping HTTP server")
		healthChecker.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
		slog.Info("HTTP server stopped normally")
	}

	slog.Info("HTTP server gracefully stopped")
	return nil
}
