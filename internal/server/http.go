package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/graphcal/internal/instrumentation"
)

// MCPEndpoint is the path of the streamable HTTP MCP endpoint.
const MCPEndpoint = "/mcp"

// HTTPServerConfig configures the streamable HTTP transport.
type HTTPServerConfig struct {
	// DisableStreaming turns off SSE upgrades for clients that cannot handle them.
	DisableStreaming bool

	// HealthChecker registers /healthz, /readyz and /healthz/detailed when set.
	HealthChecker *HealthChecker

	// Metrics records per-request HTTP metrics when set.
	Metrics *instrumentation.Metrics

	TLSCertFile string
	TLSKeyFile  string
}

// HTTPServer serves an MCP server over streamable HTTP
type HTTPServer struct {
	mcpServer  *mcpserver.MCPServer
	config     HTTPServerConfig
	httpServer *http.Server
	addr       string
}

// NewHTTPServer creates an HTTP server for mcpServer
func NewHTTPServer(mcpServer *mcpserver.MCPServer, config HTTPServerConfig) (*HTTPServer, error) {
	if mcpServer == nil {
		return nil, fmt.Errorf("mcp server is required")
	}
	if (config.TLSCertFile == "") != (config.TLSKeyFile == "") {
		return nil, fmt.Errorf("both TLS certificate and key files must be provided")
	}

	s := &HTTPServer{mcpServer: mcpServer, config: config}
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// Handler builds the HTTP routes: the MCP endpoint and, when configured,
// health endpoints.
func (s *HTTPServer) Handler() http.Handler {
	opts := []mcpserver.StreamableHTTPOption{mcpserver.WithEndpointPath(MCPEndpoint)}
	if s.config.DisableStreaming {
		opts = append(opts, mcpserver.WithDisableStreaming(true))
	}
	streamable := mcpserver.NewStreamableHTTPServer(s.mcpServer, opts...)

	mux := http.NewServeMux()
	mux.Handle(MCPEndpoint, instrumentHTTP(s.config.Metrics, streamable))
	if s.config.HealthChecker != nil {
		s.config.HealthChecker.RegisterHealthEndpoints(mux)
	}
	return mux
}

// Start listens on addr and serves until Shutdown
func (s *HTTPServer) Start(addr string) error {
	return s.StartWithReadySignal(addr, nil)
}

// StartWithReadySignal binds addr, closes ready once the listener accepts
// connections, then serves until Shutdown. The bound address is available
// from Addr after ready is closed.
func (s *HTTPServer) StartWithReadySignal(addr string, ready chan<- struct{}) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.addr = ln.Addr().String()

	if ready != nil {
		close(ready)
	}
	if s.config.TLSCertFile != "" {
		return s.httpServer.ServeTLS(ln, s.config.TLSCertFile, s.config.TLSKeyFile)
	}
	return s.httpServer.Serve(ln)
}

// Addr returns the bound listen address once the server has started.
func (s *HTTPServer) Addr() string {
	return s.addr
}

// Shutdown gracefully shuts down the server. A server shut down before it
// starts refuses to serve.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE streaming working through the wrapper.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// instrumentHTTP records request count and duration per method, path and status.
func instrumentHTTP(metrics *instrumentation.Metrics, next http.Handler) http.Handler {
	if metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		metrics.RecordHTTPRequest(r.Context(), r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}
