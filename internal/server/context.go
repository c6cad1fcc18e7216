package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/teemow/graphcal/internal/graph"
	"github.com/teemow/graphcal/internal/identity"
	"github.com/teemow/graphcal/internal/instrumentation"
)

// ErrNoPendingLogin is returned by CompleteLogin when BeginLogin was not
// called for the user first.
var ErrNoPendingLogin = errors.New("no sign-in in progress for user")

// ErrLoginUnsupported is returned when the identity client cannot run the
// interactive authorization code flow.
var ErrLoginUnsupported = errors.New("identity client does not support interactive sign-in")

// Unfinished sign-ins are forgotten after pendingLoginTTL.
const (
	pendingLoginTTL  = 10 * time.Minute
	maxPendingLogins = 1000
)

// pendingLogin is the PKCE verifier and state sent with a consent URL.
type pendingLogin struct {
	verifier string
	state    string
}

// ServerContext holds the shared dependencies of the MCP server
type ServerContext struct {
	ctx         context.Context
	cancel      context.CancelFunc
	graph       *graph.Service
	identity    identity.Client
	defaultUser string

	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger
	rateLimiter *ToolRateLimiter

	// pendingLogins maps user ID to an unfinished sign-in
	pendingLogins *expirable.LRU[string, pendingLogin]

	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a new server context. defaultUser is used by tools
// that are called without an explicit user.
func NewServerContext(ctx context.Context, svc *graph.Service, idc identity.Client, defaultUser string) (*ServerContext, error) {
	if svc == nil {
		return nil, fmt.Errorf("graph service is required")
	}
	if idc == nil {
		return nil, fmt.Errorf("identity client is required")
	}

	shutdownCtx, cancel := context.WithCancel(ctx)

	return &ServerContext{
		ctx:           shutdownCtx,
		cancel:        cancel,
		graph:         svc,
		identity:      idc,
		defaultUser:   defaultUser,
		pendingLogins: expirable.NewLRU[string, pendingLogin](maxPendingLogins, nil, pendingLoginTTL),
	}, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Graph returns the Graph service
func (sc *ServerContext) Graph() *graph.Service {
	return sc.graph
}

// Identity returns the identity client used for silent token acquisition
func (sc *ServerContext) Identity() identity.Client {
	return sc.identity
}

// DefaultUser returns the user ID used when a tool call names none
func (sc *ServerContext) DefaultUser() string {
	return sc.defaultUser
}

// UserOrDefault returns user, or the default user when user is empty
func (sc *ServerContext) UserOrDefault(user string) string {
	if user != "" {
		return user
	}
	return sc.defaultUser
}

// SetMetrics sets the metrics used for tool instrumentation
func (sc *ServerContext) SetMetrics(m *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = m
}

// Metrics returns the tool metrics, or nil when instrumentation is disabled
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// SetAuditLogger sets the audit logger for tool invocations
func (sc *ServerContext) SetAuditLogger(al *instrumentation.AuditLogger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.auditLogger = al
}

// AuditLogger returns the audit logger, or nil when audit logging is disabled
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.auditLogger
}

// SetRateLimiter limits tool calls per user. A nil limiter allows every call.
func (sc *ServerContext) SetRateLimiter(l *ToolRateLimiter) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.rateLimiter = l
}

// AllowToolCall reports whether user may call a tool now. It returns an error
// matching ErrToolRateLimited when the user's budget is used up.
func (sc *ServerContext) AllowToolCall(user string) error {
	sc.mu.RLock()
	l := sc.rateLimiter
	sc.mu.RUnlock()
	return l.Allow(user)
}

// BeginLogin starts an interactive sign-in for user and returns the consent
// URL. A previous unfinished sign-in for the same user is replaced.
func (sc *ServerContext) BeginLogin(user string) (string, error) {
	authorizer, ok := sc.identity.(identity.Authorizer)
	if !ok {
		return "", ErrLoginUnsupported
	}
	if user == "" {
		return "", fmt.Errorf("user is required")
	}

	verifier := identity.NewVerifier()
	state := identity.NewVerifier()

	sc.mu.Lock()
	sc.pendingLogins.Add(user, pendingLogin{verifier: verifier, state: state})
	sc.mu.Unlock()

	return authorizer.AuthCodeURL(state, verifier), nil
}

// CompleteLogin redeems the sign-in started by BeginLogin and stores the
// resulting token under user. input is the authorization code or the redirect
// URL carrying it; a redirect URL must echo the state of the consent URL. A
// rejected input leaves the sign-in pending.
func (sc *ServerContext) CompleteLogin(ctx context.Context, user, input string) error {
	authorizer, ok := sc.identity.(identity.Authorizer)
	if !ok {
		return ErrLoginUnsupported
	}

	sc.mu.Lock()
	pending, ok := sc.pendingLogins.Get(user)
	if !ok {
		sc.mu.Unlock()
		return ErrNoPendingLogin
	}
	code, err := identity.ExtractCode(input, pending.state)
	if err != nil {
		sc.mu.Unlock()
		return err
	}
	sc.pendingLogins.Remove(user)
	sc.mu.Unlock()

	return authorizer.ExchangeCode(ctx, user, code, pending.verifier)
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
