package graph

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/teemow/graphcal/internal/identity"
)

const (
	testUserID = "adele@contoso.com"
	testToken  = "eyJ0eXAiOiJKV1QiLCJhbGciOi.test"
)

// recordedRequest is what the fake Graph server saw.
type recordedRequest struct {
	Method   string
	Path     string
	RawQuery string
	Query    url.Values
	Header   http.Header
	Body     map[string]interface{}
}

type fakeGraph struct {
	*httptest.Server

	mu       sync.Mutex
	requests []recordedRequest
}

// newFakeGraph serves status and body for every request and records them.
func newFakeGraph(t *testing.T, status int, body string) *fakeGraph {
	t.Helper()
	fg := &fakeGraph{}
	fg.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{
			Method:   r.Method,
			Path:     r.URL.Path,
			RawQuery: r.URL.RawQuery,
			Query:    r.URL.Query(),
			Header:   r.Header.Clone(),
		}

		var reader io.Reader = r.Body
		if r.Header.Get("Content-Encoding") == "gzip" {
			gz, err := gzip.NewReader(r.Body)
			if assert.NoError(t, err) {
				defer gz.Close()
				reader = gz
			}
		}
		data, err := io.ReadAll(reader)
		assert.NoError(t, err)
		if len(data) > 0 {
			assert.NoError(t, json.Unmarshal(data, &rec.Body))
		}

		fg.mu.Lock()
		fg.requests = append(fg.requests, rec)
		fg.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(fg.Close)
	return fg
}

func (fg *fakeGraph) Requests() []recordedRequest {
	fg.mu.Lock()
	defer fg.mu.Unlock()
	return append([]recordedRequest(nil), fg.requests...)
}

func (fg *fakeGraph) BaseURL() string {
	return fg.URL + "/v1.0"
}

// fakeIdentity is an identity.Client with a fixed set of cached accounts.
type fakeIdentity struct {
	mu           sync.Mutex
	accounts     map[string]bool
	token        string
	lookupErr    error
	acquireErr   error
	lookups      int
	acquisitions int
	lastRequest  identity.SilentRequest
}

func newFakeIdentity(users ...string) *fakeIdentity {
	accounts := make(map[string]bool, len(users))
	for _, u := range users {
		accounts[u] = true
	}
	return &fakeIdentity{accounts: accounts, token: testToken}
}

func (f *fakeIdentity) TokenCache() identity.TokenCache {
	return fakeCache{f}
}

func (f *fakeIdentity) AcquireTokenSilent(_ context.Context, req identity.SilentRequest) (*identity.AuthResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acquisitions++
	f.lastRequest = req
	if f.acquireErr != nil {
		return nil, f.acquireErr
	}
	return &identity.AuthResult{AccessToken: f.token, ExpiresOn: time.Now().Add(time.Hour), Account: req.Account}, nil
}

func (f *fakeIdentity) counts() (lookups, acquisitions int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookups, f.acquisitions
}

type fakeCache struct {
	f *fakeIdentity
}

func (c fakeCache) GetAccountByHomeID(_ context.Context, id string) (*identity.Account, error) {
	c.f.mu.Lock()
	defer c.f.mu.Unlock()
	c.f.lookups++
	if c.f.lookupErr != nil {
		return nil, c.f.lookupErr
	}
	if !c.f.accounts[id] {
		return nil, nil
	}
	return &identity.Account{HomeAccountID: id}, nil
}

type logEntry struct {
	level string
	msg   string
	args  []interface{}
}

// captureLogger records log calls for assertions.
type captureLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *captureLogger) add(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: args})
}

func (l *captureLogger) Debug(msg string, args ...interface{}) { l.add("debug", msg, args) }
func (l *captureLogger) Info(msg string, args ...interface{})  { l.add("info", msg, args) }
func (l *captureLogger) Warn(msg string, args ...interface{})  { l.add("warn", msg, args) }
func (l *captureLogger) Error(msg string, args ...interface{}) { l.add("error", msg, args) }

func (l *captureLogger) has(level, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.level == level && e.msg == msg {
			return true
		}
	}
	return false
}

type operationRecord struct {
	operation string
	status    string
}

type fakeRecorder struct {
	mu         sync.Mutex
	operations []operationRecord
	tokens     []string
}

func (r *fakeRecorder) RecordGraphOperation(_ context.Context, operation, status string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.operations = append(r.operations, operationRecord{operation, status})
}

func (r *fakeRecorder) RecordTokenAcquisition(_ context.Context, result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = append(r.tokens, result)
}

func newTestService(fg *fakeGraph, opts ...Option) *Service {
	return NewService(Config{
		BaseURL:        fg.BaseURL(),
		Scopes:         []string{"User.Read", "Calendars.ReadWrite"},
		RedirectURI:    "http://localhost:3000/auth/callback",
		RequestTimeout: 10 * time.Second,
	}, opts...)
}
