package server

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/teemow/graphcal/internal/logging"
)

// ErrToolRateLimited is returned when a user exceeds the tool call rate.
var ErrToolRateLimited = errors.New("tool call rate limit exceeded")

const (
	// DefaultToolCallsPerMinute is the sustained per-user tool call rate.
	DefaultToolCallsPerMinute = 60

	// DefaultToolCallBurst is the number of calls a user may make at once.
	DefaultToolCallBurst = 10

	maxRateLimitedUsers = 1000
	rateLimiterTTL      = 10 * time.Minute
)

// ToolRateLimiter is a token bucket per user. Buckets of users that stop
// calling expire, so the number of tracked users stays bounded.
type ToolRateLimiter struct {
	mu       sync.Mutex
	limiters *expirable.LRU[string, *rate.Limiter]
	limit    rate.Limit
	burst    int
}

// NewToolRateLimiter allows callsPerMinute sustained calls per user and bursts
// of up to burst calls. It returns nil, which allows every call, when
// callsPerMinute is not positive. A non-positive burst allows one call.
func NewToolRateLimiter(callsPerMinute, burst int) *ToolRateLimiter {
	if callsPerMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}

	return &ToolRateLimiter{
		limiters: expirable.NewLRU[string, *rate.Limiter](maxRateLimitedUsers, nil, rateLimiterTTL),
		limit:    rate.Limit(float64(callsPerMinute) / 60.0),
		burst:    burst,
	}
}

// Allow takes one call from user's bucket. It is safe on a nil receiver.
func (l *ToolRateLimiter) Allow(user string) error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	limiter, ok := l.limiters.Get(user)
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters.Add(user, limiter)
	}
	l.mu.Unlock()

	if !limiter.Allow() {
		return fmt.Errorf("%w for user %s", ErrToolRateLimited, logging.AnonymizeUser(user))
	}
	return nil
}
