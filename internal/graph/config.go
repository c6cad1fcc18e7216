package graph

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/teemow/graphcal/internal/identity"
)

// Defaults applied by DefaultConfig and to zero fields of a Config.
const (
	DefaultBaseURL         = "https://graph.microsoft.com/v1.0"
	DefaultRedirectURI     = "http://localhost:3000/auth/callback"
	DefaultPageSize        = 50
	DefaultRequestTimeout  = 30 * time.Second
	DefaultTokenTimeout    = 15 * time.Second
	DefaultSubscriptionTTL = time.Hour

	maxPageSize = 1000
)

// Config controls how the Graph adapter authenticates and shapes requests.
type Config struct {
	// Scopes requested for each silent token acquisition
	// (default: https://graph.microsoft.com/.default).
	Scopes []string

	// RedirectURI sent with silent token requests.
	RedirectURI string

	// BaseURL of the Graph endpoint (default: https://graph.microsoft.com/v1.0).
	BaseURL string

	// PageSize caps list results ($top) for calendar view and Teams meetings.
	PageSize int32

	// RequestTimeout bounds a whole operation including token acquisition.
	RequestTimeout time.Duration

	// TokenTimeout bounds the cache lookup and silent acquisition of one request.
	TokenTimeout time.Duration

	// NotificationURL receives change notifications for new subscriptions.
	NotificationURL string

	// SubscriptionTTL is how far in the future new subscriptions expire.
	SubscriptionTTL time.Duration

	// ClientState is echoed by Graph in every notification. A random value is
	// generated per subscription when empty.
	ClientState string
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() Config {
	return Config{}.withDefaults()
}

// ConfigFromEnv reads a Config from the environment:
// OAUTH_SCOPES, OAUTH_REDIRECT_URI, GRAPH_BASE_URL, GRAPH_PAGE_SIZE,
// GRAPH_REQUEST_TIMEOUT, GRAPH_TOKEN_TIMEOUT, GRAPH_NOTIFICATION_URL,
// GRAPH_SUBSCRIPTION_TTL and GRAPH_CLIENT_STATE.
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		Scopes:          identity.ParseScopes(os.Getenv("OAUTH_SCOPES")),
		RedirectURI:     os.Getenv("OAUTH_REDIRECT_URI"),
		BaseURL:         os.Getenv("GRAPH_BASE_URL"),
		NotificationURL: os.Getenv("GRAPH_NOTIFICATION_URL"),
		ClientState:     os.Getenv("GRAPH_CLIENT_STATE"),
	}

	if v := os.Getenv("GRAPH_PAGE_SIZE"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return Config{}, fmt.Errorf("invalid GRAPH_PAGE_SIZE %q: %w", v, err)
		}
		cfg.PageSize = int32(n)
	}

	for _, d := range []struct {
		env string
		dst *time.Duration
	}{
		{"GRAPH_REQUEST_TIMEOUT", &cfg.RequestTimeout},
		{"GRAPH_TOKEN_TIMEOUT", &cfg.TokenTimeout},
		{"GRAPH_SUBSCRIPTION_TTL", &cfg.SubscriptionTTL},
	} {
		v := os.Getenv(d.env)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s %q: %w", d.env, v, err)
		}
		*d.dst = parsed
	}

	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports configuration values Graph would reject.
func (c Config) Validate() error {
	if c.PageSize < 0 || c.PageSize > maxPageSize {
		return fmt.Errorf("page size must be between 1 and %d, got %d", maxPageSize, c.PageSize)
	}
	if c.RequestTimeout < 0 || c.TokenTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	if c.SubscriptionTTL < 0 {
		return fmt.Errorf("subscription TTL must not be negative")
	}
	return nil
}

func (c Config) withDefaults() Config {
	if len(c.Scopes) == 0 {
		c.Scopes = []string{identity.DefaultScope}
	}
	if c.RedirectURI == "" {
		c.RedirectURI = DefaultRedirectURI
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.PageSize == 0 {
		c.PageSize = DefaultPageSize
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.TokenTimeout == 0 {
		c.TokenTimeout = DefaultTokenTimeout
	}
	if c.SubscriptionTTL == 0 {
		c.SubscriptionTTL = DefaultSubscriptionTTL
	}
	return c
}
