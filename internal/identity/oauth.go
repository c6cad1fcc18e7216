package identity

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"

	"github.com/teemow/graphcal/internal/logging"
)

// DefaultScope requests every Graph permission statically consented for the app.
const DefaultScope = "https://graph.microsoft.com/.default"

// offlineAccessScope makes the identity platform issue a refresh token.
const offlineAccessScope = "offline_access"

// ParseScopes splits a comma separated scope list, dropping blanks.
// An empty list yields DefaultScope.
func ParseScopes(raw string) []string {
	var scopes []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			scopes = append(scopes, s)
		}
	}
	if len(scopes) == 0 {
		return []string{DefaultScope}
	}
	return scopes
}

// OAuthConfig describes the app registration used to sign users in.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string

	// Tenant is the directory tenant (default: common).
	Tenant string

	// Authority overrides Tenant with a full authority URL such as
	// https://login.microsoftonline.com/contoso.onmicrosoft.com.
	Authority string

	RedirectURI string
	Scopes      []string
}

func (c OAuthConfig) endpoint() oauth2.Endpoint {
	if c.Authority != "" {
		authority := strings.TrimRight(c.Authority, "/")
		return oauth2.Endpoint{
			AuthURL:  authority + "/oauth2/v2.0/authorize",
			TokenURL: authority + "/oauth2/v2.0/token",
		}
	}
	tenant := c.Tenant
	if tenant == "" {
		tenant = "common"
	}
	return microsoft.AzureADEndpoint(tenant)
}

var (
	_ Client     = (*OAuthClient)(nil)
	_ Authorizer = (*OAuthClient)(nil)
)

// OAuthClient implements Client with the authorization code flow and
// refresh tokens held in a TokenStore.
type OAuthClient struct {
	config *oauth2.Config
	store  TokenStore
	logger logging.Logger
}

// NewOAuthClient creates an OAuthClient. A nil logger discards log output.
func NewOAuthClient(cfg OAuthConfig, store TokenStore, logger logging.Logger) (*OAuthClient, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("oauth client ID is required")
	}
	if store == nil {
		return nil, fmt.Errorf("token store is required")
	}
	if logger == nil {
		logger = logging.Discard()
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{DefaultScope}
	}

	return &OAuthClient{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     cfg.endpoint(),
			RedirectURL:  cfg.RedirectURI,
			Scopes:       scopes,
		},
		store:  store,
		logger: logger,
	}, nil
}

// TokenCache returns a cache view over the client's token store.
func (c *OAuthClient) TokenCache() TokenCache {
	return storeCache{store: c.store}
}

// AcquireTokenSilent returns a valid access token for req.Account, refreshing
// and re-storing it when the cached one has expired.
func (c *OAuthClient) AcquireTokenSilent(ctx context.Context, req SilentRequest) (*AuthResult, error) {
	if req.Account == nil || req.Account.HomeAccountID == "" {
		return nil, ErrNoAccount
	}
	userID := req.Account.HomeAccountID

	stored, err := c.store.GetToken(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load cached token: %w", err)
	}

	conf := c.configFor(req.Scopes, req.RedirectURI)
	token, err := conf.TokenSource(ctx, stored).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh access token: %w", err)
	}

	if token.AccessToken != stored.AccessToken {
		if err := c.store.SaveToken(ctx, userID, token); err != nil {
			// The fresh token is still usable for this request.
			c.logger.Warn("failed to persist refreshed token",
				logging.UserHash(userID),
				logging.Err(err))
		} else {
			c.logger.Debug("access token refreshed",
				logging.UserHash(userID),
				"expires", token.Expiry.Format(time.RFC3339))
		}
	}

	return &AuthResult{
		AccessToken: token.AccessToken,
		ExpiresOn:   token.Expiry,
		Account:     req.Account,
	}, nil
}

// NewVerifier returns a fresh PKCE code verifier.
func NewVerifier() string {
	return oauth2.GenerateVerifier()
}

// AuthCodeURL returns the consent URL for an interactive sign-in.
// The same verifier must be passed to ExchangeCode.
func (c *OAuthClient) AuthCodeURL(state, verifier string) string {
	conf := c.configFor(loginScopes(c.config.Scopes), "")
	return conf.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

// ExchangeCode redeems an authorization code and stores the token under userID.
func (c *OAuthClient) ExchangeCode(ctx context.Context, userID, code, verifier string) error {
	if userID == "" {
		return fmt.Errorf("user ID is required")
	}
	if code == "" {
		return fmt.Errorf("authorization code is required")
	}

	conf := c.configFor(loginScopes(c.config.Scopes), "")
	token, err := conf.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return fmt.Errorf("failed to exchange auth code: %w", err)
	}

	if err := c.store.SaveToken(ctx, userID, token); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}

	c.logger.Info("user signed in",
		logging.UserHash(userID),
		"token", logging.SanitizeToken(token.AccessToken))
	return nil
}

func (c *OAuthClient) configFor(scopes []string, redirectURI string) *oauth2.Config {
	conf := *c.config
	if len(scopes) > 0 {
		conf.Scopes = scopes
	}
	if redirectURI != "" {
		conf.RedirectURL = redirectURI
	}
	return &conf
}

func loginScopes(scopes []string) []string {
	if slices.Contains(scopes, offlineAccessScope) {
		return scopes
	}
	return append(slices.Clone(scopes), offlineAccessScope)
}
