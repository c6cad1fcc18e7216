package identity

import (
	"context"
	"errors"
	"time"

	"golang.org/x/oauth2"
)

var (
	// ErrNoToken is returned by token stores when no token is held for a user.
	ErrNoToken = errors.New("no token stored for user")

	// ErrNoAccount is returned by AcquireTokenSilent when the request names no account.
	ErrNoAccount = errors.New("silent token request has no account")
)

// Account identifies a signed-in user in the token cache.
type Account struct {
	HomeAccountID string
}

// TokenCache looks up accounts that have cached credentials.
type TokenCache interface {
	// GetAccountByHomeID returns the account for id, or nil and no error when
	// the cache holds nothing for it.
	GetAccountByHomeID(ctx context.Context, id string) (*Account, error)
}

// SilentRequest describes a token acquisition that must not prompt the user.
type SilentRequest struct {
	Scopes      []string
	RedirectURI string
	Account     *Account
}

// AuthResult is the outcome of a successful silent acquisition.
type AuthResult struct {
	AccessToken string
	ExpiresOn   time.Time
	Account     *Account
}

// Client is an identity provider client as consumed by the Graph adapter.
type Client interface {
	TokenCache() TokenCache
	AcquireTokenSilent(ctx context.Context, req SilentRequest) (*AuthResult, error)
}

// Authorizer runs the interactive authorization code flow that seeds the
// token cache. *OAuthClient implements it.
type Authorizer interface {
	AuthCodeURL(state, verifier string) string
	ExchangeCode(ctx context.Context, userID, code, verifier string) error
}

// TokenStore persists OAuth tokens keyed by user ID.
type TokenStore interface {
	SaveToken(ctx context.Context, userID string, token *oauth2.Token) error
	GetToken(ctx context.Context, userID string) (*oauth2.Token, error)
}

type storeCache struct {
	store TokenStore
}

// GetAccountByHomeID reports an account for every user the store holds a token for.
func (c storeCache) GetAccountByHomeID(ctx context.Context, id string) (*Account, error) {
	if id == "" {
		return nil, nil
	}
	if _, err := c.store.GetToken(ctx, id); err != nil {
		if errors.Is(err, ErrNoToken) {
			return nil, nil
		}
		return nil, err
	}
	return &Account{HomeAccountID: id}, nil
}
