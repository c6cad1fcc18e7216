package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const testUser = "00000000-0000-0000-66f3-3332eca7ea81.9188040d-6c67-4c5b-b112-36a304b66dad"

type tokenServer struct {
	*httptest.Server
	calls    atomic.Int32
	lastForm url.Values
}

func newTokenServer(t *testing.T, status int, body map[string]interface{}) *tokenServer {
	t.Helper()
	ts := &tokenServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.calls.Add(1)
		assert.Equal(t, "/oauth2/v2.0/token", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		ts.lastForm = r.PostForm

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newTestClient(t *testing.T, authority string, store TokenStore) *OAuthClient {
	t.Helper()
	client, err := NewOAuthClient(OAuthConfig{
		ClientID:     "app-id",
		ClientSecret: "app-secret",
		Authority:    authority,
		RedirectURI:  "http://localhost:3000/auth/callback",
		Scopes:       []string{"User.Read", "Calendars.ReadWrite"},
	}, store, nil)
	require.NoError(t, err)
	return client
}

func TestNewOAuthClient_Validation(t *testing.T) {
	_, err := NewOAuthClient(OAuthConfig{}, NewFileTokenStore(t.TempDir()), nil)
	assert.Error(t, err)

	_, err = NewOAuthClient(OAuthConfig{ClientID: "app-id"}, nil, nil)
	assert.Error(t, err)

	client, err := NewOAuthClient(OAuthConfig{ClientID: "app-id"}, NewFileTokenStore(t.TempDir()), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultScope}, client.config.Scopes)
	assert.Equal(t, "https://login.microsoftonline.com/common/oauth2/v2.0/token", client.config.Endpoint.TokenURL)
}

func TestOAuthConfig_Endpoint(t *testing.T) {
	tests := []struct {
		name     string
		config   OAuthConfig
		wantAuth string
	}{
		{"default tenant", OAuthConfig{}, "https://login.microsoftonline.com/common/oauth2/v2.0/authorize"},
		{"named tenant", OAuthConfig{Tenant: "contoso.onmicrosoft.com"}, "https://login.microsoftonline.com/contoso.onmicrosoft.com/oauth2/v2.0/authorize"},
		{"authority wins", OAuthConfig{Tenant: "ignored", Authority: "https://login.microsoftonline.us/organizations/"}, "https://login.microsoftonline.us/organizations/oauth2/v2.0/authorize"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantAuth, tt.config.endpoint().AuthURL)
		})
	}
}

func TestParseScopes(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{"", []string{DefaultScope}},
		{" , ", []string{DefaultScope}},
		{"User.Read", []string{"User.Read"}},
		{"User.Read, Calendars.ReadWrite,,MailboxSettings.Read", []string{"User.Read", "Calendars.ReadWrite", "MailboxSettings.Read"}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseScopes(tt.raw))
		})
	}
}

func TestAcquireTokenSilent_CachedTokenStillValid(t *testing.T) {
	srv := newTokenServer(t, http.StatusOK, nil)
	store := NewFileTokenStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.SaveToken(ctx, testUser, &oauth2.Token{
		AccessToken:  "cached-access",
		RefreshToken: "cached-refresh",
		Expiry:       time.Now().Add(time.Hour),
	}))

	client := newTestClient(t, srv.URL, store)
	result, err := client.AcquireTokenSilent(ctx, SilentRequest{
		Scopes:  []string{DefaultScope},
		Account: &Account{HomeAccountID: testUser},
	})
	require.NoError(t, err)

	assert.Equal(t, "cached-access", result.AccessToken)
	assert.Equal(t, testUser, result.Account.HomeAccountID)
	assert.Zero(t, srv.calls.Load(), "valid token must not hit the token endpoint")
}

func TestAcquireTokenSilent_RefreshesExpiredToken(t *testing.T) {
	srv := newTokenServer(t, http.StatusOK, map[string]interface{}{
		"access_token":  "fresh-access",
		"refresh_token": "fresh-refresh",
		"token_type":    "Bearer",
		"expires_in":    3600,
	})
	store := NewFileTokenStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.SaveToken(ctx, testUser, &oauth2.Token{
		AccessToken:  "stale-access",
		RefreshToken: "stale-refresh",
		Expiry:       time.Now().Add(-time.Minute),
	}))

	client := newTestClient(t, srv.URL, store)
	result, err := client.AcquireTokenSilent(ctx, SilentRequest{
		Scopes:      []string{DefaultScope},
		RedirectURI: "http://localhost:3000/auth/callback",
		Account:     &Account{HomeAccountID: testUser},
	})
	require.NoError(t, err)

	assert.Equal(t, "fresh-access", result.AccessToken)
	assert.True(t, result.ExpiresOn.After(time.Now()))
	assert.Equal(t, "refresh_token", srv.lastForm.Get("grant_type"))
	assert.Equal(t, "stale-refresh", srv.lastForm.Get("refresh_token"))

	persisted, err := store.GetToken(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, "fresh-access", persisted.AccessToken)
	assert.Equal(t, "fresh-refresh", persisted.RefreshToken)
}

func TestAcquireTokenSilent_RefreshRejected(t *testing.T) {
	srv := newTokenServer(t, http.StatusBadRequest, map[string]interface{}{
		"error":             "invalid_grant",
		"error_description": "AADSTS70008: The refresh token has expired.",
	})
	store := NewFileTokenStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.SaveToken(ctx, testUser, &oauth2.Token{
		AccessToken:  "stale-access",
		RefreshToken: "revoked-refresh",
		Expiry:       time.Now().Add(-time.Minute),
	}))

	client := newTestClient(t, srv.URL, store)
	_, err := client.AcquireTokenSilent(ctx, SilentRequest{Account: &Account{HomeAccountID: testUser}})
	require.Error(t, err)

	var retrieveErr *oauth2.RetrieveError
	require.True(t, errors.As(err, &retrieveErr))
	assert.Equal(t, "invalid_grant", retrieveErr.ErrorCode)
}

func TestAcquireTokenSilent_MissingInputs(t *testing.T) {
	client := newTestClient(t, "https://login.example.invalid", NewFileTokenStore(t.TempDir()))
	ctx := context.Background()

	_, err := client.AcquireTokenSilent(ctx, SilentRequest{})
	assert.ErrorIs(t, err, ErrNoAccount)

	_, err = client.AcquireTokenSilent(ctx, SilentRequest{Account: &Account{HomeAccountID: "unknown"}})
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestTokenCache_GetAccountByHomeID(t *testing.T) {
	store := NewFileTokenStore(t.TempDir())
	ctx := context.Background()
	require.NoError(t, store.SaveToken(ctx, testUser, &oauth2.Token{AccessToken: "a"}))

	cache := newTestClient(t, "https://login.example.invalid", store).TokenCache()

	account, err := cache.GetAccountByHomeID(ctx, testUser)
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, testUser, account.HomeAccountID)

	account, err = cache.GetAccountByHomeID(ctx, "someone-else")
	require.NoError(t, err)
	assert.Nil(t, account)

	account, err = cache.GetAccountByHomeID(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, account)
}

func TestAuthCodeURL_UsesPKCEAndOfflineAccess(t *testing.T) {
	client := newTestClient(t, "https://login.example.invalid/tenant", NewFileTokenStore(t.TempDir()))
	verifier := NewVerifier()

	raw := client.AuthCodeURL("state-123", verifier)
	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "/tenant/oauth2/v2.0/authorize", u.Path)
	assert.Equal(t, "app-id", q.Get("client_id"))
	assert.Equal(t, "state-123", q.Get("state"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.Equal(t, oauth2.S256ChallengeFromVerifier(verifier), q.Get("code_challenge"))
	assert.Equal(t, "User.Read Calendars.ReadWrite offline_access", q.Get("scope"))
	assert.Equal(t, "http://localhost:3000/auth/callback", q.Get("redirect_uri"))
}

func TestExchangeCode(t *testing.T) {
	srv := newTokenServer(t, http.StatusOK, map[string]interface{}{
		"access_token":  "first-access",
		"refresh_token": "first-refresh",
		"token_type":    "Bearer",
		"expires_in":    3600,
	})
	store := NewMemoryStore()
	defer store.Stop()
	ctx := context.Background()

	client := newTestClient(t, srv.URL, store)
	verifier := NewVerifier()
	require.NoError(t, client.ExchangeCode(ctx, testUser, "auth-code", verifier))

	assert.Equal(t, "authorization_code", srv.lastForm.Get("grant_type"))
	assert.Equal(t, "auth-code", srv.lastForm.Get("code"))
	assert.Equal(t, verifier, srv.lastForm.Get("code_verifier"))

	token, err := store.GetToken(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, "first-access", token.AccessToken)

	assert.Error(t, client.ExchangeCode(ctx, "", "auth-code", verifier))
	assert.Error(t, client.ExchangeCode(ctx, testUser, "", verifier))
}
