// Package identity acquires Microsoft identity platform access tokens for
// graphcal users.
//
// Client is the narrow view the Graph adapter depends on: a token cache
// keyed by home account ID plus silent token acquisition. OAuthClient
// implements it on golang.org/x/oauth2 against the Azure AD v2 endpoints,
// with tokens held in a TokenStore (FileTokenStore for the CLI, MemoryStore
// for the MCP server).
//
// Interactive sign-in is an authorization code flow with PKCE: AuthCodeURL
// produces the consent URL and ExchangeCode stores the resulting token under
// the user's ID. Subsequent AcquireTokenSilent calls refresh it as needed.
package identity
