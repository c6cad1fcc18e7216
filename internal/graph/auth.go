package graph

import (
	"context"
	"errors"
	"time"

	abstractions "github.com/microsoft/kiota-abstractions-go"
	"golang.org/x/oauth2"

	"github.com/teemow/graphcal/internal/identity"
	"github.com/teemow/graphcal/internal/instrumentation"
	"github.com/teemow/graphcal/internal/logging"
)

// authProvider stamps every Graph request with a bearer token acquired
// silently for one user. It implements the Kiota AuthenticationProvider.
type authProvider struct {
	identity    identity.Client
	userID      string
	scopes      []string
	redirectURI string
	timeout     time.Duration
	logger      logging.Logger
	recorder    Recorder
}

// AuthenticateRequest runs on every outgoing request. A user without a cached
// account gets no Authorization header and no error; Graph then answers 401.
func (p *authProvider) AuthenticateRequest(ctx context.Context, request *abstractions.RequestInformation, _ map[string]interface{}) error {
	if request == nil {
		return errors.New("request information is nil")
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	account, err := p.identity.TokenCache().GetAccountByHomeID(ctx, p.userID)
	if err != nil {
		return p.fail(ctx, "token cache lookup failed", err)
	}
	if account == nil {
		p.recorder.RecordTokenAcquisition(ctx, instrumentation.TokenResultNoAccount)
		p.logger.Warn("no cached account for user, sending request without token",
			logging.UserHash(p.userID))
		return nil
	}

	result, err := p.identity.AcquireTokenSilent(ctx, identity.SilentRequest{
		Scopes:      p.scopes,
		RedirectURI: p.redirectURI,
		Account:     account,
	})
	if err != nil {
		return p.fail(ctx, "silent token acquisition failed", err)
	}

	p.recorder.RecordTokenAcquisition(ctx, instrumentation.TokenResultSuccess)
	request.Headers.Add("Authorization", "Bearer "+result.AccessToken)
	return nil
}

func (p *authProvider) fail(ctx context.Context, msg string, err error) error {
	p.recorder.RecordTokenAcquisition(ctx, instrumentation.TokenResultFailure)

	args := []interface{}{
		logging.UserHash(p.userID),
		logging.Scopes(p.scopes),
		"redirect_uri", p.redirectURI,
		logging.Err(err),
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		args = append(args,
			"oauth_error", retrieveErr.ErrorCode,
			"oauth_error_description", retrieveErr.ErrorDescription)
		if retrieveErr.Response != nil {
			args = append(args, logging.StatusCode(retrieveErr.Response.StatusCode))
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		args = append(args, "timeout", p.timeout.String())
	}
	p.logger.Error(msg, args...)

	return &AuthFailure{UserHash: logging.AnonymizeUser(p.userID), Err: err}
}
