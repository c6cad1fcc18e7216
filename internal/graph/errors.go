package graph

import (
	"errors"
	"fmt"
	"net/http"

	abstractions "github.com/microsoft/kiota-abstractions-go"
	"github.com/microsoftgraph/msgraph-sdk-go/models/odataerrors"
)

// Status sentinels matched by RemoteAPIError through errors.Is.
var (
	ErrUnauthorised = errors.New("graph: unauthorised")
	ErrForbidden    = errors.New("graph: forbidden")
	ErrNotFound     = errors.New("graph: not found")
	ErrRateLimited  = errors.New("graph: rate limited")
	ErrBadRequest   = errors.New("graph: bad request")
	ErrServerError  = errors.New("graph: server error")
)

var (
	// ErrInvalidArgument is returned before any request when caller input is unusable.
	ErrInvalidArgument = errors.New("graph: invalid argument")

	// ErrNotificationURLRequired is returned by CreateSubscription without a configured notification URL.
	ErrNotificationURLRequired = errors.New("graph: notification URL is not configured")

	// ErrEmptyResponse is wrapped in a RemoteAPIError when a call succeeds
	// without a response body to decode.
	ErrEmptyResponse = errors.New("graph: empty response")
)

// WrapError maps an HTTP status code to its sentinel, or nil for codes
// without one.
func WrapError(statusCode int) error {
	switch {
	case statusCode == http.StatusUnauthorized:
		return ErrUnauthorised
	case statusCode == http.StatusForbidden:
		return ErrForbidden
	case statusCode == http.StatusNotFound:
		return ErrNotFound
	case statusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case statusCode == http.StatusBadRequest:
		return ErrBadRequest
	case statusCode >= 500:
		return ErrServerError
	default:
		return nil
	}
}

// InvalidStateError reports a missing identity client or user ID.
type InvalidStateError struct {
	ClientPresent bool
	UserPresent   bool
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid identity state: client %s, user ID %s",
		presence(e.ClientPresent), presence(e.UserPresent))
}

func presence(ok bool) string {
	if ok {
		return "present"
	}
	return "missing"
}

// AuthFailure reports that a token could not be acquired for a request.
type AuthFailure struct {
	// UserHash is the anonymized user the acquisition was for.
	UserHash string
	Err      error
}

func (e *AuthFailure) Error() string {
	return fmt.Sprintf("token acquisition failed for %s: %v", e.UserHash, e.Err)
}

func (e *AuthFailure) Unwrap() error {
	return e.Err
}

// RemoteAPIError reports an error response or an unreadable response from Graph.
// StatusCode is 0 when no HTTP response was decoded.
type RemoteAPIError struct {
	Operation  string
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *RemoteAPIError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Code != "":
		return fmt.Sprintf("graph %s: status %d: %s: %s", e.Operation, e.StatusCode, e.Code, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("graph %s: status %d: %v", e.Operation, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("graph %s: %v", e.Operation, e.Err)
	}
}

// Unwrap exposes both the underlying SDK error and the status sentinel.
func (e *RemoteAPIError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if sentinel := WrapError(e.StatusCode); sentinel != nil {
		errs = append(errs, sentinel)
	}
	return errs
}

// classifyError turns an error returned by the Graph SDK into one of the
// package's error types. Auth failures raised by the request pipeline pass
// through unchanged.
func classifyError(operation string, err error) error {
	var authErr *AuthFailure
	if errors.As(err, &authErr) {
		return authErr
	}

	remote := &RemoteAPIError{Operation: operation, Err: err}

	var odataErr *odataerrors.ODataError
	if errors.As(err, &odataErr) {
		remote.StatusCode = odataErr.ResponseStatusCode
		if main := odataErr.GetErrorEscaped(); main != nil {
			remote.Code = deref(main.GetCode())
			remote.Message = deref(main.GetMessage())
		}
		return remote
	}

	var apiErr *abstractions.ApiError
	if errors.As(err, &apiErr) {
		remote.StatusCode = apiErr.ResponseStatusCode
		remote.Message = apiErr.Message
	}
	return remote
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
