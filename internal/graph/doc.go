// Package graph issues Microsoft Graph calendar and directory calls on behalf
// of a signed-in user.
//
// Service.GetClient builds a Graph client whose request adapter carries an
// authentication provider bound to one identity client and user. Every
// outgoing request looks the user up in the identity client's token cache,
// acquires a token silently and stamps it as a bearer token. Handles are
// never shared: each operation asks for a fresh one.
//
// The operation set is GetUserDetails, GetCalendarView, CreateEvent,
// CreateSubscription and GetTeamsMeetings. Failures surface as
// *InvalidStateError (missing identity context, no network call made),
// *AuthFailure (token acquisition failed) or *RemoteAPIError (Graph answered
// with an error or an unreadable body). RemoteAPIError matches the status
// sentinels such as ErrNotFound through errors.Is.
package graph
