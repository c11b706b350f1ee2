package domain

import "net/url"

// LoadingPath returns the placeholder page shown in the authorization window.
// An empty prototype slug selects the generic page.
func LoadingPath(prototypeSlug string) string {
	if prototypeSlug == "" {
		return "/authorizations/loading"
	}
	return "/authorizations/" + prototypeSlug + "/loading"
}

// LoginBridgePath returns the page that turns a one-time token into a
// session inside the authorization window, then redirects to redirectTo.
func LoginBridgePath(ott, redirectTo string) string {
	return "/sessions/ott/" + url.PathEscape(ott) + "?redirect_to=" + url.QueryEscape(redirectTo)
}

// AuthorizeState is a state of one authorization attempt.
type AuthorizeState int

const (
	// AuthorizeIdle is the state before the attempt starts.
	AuthorizeIdle AuthorizeState = iota
	// AuthorizeLoggingIn loads the window through the login bridge.
	AuthorizeLoggingIn
	// AuthorizeSubscribing joins the authorization status topic.
	AuthorizeSubscribing
	// AuthorizeAwaitingCallback waits for the user to finish consent.
	AuthorizeAwaitingCallback
	// AuthorizeFinalizing re-fetches the settled authorization.
	AuthorizeFinalizing
	// AuthorizeDone is terminal: the authorization is active.
	AuthorizeDone
	// AuthorizeFailed is terminal: the attempt failed or was cancelled.
	AuthorizeFailed
)

// String implements fmt.Stringer.
func (s AuthorizeState) String() string {
	switch s {
	case AuthorizeIdle:
		return "idle"
	case AuthorizeLoggingIn:
		return "logging_in"
	case AuthorizeSubscribing:
		return "subscribing"
	case AuthorizeAwaitingCallback:
		return "awaiting_callback"
	case AuthorizeFinalizing:
		return "finalizing"
	case AuthorizeDone:
		return "done"
	case AuthorizeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal returns true for Done and Failed.
func (s AuthorizeState) IsTerminal() bool {
	return s == AuthorizeDone || s == AuthorizeFailed
}

// AuthorizeProgress is the payload of EventAuthorizationState.
type AuthorizeProgress struct {
	AuthorizationID AuthorizationID
	From            AuthorizeState
	To              AuthorizeState
	// Err is set when To is AuthorizeFailed.
	Err error
}
