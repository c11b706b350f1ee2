package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Domain errors represent client orchestration failures.
// Transport failures are reported as *APIError.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// Session Errors.

	// ErrUnauthorized indicates the session token is missing, expired or rejected.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotAuthenticated indicates a flow was started without a session token.
	ErrNotAuthenticated = errors.New("not authenticated: log in before connecting")

	// ErrLoginRedirectMissing indicates the platform has no login redirect configured.
	ErrLoginRedirectMissing = errors.New("misconfigured platform: no login redirect location")

	// ErrNoAccessToken indicates the token endpoint answered without a token.
	ErrNoAccessToken = errors.New("no access token was returned")

	// ErrNoOneTimeToken indicates the one-time token endpoint answered without a token.
	ErrNoOneTimeToken = errors.New("no one-time token was returned")

	// Authorization Errors.

	// ErrCancelled indicates the user closed the authorization window.
	ErrCancelled = errors.New("cancelled authorization")

	// ErrAuthorizationNotReady indicates the authorization cannot be set up
	// because it is not awaiting a callback or has no authorize URL.
	ErrAuthorizationNotReady = errors.New("authorization is not in a state to be setup")

	// ErrInvalidStatus indicates the server sent an unrecognised authorization status.
	ErrInvalidStatus = errors.New("invalid authorization status")

	// Realtime Errors.

	// ErrRealtimeUnavailable indicates the socket could not be opened although
	// the session token is valid.
	ErrRealtimeUnavailable = errors.New("failed to connect to server")

	// ErrSubscriberClosed indicates the status channel closed before a terminal status.
	ErrSubscriberClosed = errors.New("subscriber closed unexpectedly")

	// ErrPushTimeout indicates the server did not acknowledge a push in time.
	ErrPushTimeout = errors.New("network timeout")

	// Emitter Errors.

	// ErrListenerExists indicates the listener is already registered for the event.
	ErrListenerExists = errors.New("can not use the same listener for the same type of event more than once")

	// ErrListenerNotFound indicates the listener is not registered for the event.
	ErrListenerNotFound = errors.New("the supplied listener is not registered for the given event")

	// Window Errors.

	// ErrNavigationBlocked indicates the platform cannot navigate the popup
	// directly and a location message must be posted instead.
	ErrNavigationBlocked = errors.New("direct navigation of the window is not permitted")

	// ErrWindowUnavailable indicates the popup could not be opened.
	ErrWindowUnavailable = errors.New("unable to open authorization window")
)

// APIError is returned when the platform API answers with a failure.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// StatusText is the HTTP status text.
	StatusText string
	// Message is the server-provided error, or the status text.
	Message string
	// DebugMessage carries decoding details when the body was unreadable.
	DebugMessage string
}

// Error implements error.
func (e *APIError) Error() string {
	if e.DebugMessage != "" {
		return fmt.Sprintf("%s (debug: %s)", e.Message, e.DebugMessage)
	}
	return e.Message
}

// Is lets errors.Is match 401 and 404 responses against the session sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// JoinError is returned when the server rejects a channel join or leave.
type JoinError struct {
	Topic  string
	Reason string
}

// Error implements error.
func (e *JoinError) Error() string {
	if e.Topic == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Topic, e.Reason)
}

// Is treats an "unauthorized" join reason as a session failure.
func (e *JoinError) Is(target error) bool {
	return target == ErrUnauthorized && strings.EqualFold(e.Reason, "unauthorized")
}

// AuthorizationFailedError is returned when an authorization settles in the error status.
type AuthorizationFailedError struct {
	// Code is the machine-readable error code, if the server provided one.
	Code string
	// Message is the human-readable message, if the server provided one.
	Message string
}

// Error implements error.
func (e *AuthorizationFailedError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "encountered an unknown error during authorization"
	}
	if e.Code != "" {
		return fmt.Sprintf("%s (%s)", msg, e.Code)
	}
	return msg
}

// WindowError carries an error message posted by the authorization window.
type WindowError struct {
	Message string
}

// Error implements error.
func (e *WindowError) Error() string {
	return e.Message
}

// IsUnauthorized returns true if the error means the session must be refreshed:
// a 401 response or any error whose message is "unauthorized".
func IsUnauthorized(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnauthorized) {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(err.Error()), "unauthorized")
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsCancelled returns true if the user abandoned the authorization.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// IsNetworkError returns true for realtime transport failures.
func IsNetworkError(err error) bool {
	return errors.Is(err, ErrSubscriberClosed) ||
		errors.Is(err, ErrRealtimeUnavailable) ||
		errors.Is(err, ErrPushTimeout)
}
