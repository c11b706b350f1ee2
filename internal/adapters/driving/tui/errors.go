package tui

import (
	"context"
	"errors"

	"github.com/custodia-labs/xkit-cli/internal/core/domain"
)

// ErrMissingConnectService is returned when the connect service is not provided.
var ErrMissingConnectService = errors.New("tui: connect service is required")

// ErrInvalidPorts is returned when ports validation fails.
var ErrInvalidPorts = errors.New("tui: invalid ports configuration")

// ErrMissingSlug is returned when no connector was named.
var ErrMissingSlug = errors.New("tui: connector slug is required")

// Describe turns a connect failure into a line for the user.
func Describe(err error) string {
	var failed *domain.AuthorizationFailedError
	var windowErr *domain.WindowError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), domain.IsCancelled(err):
		return "Cancelled. The authorization window was closed before finishing."
	case errors.As(err, &failed):
		return "The provider refused the authorization: " + failed.Error()
	case errors.As(err, &windowErr):
		return "The authorization window reported an error: " + windowErr.Message
	case errors.Is(err, domain.ErrLoginRedirectMissing), errors.Is(err, domain.ErrNotAuthenticated):
		return "You are not logged in. Run `xkit login` first."
	case domain.IsUnauthorized(err):
		return "Your session expired. Run `xkit login` again."
	case domain.IsNetworkError(err):
		return "Could not reach the server: " + err.Error()
	default:
		return err.Error()
	}
}
