package driven

import (
	"context"

	"github.com/custodia-labs/xkit-cli/internal/core/domain"
)

// WindowOpener is the platform adapter for popup windows.
type WindowOpener interface {
	// Open opens a popup at url. name identifies the window for reuse.
	Open(ctx context.Context, url, name string, features domain.WindowFeatures) (Window, error)

	// ScreenGeometry returns the user's screen, or nil when unknown.
	ScreenGeometry() *domain.Rect
}

// Window is a handle to a popup the client does not fully control.
// The user may close it at any time.
type Window interface {
	// Closed returns true once the window has been closed.
	Closed() bool

	// Navigate replaces the window's location. Returns domain.ErrNavigationBlocked
	// when the platform cannot navigate the child window directly.
	Navigate(url string) error

	// PostMessage sends a message to the window, delivered only if the window's
	// current origin matches targetOrigin.
	PostMessage(msg any, targetOrigin string) error

	// Messages streams messages posted by the window to its opener.
	Messages() <-chan domain.WindowMessage

	// Close closes the window.
	Close() error
}

// Navigator moves the host page, used for the login redirect.
type Navigator interface {
	Navigate(ctx context.Context, url string) error
}
