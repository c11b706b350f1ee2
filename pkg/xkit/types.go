package xkit

import (
	"github.com/custodia-labs/xkit-cli/internal/adapters/driven/window/browser"
	"github.com/custodia-labs/xkit-cli/internal/core/domain"
	"github.com/custodia-labs/xkit-cli/internal/core/ports/driven"
	"github.com/custodia-labs/xkit-cli/internal/core/ports/driving"
)

// Platform and connection types.
type (
	Platform              = domain.Platform
	PublicConnector       = domain.PublicConnector
	Connector             = domain.Connector
	Connection            = domain.Connection
	ConnectionOnly        = domain.ConnectionOnly
	ConnectionStatus      = domain.ConnectionStatus
	ConnectionQuery       = domain.ConnectionQuery
	ConnectionOrConnector = domain.ConnectionOrConnector
	Authorization         = domain.Authorization
	AuthorizationStatus   = domain.AuthorizationStatus
	SessionState          = domain.SessionState
	StatePatch            = domain.StatePatch
)

// Errors surfaced by the client.
type (
	APIError                 = domain.APIError
	AuthorizationFailedError = domain.AuthorizationFailedError
	WindowError              = domain.WindowError
)

// Events and listeners.
type (
	Event             = domain.Event
	Listener          = driving.Listener
	TokenCallback     = driving.TokenCallback
	AuthorizeState    = domain.AuthorizeState
	AuthorizeProgress = domain.AuthorizeProgress
)

// Events a Listener can be registered for with On.
const (
	EventConfigUpdate       = domain.EventConfigUpdate
	EventConnectionEnable   = domain.EventConnectionEnable
	EventConnectionRemove   = domain.EventConnectionRemove
	EventAuthorizationState = domain.EventAuthorizationState

	// Deprecated: Use EventConnectionRemove instead.
	EventConnectionDisable = domain.EventConnectionDisable
)

// ConfigStore persists the session and client settings.
type ConfigStore = driven.ConfigStore

// Launcher opens a URL in the user's browser.
type Launcher = browser.Launcher
